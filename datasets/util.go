package datasets

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// loadImage opens and decodes an image file (JPEG or PNG).
func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// imageToCHW converts a decoded image into a flat channel-major float32
// buffer (R plane, then G, then B), with values in [0,255].
func imageToCHW(img image.Image) (buf []float32, height, width int) {
	bounds := img.Bounds()
	height = bounds.Dy()
	width = bounds.Dx()
	planeSize := height * width
	buf = make([]float32, 3*planeSize)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			pos := y*width + x
			buf[pos] = float32(r >> 8)
			buf[planeSize+pos] = float32(g >> 8)
			buf[2*planeSize+pos] = float32(b >> 8)
		}
	}
	return buf, height, width
}

// colorToClass maps a packed RGB value to its DeepGlobe class index.
var colorToClass = func() map[uint32]int32 {
	m := make(map[uint32]int32, len(Colormap))
	for class, c := range Colormap {
		m[packRGB(c[0], c[1], c[2])] = int32(class)
	}
	return m
}()

func packRGB(r, g, b uint8) uint32 {
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// maskToClasses converts a decoded mask raster into row-major per-pixel class
// indices using the DeepGlobe colormap. Pixels with a color outside the
// colormap are an error: the mask file is malformed.
func maskToClasses(img image.Image) ([]int32, error) {
	bounds := img.Bounds()
	height := bounds.Dy()
	width := bounds.Dx()
	classes := make([]int32, height*width)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			class, ok := colorToClass[packRGB(uint8(r>>8), uint8(g>>8), uint8(b>>8))]
			if !ok {
				return nil, fmt.Errorf("mask color (%d,%d,%d) at (%d,%d) is not in the DeepGlobe colormap",
					r>>8, g>>8, b>>8, x, y)
			}
			classes[y*width+x] = class
		}
	}
	return classes, nil
}
