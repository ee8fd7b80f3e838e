package datasets

import "fmt"

// Sample is one tile of the dataset: a satellite image and its label mask.
//
// The image is stored as a flat channel-major buffer (channel, then row, then
// column), so element (c, y, x) lives at Image[c*Height*Width + y*Width + x].
// At decode time intensities are raw bytes in [0,255]; transforms such as
// ScaleImage may remap them.
//
// The mask holds one class index per pixel in row-major order.
type Sample struct {
	// ID is the tile identifier, e.g. "855" for 855_sat.jpg / 855_mask.png.
	ID string

	Image []float32
	Mask  []int32

	Channels int
	Height   int
	Width    int
}

// Pixel returns the image value at (channel, y, x). No bounds checking.
func (s *Sample) Pixel(c, y, x int) float32 {
	return s.Image[c*s.Height*s.Width+y*s.Width+x]
}

// Class returns the mask class index at (y, x). No bounds checking.
func (s *Sample) Class(y, x int) int32 {
	return s.Mask[y*s.Width+x]
}

// Transform mutates a sample in place. Transforms run after decoding, before
// the sample is handed to the caller or stacked into a batch.
type Transform func(*Sample) error

// Compose chains transforms into one, applied in the order given. Nil
// transforms are skipped.
func Compose(transforms ...Transform) Transform {
	return func(s *Sample) error {
		for _, t := range transforms {
			if t == nil {
				continue
			}
			if err := t(s); err != nil {
				return err
			}
		}
		return nil
	}
}

// ScaleImage returns a transform that divides every image element by divisor.
// The mask is left untouched. ScaleImage(255) maps raw byte intensities to
// the [0,1] range.
func ScaleImage(divisor float32) Transform {
	return func(s *Sample) error {
		if divisor == 0 {
			return fmt.Errorf("image scale divisor must be non-zero")
		}
		for i := range s.Image {
			s.Image[i] /= divisor
		}
		return nil
	}
}
