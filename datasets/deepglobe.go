package datasets

import (
	"fmt"
	"image"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// Split names accepted by NewDeepGlobe.
const (
	SplitTrain = "train"
	SplitTest  = "test"
)

// splitDirs maps a split name to its directory under root/data.
var splitDirs = map[string]string{
	SplitTrain: "training_data",
	SplitTest:  "test_data",
}

// Classes are the seven DeepGlobe land cover classes, in label order.
var Classes = []string{
	"urban_land",
	"agriculture_land",
	"rangeland",
	"forest_land",
	"water",
	"barren_land",
	"unknown",
}

// Colormap holds the RGB color used in mask rasters for each class, indexed
// like Classes.
var Colormap = [][3]uint8{
	{0, 255, 255},
	{255, 255, 0},
	{255, 0, 255},
	{0, 255, 0},
	{0, 0, 255},
	{255, 255, 255},
	{0, 0, 0},
}

// NumClasses is the number of DeepGlobe land cover classes.
var NumClasses = len(Classes)

// DeepGlobe lazily reads the DeepGlobe Land Cover Classification dataset from
// disk. The expected layout under root is
//
//	data/training_data/images/<id>_sat.jpg
//	data/training_data/masks/<id>_mask.png
//	data/test_data/images/<id>_sat.jpg
//	data/test_data/masks/<id>_mask.png
//
// Construction scans and validates the file list; pixels are only decoded
// when a sample is requested.
type DeepGlobe struct {
	// Root is the dataset root directory (the parent of "data").
	Root string

	// Split is "train" or "test".
	Split string

	transform Transform
	augment   *rand.Rand

	imageDir string
	maskDir  string
	ids      []string
}

// NewDeepGlobe creates a dataset over one split of the DeepGlobe data rooted
// at root. transform (may be nil) is applied to every decoded sample. It
// returns an error for an unknown split name, when no image tiles are found,
// or when a tile is missing its mask.
func NewDeepGlobe(root, split string, transform Transform) (*DeepGlobe, error) {
	dir, ok := splitDirs[split]
	if !ok {
		return nil, fmt.Errorf("unknown split %q (want %q or %q)", split, SplitTrain, SplitTest)
	}

	ds := &DeepGlobe{
		Root:      root,
		Split:     split,
		transform: transform,
		imageDir:  filepath.Join(root, "data", dir, "images"),
		maskDir:   filepath.Join(root, "data", dir, "masks"),
	}
	if err := ds.scan(); err != nil {
		return nil, err
	}
	return ds, nil
}

// scan discovers tile IDs from the image directory and verifies each tile
// has a mask. IDs are sorted so the dataset order is stable across runs.
func (d *DeepGlobe) scan() error {
	pattern := filepath.Join(d.imageDir, "*_sat.jpg")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("failed to glob pattern %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("no image tiles found matching pattern: %s", pattern)
	}
	sort.Strings(matches)

	d.ids = make([]string, 0, len(matches))
	for _, m := range matches {
		id := strings.TrimSuffix(filepath.Base(m), "_sat.jpg")
		if _, err := os.Stat(d.maskPath(id)); err != nil {
			return fmt.Errorf("missing mask for tile %s: %w", id, err)
		}
		d.ids = append(d.ids, id)
	}
	return nil
}

// WithAugmentation enables random horizontal/vertical flips, applied
// identically to image and mask. If rng is nil a time-seeded generator is
// used. Augmented samples are not deterministic across accesses; enable this
// only for training data.
//
// Returns itself, to allow chain of method calls.
func (d *DeepGlobe) WithAugmentation(rng *rand.Rand) *DeepGlobe {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	d.augment = rng
	return d
}

// Len returns the number of tiles in this split.
func (d *DeepGlobe) Len() int {
	return len(d.ids)
}

// ID returns the tile identifier at index i.
func (d *DeepGlobe) ID(i int) string {
	return d.ids[i]
}

func (d *DeepGlobe) imagePath(id string) string {
	return filepath.Join(d.imageDir, id+"_sat.jpg")
}

func (d *DeepGlobe) maskPath(id string) string {
	return filepath.Join(d.maskDir, id+"_mask.png")
}

// Sample decodes the tile at index i: the satellite image into a flat
// channel-major float32 buffer with values in [0,255], the mask into
// per-pixel class indices. Augmentation (if enabled) and the transform (if
// set) are applied before returning.
func (d *DeepGlobe) Sample(i int) (*Sample, error) {
	if i < 0 || i >= len(d.ids) {
		return nil, fmt.Errorf("index %d out of range [0, %d)", i, len(d.ids))
	}
	id := d.ids[i]

	img, err := loadImage(d.imagePath(id))
	if err != nil {
		return nil, fmt.Errorf("failed to load tile %s: %w", id, err)
	}
	mask, err := loadImage(d.maskPath(id))
	if err != nil {
		return nil, fmt.Errorf("failed to load mask for tile %s: %w", id, err)
	}
	if !img.Bounds().Size().Eq(mask.Bounds().Size()) {
		return nil, fmt.Errorf("tile %s: image size %v does not match mask size %v",
			id, img.Bounds().Size(), mask.Bounds().Size())
	}

	if d.augment != nil {
		img, mask = d.flip(img, mask)
	}

	s := &Sample{ID: id, Channels: 3}
	s.Image, s.Height, s.Width = imageToCHW(img)
	s.Mask, err = maskToClasses(mask)
	if err != nil {
		return nil, fmt.Errorf("tile %s: %w", id, err)
	}

	if d.transform != nil {
		if err := d.transform(s); err != nil {
			return nil, fmt.Errorf("transform failed for tile %s: %w", id, err)
		}
	}
	return s, nil
}

// flip applies the same randomly chosen horizontal and/or vertical flip to
// the image and its mask.
func (d *DeepGlobe) flip(img, mask image.Image) (image.Image, image.Image) {
	if d.augment.Intn(2) == 1 {
		img = imaging.FlipH(img)
		mask = imaging.FlipH(mask)
	}
	if d.augment.Intn(2) == 1 {
		img = imaging.FlipV(img)
		mask = imaging.FlipV(mask)
	}
	return img, mask
}
