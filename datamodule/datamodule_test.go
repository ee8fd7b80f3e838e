package datamodule

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/Noofbiz/landcover/datasets"
)

// writeTile writes one uniform gray image tile and a single-class mask under
// the DeepGlobe directory layout.
func writeTile(t *testing.T, root, splitDir, id string, w, h int, gray uint8, class int) {
	t.Helper()
	imgDir := filepath.Join(root, "data", splitDir, "images")
	maskDir := filepath.Join(root, "data", splitDir, "masks")
	for _, dir := range []string{imgDir, maskDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	mask := image.NewNRGBA(image.Rect(0, 0, w, h))
	c := datasets.Colormap[class]
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: gray, G: gray, B: gray, A: 255})
			mask.SetNRGBA(x, y, color.NRGBA{R: c[0], G: c[1], B: c[2], A: 255})
		}
	}

	f, err := os.Create(filepath.Join(imgDir, id+"_sat.jpg"))
	if err != nil {
		t.Fatalf("failed to create image: %v", err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 100}); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	f.Close()

	f, err = os.Create(filepath.Join(maskDir, id+"_mask.png"))
	if err != nil {
		t.Fatalf("failed to create mask: %v", err)
	}
	if err := png.Encode(f, mask); err != nil {
		t.Fatalf("failed to encode mask: %v", err)
	}
	f.Close()
}

// writeDataset creates a root with nTrain train tiles and nTest test tiles.
func writeDataset(t *testing.T, nTrain, nTest int) string {
	t.Helper()
	root := t.TempDir()
	for i := 0; i < nTrain; i++ {
		writeTile(t, root, "training_data", strconv.Itoa(i), 4, 4, uint8(40+10*i), i%datasets.NumClasses)
	}
	for i := 0; i < nTest; i++ {
		writeTile(t, root, "test_data", strconv.Itoa(i), 4, 4, uint8(40+10*i), i%datasets.NumClasses)
	}
	return root
}

// drainImages consumes one full epoch and returns the concatenated image
// buffers plus the total sample count.
func drainImages(t *testing.T, l *datasets.Loader) ([]float32, int) {
	t.Helper()
	var all []float32
	count := 0
	for {
		b, err := l.NextBatch()
		if err == io.EOF {
			return all, count
		}
		if err != nil {
			t.Fatalf("NextBatch failed: %v", err)
		}
		all = append(all, b.Images...)
		count += b.N
	}
}

// TestSetup_SplitPartition checks the 10-tile / 20% scenario: 8 train, 2
// validation, disjoint, with an independent test dataset.
func TestSetup_SplitPartition(t *testing.T) {
	root := writeDataset(t, 10, 3)
	dm := New(root).WithValSplit(0.2).WithSeed(42)
	if err := dm.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	if got := dm.TrainDataset().Len(); got != 8 {
		t.Fatalf("train length = %d, want 8", got)
	}
	if got := dm.ValDataset().Len(); got != 2 {
		t.Fatalf("val length = %d, want 2", got)
	}
	if got := dm.TestDataset().Len(); got != 3 {
		t.Fatalf("test length = %d, want 3", got)
	}

	trainSub, ok := dm.TrainDataset().(*datasets.Subset)
	if !ok {
		t.Fatalf("train dataset is %T, want *datasets.Subset", dm.TrainDataset())
	}
	valSub, ok := dm.ValDataset().(*datasets.Subset)
	if !ok {
		t.Fatalf("val dataset is %T, want *datasets.Subset", dm.ValDataset())
	}
	seen := make(map[int]bool)
	for _, idx := range trainSub.Indices() {
		seen[idx] = true
	}
	for _, idx := range valSub.Indices() {
		if seen[idx] {
			t.Fatalf("index %d present in both train and val subsets", idx)
		}
	}

	testDS, ok := dm.TestDataset().(*datasets.DeepGlobe)
	if !ok {
		t.Fatalf("test dataset is %T, want *datasets.DeepGlobe", dm.TestDataset())
	}
	if testDS.Split != datasets.SplitTest {
		t.Fatalf("test dataset split = %q", testDS.Split)
	}
}

// TestSetup_NoValAliasing checks the degenerate policy: with a zero
// validation fraction, train and validation are the very same dataset object.
func TestSetup_NoValAliasing(t *testing.T) {
	root := writeDataset(t, 10, 1)
	dm := New(root).WithValSplit(0)
	if err := dm.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	if dm.TrainDataset() != dm.ValDataset() {
		t.Fatalf("train and val datasets should alias the same object when val split is 0")
	}
	if dm.TrainDataset().Len() != 10 {
		t.Fatalf("train length = %d, want the full 10", dm.TrainDataset().Len())
	}
	if dm.TestDataset() == dm.TrainDataset() {
		t.Fatalf("test dataset must be independent of the train dataset")
	}
}

// TestSetup_Rebuilds checks that a second Setup call materializes new subset
// objects instead of caching the previous ones.
func TestSetup_Rebuilds(t *testing.T) {
	root := writeDataset(t, 10, 1)
	dm := New(root).WithValSplit(0.2).WithSeed(7)
	if err := dm.Setup(); err != nil {
		t.Fatalf("first Setup failed: %v", err)
	}
	firstTrain, firstTest := dm.TrainDataset(), dm.TestDataset()

	if err := dm.Setup(); err != nil {
		t.Fatalf("second Setup failed: %v", err)
	}
	if dm.TrainDataset() == firstTrain {
		t.Fatalf("second Setup should rebuild the train subset")
	}
	if dm.TestDataset() == firstTest {
		t.Fatalf("second Setup should rebuild the test dataset")
	}
}

// TestPreprocess checks v/255 for every byte value, mask untouched.
func TestPreprocess(t *testing.T) {
	dm := New("unused")
	s := &datasets.Sample{Channels: 1, Height: 16, Width: 16}
	s.Image = make([]float32, 256)
	s.Mask = make([]int32, 256)
	for v := 0; v < 256; v++ {
		s.Image[v] = float32(v)
		s.Mask[v] = 3
	}

	if err := dm.Preprocess(s); err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}
	for v := 0; v < 256; v++ {
		if want := float32(v) / 255.0; s.Image[v] != want {
			t.Fatalf("value %d: got %v, want %v", v, s.Image[v], want)
		}
		if s.Mask[v] != 3 {
			t.Fatalf("mask modified at %d", v)
		}
	}
}

// TestSetup_PreprocessWired checks samples served after Setup are normalized.
func TestSetup_PreprocessWired(t *testing.T) {
	root := writeDataset(t, 4, 1)
	dm := New(root).WithValSplit(0)
	if err := dm.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	s, err := dm.TrainDataset().Sample(0)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	for i, v := range s.Image {
		if v < 0 || v > 1 {
			t.Fatalf("image value %d = %v, want within [0,1]", i, v)
		}
	}
}

func TestLoaders_BeforeSetup(t *testing.T) {
	dm := New("unused")
	if _, err := dm.TrainLoader(); err == nil {
		t.Fatalf("TrainLoader should fail before Setup")
	}
	if _, err := dm.ValLoader(); err == nil {
		t.Fatalf("ValLoader should fail before Setup")
	}
	if _, err := dm.TestLoader(); err == nil {
		t.Fatalf("TestLoader should fail before Setup")
	}
}

// TestValLoader_StableOrder checks validation iteration order is identical
// across independently built loaders.
func TestValLoader_StableOrder(t *testing.T) {
	root := writeDataset(t, 10, 1)
	dm := New(root).WithValSplit(0.3).WithSeed(5).WithBatchSize(2)
	if err := dm.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	first, firstN := drainLoader(t, dm.ValLoader)
	second, secondN := drainLoader(t, dm.ValLoader)
	if firstN != 3 || secondN != 3 {
		t.Fatalf("val passes covered %d and %d samples, want 3", firstN, secondN)
	}
	if len(first) != len(second) {
		t.Fatalf("val passes have different lengths: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("val order differs at element %d", i)
		}
	}
}

// TestTrainValCoverAllWhenNoVal checks both loaders iterate the full train
// split when the validation fraction is zero.
func TestTrainValCoverAllWhenNoVal(t *testing.T) {
	root := writeDataset(t, 10, 1)
	dm := New(root).WithValSplit(0).WithBatchSize(4)
	if err := dm.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	_, trainN := drainLoader(t, dm.TrainLoader)
	_, valN := drainLoader(t, dm.ValLoader)
	if trainN != 10 {
		t.Fatalf("train loader covered %d samples, want 10", trainN)
	}
	if valN != 10 {
		t.Fatalf("val loader covered %d samples, want 10", valN)
	}
}

// TestTrainLoader_SeededShuffle checks a configured seed makes train
// shuffling reproducible across independently built loaders.
func TestTrainLoader_SeededShuffle(t *testing.T) {
	root := writeDataset(t, 10, 1)
	dm := New(root).WithValSplit(0).WithSeed(11).WithBatchSize(4)
	if err := dm.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	first, _ := drainLoader(t, dm.TrainLoader)
	second, _ := drainLoader(t, dm.TrainLoader)
	if len(first) != len(second) {
		t.Fatalf("passes have different lengths: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("seeded train order differs at element %d", i)
		}
	}
}

func drainLoader(t *testing.T, build func() (*datasets.Loader, error)) ([]float32, int) {
	t.Helper()
	l, err := build()
	if err != nil {
		t.Fatalf("failed to build loader: %v", err)
	}
	return drainImages(t, l)
}
