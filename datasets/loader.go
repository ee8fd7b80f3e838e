package datasets

import (
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gopjrt/dtypes"
)

// Loader iterates over a Dataset in fixed-size batches. With shuffling
// enabled the sample order is re-randomized on every Reset; otherwise
// batches follow the dataset's declared order, stable across passes. With
// workers configured, batches are assembled concurrently on a pool of
// goroutines while preserving batch order.
//
// Loader implements gomlx's train.Dataset: Yield returns the next batch as
// tensors and io.EOF once the epoch is exhausted; Reset starts a new epoch.
type Loader struct {
	name       string
	ds         Dataset
	batchSize  int
	numWorkers int
	shuffle    *rand.Rand

	mu      sync.Mutex
	order   []int
	next    int
	started bool

	// Worker pipeline for the current epoch; nil when numWorkers == 0.
	queue chan chan batchResult
	stop  chan struct{}
}

type batchResult struct {
	batch *Batch
	err   error
}

// Assert Loader is a train.Dataset.
var _ train.Dataset = &Loader{}

// NewLoader creates a batch loader over ds. A non-positive batchSize
// defaults to 32. Shuffling and workers are off by default; see WithShuffle
// and WithWorkers.
func NewLoader(name string, ds Dataset, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &Loader{
		name:      name,
		ds:        ds,
		batchSize: batchSize,
	}
}

// WithShuffle enables shuffling: every epoch iterates the dataset in a fresh
// random permutation. If rng is nil a time-seeded generator is used.
//
// Returns itself, to allow chain of method calls.
func (l *Loader) WithShuffle(rng *rand.Rand) *Loader {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	l.shuffle = rng
	return l
}

// WithWorkers sets the number of goroutines that assemble batches
// concurrently. Zero (the default) assembles batches synchronously in
// NextBatch.
//
// Returns itself, to allow chain of method calls.
func (l *Loader) WithWorkers(n int) *Loader {
	if n < 0 {
		n = 0
	}
	l.numWorkers = n
	return l
}

// Name implements train.Dataset.
func (l *Loader) Name() string { return l.name }

// BatchSize returns the configured batch size.
func (l *Loader) BatchSize() int { return l.batchSize }

// Reset implements train.Dataset: it starts a new epoch, re-shuffling the
// sample order if shuffling is enabled.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetLocked()
}

func (l *Loader) resetLocked() {
	// Abandon any worker pipeline from the previous epoch.
	if l.stop != nil {
		close(l.stop)
		l.stop = nil
		l.queue = nil
	}

	n := l.ds.Len()
	l.order = make([]int, n)
	for i := range l.order {
		l.order[i] = i
	}
	if l.shuffle != nil {
		l.shuffle.Shuffle(n, func(i, j int) {
			l.order[i], l.order[j] = l.order[j], l.order[i]
		})
	}
	l.next = 0
	l.started = true

	if l.numWorkers > 0 {
		l.stop = make(chan struct{})
		l.queue = make(chan chan batchResult, l.numWorkers)
		go l.dispatch(l.order, l.queue, l.stop)
	}
}

// dispatch feeds batch jobs to the worker pool, queueing one result slot per
// batch in epoch order so consumers see batches in order regardless of which
// worker finishes first.
func (l *Loader) dispatch(order []int, queue chan chan batchResult, stop chan struct{}) {
	sem := make(chan struct{}, l.numWorkers)
	for start := 0; start < len(order); start += l.batchSize {
		end := min(start+l.batchSize, len(order))
		indices := order[start:end]

		select {
		case sem <- struct{}{}:
		case <-stop:
			return
		}
		slot := make(chan batchResult, 1)
		go func() {
			defer func() { <-sem }()
			b, err := l.assemble(indices)
			slot <- batchResult{batch: b, err: err}
		}()

		select {
		case queue <- slot:
		case <-stop:
			return
		}
	}
	close(queue)
}

// NextBatch returns the next batch of the current epoch, or io.EOF when the
// epoch is exhausted. The first call after construction or after io.EOF
// requires no explicit Reset; the loader starts (or restarts) itself.
func (l *Loader) NextBatch() (*Batch, error) {
	l.mu.Lock()
	if !l.started {
		l.resetLocked()
	}

	if l.numWorkers > 0 {
		if l.queue == nil {
			// Workers were configured after iteration started.
			l.resetLocked()
		}
		queue := l.queue
		l.mu.Unlock()
		slot, ok := <-queue
		if !ok {
			return nil, io.EOF
		}
		res := <-slot
		return res.batch, res.err
	}

	if l.next >= len(l.order) {
		l.mu.Unlock()
		return nil, io.EOF
	}
	end := min(l.next+l.batchSize, len(l.order))
	indices := l.order[l.next:end]
	l.next = end
	l.mu.Unlock()

	return l.assemble(indices)
}

// assemble reads the samples at the given dataset indices and stacks them
// into one flat batch. All samples must share the same shape.
func (l *Loader) assemble(indices []int) (*Batch, error) {
	var b *Batch
	for pos, idx := range indices {
		s, err := l.ds.Sample(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to read sample %d: %w", idx, err)
		}
		if b == nil {
			b = &Batch{
				N:        len(indices),
				Channels: s.Channels,
				Height:   s.Height,
				Width:    s.Width,
				Images:   make([]float32, len(indices)*s.Channels*s.Height*s.Width),
				Masks:    make([]int32, len(indices)*s.Height*s.Width),
			}
		}
		if s.Channels != b.Channels || s.Height != b.Height || s.Width != b.Width {
			return nil, fmt.Errorf("inconsistent sample shape at index %d: got %dx%dx%d, batch is %dx%dx%d",
				idx, s.Channels, s.Height, s.Width, b.Channels, b.Height, b.Width)
		}
		copy(b.Images[pos*len(s.Image):], s.Image)
		copy(b.Masks[pos*len(s.Mask):], s.Mask)
	}
	return b, nil
}

// Yield implements train.Dataset. It returns:
//
//   - spec: the Loader itself.
//   - inputs: one tensor, the stacked images shaped [batch, channels, height, width].
//   - labels: one tensor, the stacked masks shaped [batch, height, width] (Int32).
func (l *Loader) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	b, err := l.NextBatch()
	if err != nil {
		return nil, nil, nil, err
	}
	images, masks, err := b.Tensors()
	if err != nil {
		return nil, nil, nil, err
	}
	return l, []*tensors.Tensor{images}, []*tensors.Tensor{masks}, nil
}

// Batch stores a stacked batch in flat contiguous buffers: images in
// [N, Channels, Height, Width] order and masks in [N, Height, Width] order.
type Batch struct {
	Images []float32
	Masks  []int32

	N        int
	Channels int
	Height   int
	Width    int
}

// Tensors converts the batch into gomlx tensors: Float32 images shaped
// [N, Channels, Height, Width] and Int32 masks shaped [N, Height, Width].
func (b *Batch) Tensors() (images, masks *tensors.Tensor, err error) {
	if b.N == 0 {
		return nil, nil, fmt.Errorf("cannot convert an empty batch to tensors")
	}
	images = tensors.FromShape(shapes.Make(dtypes.Float32, b.N, b.Channels, b.Height, b.Width))
	images.MutableFlatData(func(flat any) {
		copy(flat.([]float32), b.Images)
	})
	masks = tensors.FromShape(shapes.Make(dtypes.Int32, b.N, b.Height, b.Width))
	masks.MutableFlatData(func(flat any) {
		copy(flat.([]int32), b.Masks)
	})
	return images, masks, nil
}
