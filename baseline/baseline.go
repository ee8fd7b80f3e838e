// Package baseline implements a per-pixel softmax classifier over raw RGB
// values. It is deliberately simple: a linear model trained with mini-batch
// SGD, no external deep-learning dependencies, so it runs quickly and
// deterministically in tests and serves as a sanity-check baseline for the
// land cover pipeline.
package baseline

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/Noofbiz/landcover/datasets"
)

// Config holds configurable hyperparameters for the baseline classifier.
type Config struct {
	// LearningRate for SGD updates (default if 0 will be set by NewModel to 0.1).
	LearningRate float64

	// Epochs to train for (default if 0 will be set by NewModel to 5).
	Epochs int

	// PixelsPerImage is how many pixels are sampled from each image per
	// training step (default if 0 will be set by NewModel to 256).
	PixelsPerImage int

	// Seed controls RNG for pixel sampling. If zero, a time-based seed is used.
	Seed int64
}

// Model is a linear softmax classifier from an RGB pixel to a land cover
// class. Weights are laid out as [class][r, g, b, bias].
type Model struct {
	// Config used for training.
	Config Config

	numClasses int
	weights    [][]float32
	rng        *rand.Rand
}

// NewModel creates a zero-initialized classifier over numClasses classes.
func NewModel(cfg Config, numClasses int) (*Model, error) {
	if numClasses < 2 {
		return nil, errors.New("need at least two classes")
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 0.1
	}
	if cfg.Epochs == 0 {
		cfg.Epochs = 5
	}
	if cfg.PixelsPerImage == 0 {
		cfg.PixelsPerImage = 256
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	m := &Model{
		Config:     cfg,
		numClasses: numClasses,
		weights:    make([][]float32, numClasses),
		rng:        rand.New(rand.NewSource(cfg.Seed)),
	}
	for c := range m.weights {
		m.weights[c] = make([]float32, 4)
	}
	return m, nil
}

// logits computes the raw class scores for one pixel.
func (m *Model) logits(r, g, b float32) []float32 {
	out := make([]float32, m.numClasses)
	for c, w := range m.weights {
		out[c] = w[0]*r + w[1]*g + w[2]*b + w[3]
	}
	return out
}

// softmax converts logits to probabilities in place.
func softmax(logits []float32) []float32 {
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}
	sum := float32(0)
	for i, v := range logits {
		e := float32(math.Exp(float64(v - maxLogit)))
		logits[i] = e
		sum += e
	}
	for i := range logits {
		logits[i] /= sum
	}
	return logits
}

// PredictPixel returns the most likely class for one RGB pixel.
func (m *Model) PredictPixel(r, g, b float32) int {
	logits := m.logits(r, g, b)
	best := 0
	for c, v := range logits {
		if v > logits[best] {
			best = c
		}
	}
	return best
}

// Train runs mini-batch SGD over the loader for the configured number of
// epochs, sampling PixelsPerImage pixels from every image of every batch.
// The loader is Reset at the start of each epoch.
func (m *Model) Train(loader *datasets.Loader) error {
	if loader == nil {
		return errors.New("loader is nil")
	}
	lr := float32(m.Config.LearningRate)

	for ep := 0; ep < m.Config.Epochs; ep++ {
		loader.Reset()
		for {
			b, err := loader.NextBatch()
			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("failed to read batch: %w", err)
			}
			if err := m.step(b, lr); err != nil {
				return err
			}
		}
	}
	return nil
}

// step applies one SGD update per sampled pixel of the batch.
func (m *Model) step(b *datasets.Batch, lr float32) error {
	if b.Channels < 3 {
		return fmt.Errorf("baseline needs 3 image channels, batch has %d", b.Channels)
	}
	planeSize := b.Height * b.Width
	imageSize := b.Channels * planeSize

	for n := 0; n < b.N; n++ {
		img := b.Images[n*imageSize : (n+1)*imageSize]
		mask := b.Masks[n*planeSize : (n+1)*planeSize]

		for k := 0; k < m.Config.PixelsPerImage; k++ {
			p := m.rng.Intn(planeSize)
			r, g, bl := img[p], img[planeSize+p], img[2*planeSize+p]
			class := int(mask[p])
			if class < 0 || class >= m.numClasses {
				continue
			}

			probs := softmax(m.logits(r, g, bl))
			for c := 0; c < m.numClasses; c++ {
				grad := probs[c]
				if c == class {
					grad -= 1
				}
				w := m.weights[c]
				w[0] -= lr * grad * r
				w[1] -= lr * grad * g
				w[2] -= lr * grad * bl
				w[3] -= lr * grad
			}
		}
	}
	return nil
}

// Evaluate computes pixel accuracy over one full pass of the loader.
func (m *Model) Evaluate(loader *datasets.Loader) (float64, error) {
	if loader == nil {
		return 0, errors.New("loader is nil")
	}
	loader.Reset()

	var correct, total int64
	for {
		b, err := loader.NextBatch()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read batch: %w", err)
		}
		if b.Channels < 3 {
			return 0, fmt.Errorf("baseline needs 3 image channels, batch has %d", b.Channels)
		}
		planeSize := b.Height * b.Width
		imageSize := b.Channels * planeSize
		for n := 0; n < b.N; n++ {
			img := b.Images[n*imageSize : (n+1)*imageSize]
			mask := b.Masks[n*planeSize : (n+1)*planeSize]
			for p := 0; p < planeSize; p++ {
				pred := m.PredictPixel(img[p], img[planeSize+p], img[2*planeSize+p])
				if int32(pred) == mask[p] {
					correct++
				}
				total++
			}
		}
	}
	if total == 0 {
		return 0, errors.New("no pixels evaluated")
	}
	return float64(correct) / float64(total), nil
}
