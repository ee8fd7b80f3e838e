package datasets

import (
	"fmt"
	"strconv"
)

// memDataset is an in-memory Dataset for tests. Every sample is filled with
// deterministic values: channel c of sample i holds 10*(c+1), and the mask
// is filled with the sample index so tests can recover iteration order from
// batches.
type memDataset struct {
	n        int
	channels int
	height   int
	width    int

	// failAt, if non-negative, makes Sample return an error for that index.
	failAt int
}

func newMemDataset(n, channels, height, width int) *memDataset {
	return &memDataset{n: n, channels: channels, height: height, width: width, failAt: -1}
}

func (m *memDataset) Len() int { return m.n }

func (m *memDataset) Sample(i int) (*Sample, error) {
	if i < 0 || i >= m.n {
		return nil, fmt.Errorf("index %d out of range [0, %d)", i, m.n)
	}
	if i == m.failAt {
		return nil, fmt.Errorf("synthetic failure at index %d", i)
	}
	planeSize := m.height * m.width
	s := &Sample{
		ID:       strconv.Itoa(i),
		Channels: m.channels,
		Height:   m.height,
		Width:    m.width,
		Image:    make([]float32, m.channels*planeSize),
		Mask:     make([]int32, planeSize),
	}
	for c := 0; c < m.channels; c++ {
		for p := 0; p < planeSize; p++ {
			s.Image[c*planeSize+p] = float32(10 * (c + 1))
		}
	}
	for p := range s.Mask {
		s.Mask[p] = int32(i)
	}
	return s, nil
}
