package datasets

import "fmt"

// Subset is an index-restricted view over a Dataset. It implements Dataset
// itself, so subsets can be split or loaded like any other dataset.
type Subset struct {
	ds      Dataset
	indices []int
}

// NewSubset creates a view over ds restricted to the given indices. Every
// index must be valid for ds.
func NewSubset(ds Dataset, indices []int) (*Subset, error) {
	n := ds.Len()
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return nil, fmt.Errorf("subset index %d out of range [0, %d)", idx, n)
		}
	}
	return &Subset{ds: ds, indices: indices}, nil
}

// Len returns the number of samples in the subset.
func (s *Subset) Len() int {
	return len(s.indices)
}

// Sample returns the sample at position i of the subset, reading it from the
// underlying dataset.
func (s *Subset) Sample(i int) (*Sample, error) {
	if i < 0 || i >= len(s.indices) {
		return nil, fmt.Errorf("index %d out of range [0, %d)", i, len(s.indices))
	}
	return s.ds.Sample(s.indices[i])
}

// Indices returns the underlying dataset indices this subset selects, in
// subset order.
func (s *Subset) Indices() []int {
	return s.indices
}
