package datasets

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RandomSplit partitions ds into disjoint train, validation and test subsets.
// The validation and test subsets take round(valPct*len) and
// round(testPct*len) samples respectively; the remainder goes to train.
// Fractions must lie in [0,1) and sum to less than 1. If rng is nil a
// time-seeded generator is used, so the partition is random across runs;
// pass a seeded generator for a reproducible split.
func RandomSplit(ds Dataset, valPct, testPct float64, rng *rand.Rand) (train, val, test *Subset, err error) {
	if valPct < 0 || valPct >= 1 {
		return nil, nil, nil, fmt.Errorf("validation fraction %v out of range [0, 1)", valPct)
	}
	if testPct < 0 || testPct >= 1 {
		return nil, nil, nil, fmt.Errorf("test fraction %v out of range [0, 1)", testPct)
	}
	if valPct+testPct >= 1 {
		return nil, nil, nil, fmt.Errorf("validation and test fractions sum to %v, must be below 1", valPct+testPct)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	n := ds.Len()
	nVal := int(math.Round(valPct * float64(n)))
	nTest := int(math.Round(testPct * float64(n)))
	nTrain := n - nVal - nTest

	perm := rng.Perm(n)
	if train, err = NewSubset(ds, perm[:nTrain]); err != nil {
		return nil, nil, nil, err
	}
	if val, err = NewSubset(ds, perm[nTrain:nTrain+nVal]); err != nil {
		return nil, nil, nil, err
	}
	if test, err = NewSubset(ds, perm[nTrain+nVal:]); err != nil {
		return nil, nil, nil, err
	}
	return train, val, test, nil
}
