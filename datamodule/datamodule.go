// Package datamodule wires the DeepGlobe Land Cover dataset into the
// standard training lifecycle: split selection, train/validation
// partitioning, normalization and loader construction.
package datamodule

import (
	"fmt"
	"log"
	"math/rand"

	"github.com/Noofbiz/landcover/datasets"
)

// Defaults applied by New.
const (
	DefaultBatchSize  = 64
	DefaultNumWorkers = 0
	DefaultValSplit   = 0.2
)

// DataModule owns the three logical subsets of the DeepGlobe data (train,
// validation, test) and builds configured batch loaders over them.
//
// Configure it with the With* methods, call Setup once, then request
// loaders. Each loader accessor builds a fresh Loader over the
// already-materialized subset, so iteration state is never shared between
// callers.
type DataModule struct {
	root        string
	batchSize   int
	numWorkers  int
	valSplitPct float64
	seed        int64

	trainData datasets.Dataset
	valData   datasets.Dataset
	testData  datasets.Dataset
}

// New creates a DataModule over the DeepGlobe data rooted at root, with a
// batch size of 64, no loader workers and a validation split of 0.2.
// Configuration is only validated when Setup runs.
func New(root string) *DataModule {
	return &DataModule{
		root:        root,
		batchSize:   DefaultBatchSize,
		numWorkers:  DefaultNumWorkers,
		valSplitPct: DefaultValSplit,
	}
}

// WithBatchSize sets the batch size used by all loaders.
//
// Returns itself, to allow chain of method calls.
func (dm *DataModule) WithBatchSize(n int) *DataModule {
	dm.batchSize = n
	return dm
}

// WithNumWorkers sets the number of batch-assembly workers used by all
// loaders. Zero means batches are assembled synchronously.
//
// Returns itself, to allow chain of method calls.
func (dm *DataModule) WithNumWorkers(n int) *DataModule {
	dm.numWorkers = n
	return dm
}

// WithValSplit sets the fraction of the train split held out for
// validation. Zero disables the hold-out entirely: train and validation
// then share the same full train-split dataset.
//
// Returns itself, to allow chain of method calls.
func (dm *DataModule) WithValSplit(pct float64) *DataModule {
	dm.valSplitPct = pct
	return dm
}

// WithSeed fixes the random seed used for the validation split and for
// train-loader shuffling, making both reproducible. Zero (the default)
// keeps them time-seeded.
//
// Returns itself, to allow chain of method calls.
func (dm *DataModule) WithSeed(seed int64) *DataModule {
	dm.seed = seed
	return dm
}

var scale255 = datasets.ScaleImage(255)

// Preprocess maps the raw [0,255] image intensities of a sample to [0,1] by
// dividing every element by 255. The mask is left untouched.
func (dm *DataModule) Preprocess(s *datasets.Sample) error {
	return scale255(s)
}

// newRNG returns a seeded generator when a seed was configured, nil
// otherwise (callers treat nil as time-seeded).
func (dm *DataModule) newRNG(offset int64) *rand.Rand {
	if dm.seed == 0 {
		return nil
	}
	return rand.New(rand.NewSource(dm.seed + offset))
}

// Setup materializes the train, validation and test subsets. With a
// positive validation fraction the train split is randomly partitioned into
// disjoint train and validation subsets; with a zero fraction both refer to
// the same full train-split dataset, which means validation metrics are
// measured on training data (a warning is logged). The test subset is an
// independently constructed dataset over the "test" split.
//
// Calling Setup again rebuilds all three subsets from scratch; subsets
// obtained earlier remain usable but are no longer the ones the DataModule
// serves.
func (dm *DataModule) Setup() error {
	transform := datasets.Compose(dm.Preprocess)

	full, err := datasets.NewDeepGlobe(dm.root, datasets.SplitTrain, transform)
	if err != nil {
		return fmt.Errorf("failed to load train split: %w", err)
	}

	if dm.valSplitPct > 0 {
		trainSub, valSub, _, err := datasets.RandomSplit(full, dm.valSplitPct, 0, dm.newRNG(0))
		if err != nil {
			return fmt.Errorf("failed to partition train/validation: %w", err)
		}
		dm.trainData, dm.valData = trainSub, valSub
	} else {
		log.Printf("datamodule: validation split is 0, validation metrics will be computed on training data")
		dm.trainData, dm.valData = full, full
	}

	test, err := datasets.NewDeepGlobe(dm.root, datasets.SplitTest, transform)
	if err != nil {
		return fmt.Errorf("failed to load test split: %w", err)
	}
	dm.testData = test
	return nil
}

// TrainDataset returns the materialized train subset. Nil before Setup.
func (dm *DataModule) TrainDataset() datasets.Dataset { return dm.trainData }

// ValDataset returns the materialized validation subset. Nil before Setup.
func (dm *DataModule) ValDataset() datasets.Dataset { return dm.valData }

// TestDataset returns the materialized test dataset. Nil before Setup.
func (dm *DataModule) TestDataset() datasets.Dataset { return dm.testData }

// TrainLoader builds a fresh shuffling loader over the train subset.
func (dm *DataModule) TrainLoader() (*datasets.Loader, error) {
	if dm.trainData == nil {
		return nil, fmt.Errorf("Setup must be called before TrainLoader")
	}
	return datasets.NewLoader("train", dm.trainData, dm.batchSize).
		WithWorkers(dm.numWorkers).
		WithShuffle(dm.newRNG(1)), nil
}

// ValLoader builds a fresh non-shuffling loader over the validation subset.
func (dm *DataModule) ValLoader() (*datasets.Loader, error) {
	if dm.valData == nil {
		return nil, fmt.Errorf("Setup must be called before ValLoader")
	}
	return datasets.NewLoader("val", dm.valData, dm.batchSize).
		WithWorkers(dm.numWorkers), nil
}

// TestLoader builds a fresh non-shuffling loader over the test dataset.
func (dm *DataModule) TestLoader() (*datasets.Loader, error) {
	if dm.testData == nil {
		return nil, fmt.Errorf("Setup must be called before TestLoader")
	}
	return datasets.NewLoader("test", dm.testData, dm.batchSize).
		WithWorkers(dm.numWorkers), nil
}
