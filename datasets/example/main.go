package main

// Example command that demonstrates wiring the DeepGlobe datamodule end to
// end: configure, set up, pull one batch from each loader and convert it to
// gomlx tensors.
//
// Usage:
//   go run ./example -root ../../assets/deepglobe
//
// Note: this example expects the DeepGlobe data to exist under the given
// root (data/training_data and data/test_data). If the files are missing
// the example will print an error and exit.

import (
	"flag"
	"fmt"
	"log"

	"github.com/Noofbiz/landcover/datamodule"
)

func main() {
	root := flag.String("root", "../../assets/deepglobe", "dataset root directory")
	flag.Parse()

	dm := datamodule.New(*root).
		WithBatchSize(8).
		WithValSplit(0.2)
	if err := dm.Setup(); err != nil {
		log.Fatalf("failed to set up datamodule: %v", err)
	}

	fmt.Printf("train subset: %d samples\n", dm.TrainDataset().Len())
	fmt.Printf("val subset:   %d samples\n", dm.ValDataset().Len())
	fmt.Printf("test split:   %d samples\n", dm.TestDataset().Len())

	loader, err := dm.TrainLoader()
	if err != nil {
		log.Fatalf("failed to build train loader: %v", err)
	}

	batch, err := loader.NextBatch()
	if err != nil {
		log.Fatalf("failed to read first batch: %v", err)
	}
	fmt.Printf("first batch: %d samples of %dx%dx%d\n",
		batch.N, batch.Channels, batch.Height, batch.Width)

	images, masks, err := batch.Tensors()
	if err != nil {
		log.Fatalf("failed to convert batch to tensors: %v", err)
	}
	fmt.Printf("image tensor: %s\n", images.Shape())
	fmt.Printf("mask tensor:  %s\n", masks.Shape())
}
