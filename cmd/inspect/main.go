// Command inspect loads the DeepGlobe Land Cover dataset through the
// datamodule, reports class and channel statistics, renders them as charts
// and optionally trains the per-pixel baseline classifier as a sanity check.
//
// Usage:
//
//	inspect -root assets/deepglobe -out output
//	inspect -root assets/deepglobe -baseline -epochs 3
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Noofbiz/landcover/baseline"
	"github.com/Noofbiz/landcover/datamodule"
	"github.com/Noofbiz/landcover/datasets"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	flagRoot      = flag.String("root", "assets/deepglobe", "dataset root directory (parent of data/)")
	flagOut       = flag.String("out", "output", "directory for generated charts and CSVs")
	flagBatchSize = flag.Int("batch-size", 64, "batch size for all loaders")
	flagWorkers   = flag.Int("workers", 0, "batch-assembly workers per loader")
	flagValPct    = flag.Float64("val-pct", 0.2, "fraction of the train split held out for validation")
	flagSeed      = flag.Int64("seed", 0, "random seed for split and shuffling (0 = time-seeded)")
	flagBaseline  = flag.Bool("baseline", false, "train and evaluate the per-pixel baseline classifier")
	flagEpochs    = flag.Int("epochs", 5, "baseline training epochs")
	flagPixels    = flag.Int("pixels", 256, "pixels sampled per image per baseline step")
	flagLearnRate = flag.Float64("lr", 0.1, "baseline learning rate")
)

func main() {
	flag.Parse()

	dm := datamodule.New(*flagRoot).
		WithBatchSize(*flagBatchSize).
		WithNumWorkers(*flagWorkers).
		WithValSplit(*flagValPct).
		WithSeed(*flagSeed)
	if err := dm.Setup(); err != nil {
		log.Fatalf("failed to set up datamodule: %v", err)
	}
	fmt.Printf("train: %d samples, val: %d samples, test: %d samples\n",
		dm.TrainDataset().Len(), dm.ValDataset().Len(), dm.TestDataset().Len())

	if err := os.MkdirAll(*flagOut, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	stats, err := datasets.ComputeStats(dm.TrainDataset(), true)
	if err != nil {
		log.Fatalf("failed to compute dataset statistics: %v", err)
	}
	printStats(stats)

	if err := writeStatsCSV(filepath.Join(*flagOut, "stats.csv"), stats); err != nil {
		log.Fatalf("failed to write stats CSV: %v", err)
	}
	if err := saveBarChart("Class distribution (pixel fraction)",
		filepath.Join(*flagOut, "class_distribution.png"),
		classLabels(len(stats.ClassFraction)), stats.ClassFraction); err != nil {
		log.Fatalf("failed to plot class distribution: %v", err)
	}
	if err := saveBarChart("Per-channel mean intensity",
		filepath.Join(*flagOut, "channel_means.png"),
		channelLabels(len(stats.ChannelMean)), stats.ChannelMean); err != nil {
		log.Fatalf("failed to plot channel means: %v", err)
	}
	fmt.Printf("charts and CSV written to %s\n", *flagOut)

	if *flagBaseline {
		runBaseline(dm)
	}
}

func printStats(stats *datasets.Stats) {
	fmt.Printf("scanned %d samples\n", stats.Samples)
	for c, frac := range stats.ClassFraction {
		fmt.Printf("  %-18s %6.2f%% (%d pixels)\n", className(c), 100*frac, stats.ClassPixels[c])
	}
	for c := range stats.ChannelMean {
		fmt.Printf("  channel %d: mean %.4f stddev %.4f\n", c, stats.ChannelMean[c], stats.ChannelStd[c])
	}
}

func runBaseline(dm *datamodule.DataModule) {
	model, err := baseline.NewModel(baseline.Config{
		LearningRate:   *flagLearnRate,
		Epochs:         *flagEpochs,
		PixelsPerImage: *flagPixels,
		Seed:           *flagSeed,
	}, datasets.NumClasses)
	if err != nil {
		log.Fatalf("failed to create baseline model: %v", err)
	}

	trainLoader, err := dm.TrainLoader()
	if err != nil {
		log.Fatalf("failed to build train loader: %v", err)
	}
	fmt.Printf("training baseline for %d epochs...\n", *flagEpochs)
	if err := model.Train(trainLoader); err != nil {
		log.Fatalf("baseline training failed: %v", err)
	}

	valLoader, err := dm.ValLoader()
	if err != nil {
		log.Fatalf("failed to build val loader: %v", err)
	}
	valAcc, err := model.Evaluate(valLoader)
	if err != nil {
		log.Fatalf("baseline validation failed: %v", err)
	}

	testLoader, err := dm.TestLoader()
	if err != nil {
		log.Fatalf("failed to build test loader: %v", err)
	}
	testAcc, err := model.Evaluate(testLoader)
	if err != nil {
		log.Fatalf("baseline test evaluation failed: %v", err)
	}
	fmt.Printf("baseline pixel accuracy: val %.4f, test %.4f\n", valAcc, testAcc)
}

// className returns the DeepGlobe class name for index c, or a numbered
// placeholder when statistics report more classes than the colormap knows.
func className(c int) string {
	if c < len(datasets.Classes) {
		return datasets.Classes[c]
	}
	return "class_" + strconv.Itoa(c)
}

func channelLabels(n int) []string {
	names := []string{"R", "G", "B"}
	labels := make([]string, n)
	for c := range labels {
		if c < len(names) {
			labels[c] = names[c]
		} else {
			labels[c] = "ch" + strconv.Itoa(c)
		}
	}
	return labels
}

func classLabels(n int) []string {
	labels := make([]string, n)
	for c := range labels {
		labels[c] = className(c)
	}
	return labels
}

func writeStatsCSV(path string, stats *datasets.Stats) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"class", "pixels", "fraction"}); err != nil {
		return err
	}
	for c, count := range stats.ClassPixels {
		record := []string{
			className(c),
			strconv.FormatInt(count, 10),
			strconv.FormatFloat(stats.ClassFraction[c], 'f', 6, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func saveBarChart(title, path string, labels []string, values []float64) error {
	p := plot.New()
	p.Title.Text = title
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(25))
	if err != nil {
		return err
	}
	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = 0.5

	return p.Save(7*vg.Inch, 4*vg.Inch, path)
}
