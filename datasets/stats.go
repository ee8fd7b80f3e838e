package datasets

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes a dataset: how many pixels each land cover class covers
// and how the image channels are distributed. Channel statistics are
// computed over per-sample channel means, so each tile contributes equally
// regardless of its size.
type Stats struct {
	// Samples is the number of samples scanned.
	Samples int

	// ClassPixels[c] is the total number of pixels labeled with class c.
	ClassPixels []int64

	// ClassFraction[c] is ClassPixels[c] divided by the total pixel count.
	ClassFraction []float64

	// ChannelMean and ChannelStd are the mean and standard deviation of the
	// per-sample channel means, one entry per image channel.
	ChannelMean []float64
	ChannelStd  []float64
}

// ComputeStats scans every sample of ds and accumulates class and channel
// statistics. If verbose is set a progress bar is written to stderr while
// scanning.
func ComputeStats(ds Dataset, verbose bool) (*Stats, error) {
	n := ds.Len()
	if n == 0 {
		return nil, fmt.Errorf("cannot compute statistics of an empty dataset")
	}

	var pBar *progressbar.ProgressBar
	if verbose {
		pBar = progressbar.Default(int64(n), "scanning")
	}

	var perSample [][]float64 // [channel][sample] means
	var classPixels []int64
	var totalPixels int64

	for i := 0; i < n; i++ {
		s, err := ds.Sample(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read sample %d: %w", i, err)
		}

		if perSample == nil {
			perSample = make([][]float64, s.Channels)
			for c := range perSample {
				perSample[c] = make([]float64, 0, n)
			}
		}
		if s.Channels != len(perSample) {
			return nil, fmt.Errorf("sample %d has %d channels, expected %d", i, s.Channels, len(perSample))
		}

		planeSize := s.Height * s.Width
		for c := 0; c < s.Channels; c++ {
			sum := 0.0
			for _, v := range s.Image[c*planeSize : (c+1)*planeSize] {
				sum += float64(v)
			}
			perSample[c] = append(perSample[c], sum/float64(planeSize))
		}

		for _, class := range s.Mask {
			for int(class) >= len(classPixels) {
				classPixels = append(classPixels, 0)
			}
			classPixels[class]++
		}
		totalPixels += int64(len(s.Mask))

		if pBar != nil {
			_ = pBar.Add(1)
		}
	}
	if pBar != nil {
		_ = pBar.Close()
	}

	stats := &Stats{
		Samples:       n,
		ClassPixels:   classPixels,
		ClassFraction: make([]float64, len(classPixels)),
		ChannelMean:   make([]float64, len(perSample)),
		ChannelStd:    make([]float64, len(perSample)),
	}
	for c, count := range classPixels {
		stats.ClassFraction[c] = float64(count) / float64(totalPixels)
	}
	for c, means := range perSample {
		stats.ChannelMean[c], stats.ChannelStd[c] = stat.MeanStdDev(means, nil)
	}
	return stats, nil
}
