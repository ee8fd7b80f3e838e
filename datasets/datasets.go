package datasets

// This package provides the data-loading side of the DeepGlobe Land Cover
// pipeline: an on-disk dataset that reads satellite tiles and their label
// masks, index-restricted subsets, a random train/validation/test split, and
// a batching Loader that stacks samples into gomlx tensors.
//
// The dataset uses lazy loading - it stores tile identifiers discovered at
// construction time and only decodes image and mask files when a sample is
// requested, minimizing memory usage for the large DeepGlobe rasters.
//
// Layout and intended usage:
//
// DeepGlobe
//   - Scans root/data/{training_data,test_data}/images for *_sat.jpg tiles
//   - Decodes images on-demand into flat channel-major float32 buffers with
//     raw intensities in [0,255]
//   - Decodes *_mask.png label rasters into per-pixel class indices using
//     the fixed seven-class DeepGlobe colormap
//
// Loader
//   - Groups samples into fixed-size batches, optionally shuffling order per
//     epoch and assembling batches on a pool of workers
//   - Implements gomlx's train.Dataset so it can drive gomlx training loops
//     and batching utilities directly

// Dataset is an ordered, indexable collection of samples. It is implemented
// by DeepGlobe and by Subset, and is what Loader and RandomSplit consume.
type Dataset interface {
	Len() int
	Sample(i int) (*Sample, error)
}
