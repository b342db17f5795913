// Package nvmesampler delivers randomized, fixed-size row batches sampled
// uniformly with replacement from a very large binary dataset on fast block
// storage, without materializing the dataset in memory.
//
// A dataset is a flat, headerless file of NumRows rows of RowSize bytes each,
// where rows are sequences of 4-byte elements (typically float32).
//
// # Quick Start
//
//	cfg := nvmesampler.Config{
//	    Path:             "/nvme/train.bin",
//	    NumRows:          100_000_000,
//	    RowSize:          1024,
//	    MaxBatchElements: 16384,
//	}
//	s, err := nvmesampler.Open(ctx, cfg, nvmesampler.WithSeed(42))
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	off, err := s.ReadBatch(ctx, 512)
//	if err != nil {
//	    return err
//	}
//	rows := s.Rows(off, 512) // valid until the next ReadBatch
//
// # Buffer Ownership
//
// The sampler reads into a ring of row-sized slots. By default it allocates
// that ring off-heap and frees it on Close. A caller that needs the samples
// in its own memory (for example a pinned tensor) sizes a buffer with
// BufferElements, or allocates one with NewBuffer, and passes it with
// WithBuffer. The sampler never frees a borrowed buffer.
//
// A batch returned by ReadBatch is one contiguous region of the buffer. It
// stays untouched until the next call to ReadBatch; after that the slots may
// be overwritten by prefetch.
//
// # Concurrency
//
// MaxNumThreads I/O goroutines keep the whole ring in flight ahead of the
// consumer. ReadBatch must be called from a single goroutine at a time.
//
// # Reproducibility
//
// Row indices are drawn in ring order from one generator seeded with
// WithSeed, so a fixed seed yields the same row sequence for any worker count.
//
// # Remote Datasets
//
// Any source.Source can stand in for the local file:
//
//	src, _ := s3.Open(ctx, client, "bucket", "train.bin")
//	s, _ := nvmesampler.Open(ctx, cfg, nvmesampler.WithSource(src))
package nvmesampler
