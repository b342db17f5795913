// Package source provides the positioned-read backends a sampler reads rows
// from.
//
// A Source is an immutable, fixed-size byte range. Implementations must be
// safe for concurrent ReadAt calls from many goroutines.
//
// # Built-in Implementations
//
//   - File: local file opened read-only, with random-access kernel hints and
//     optional O_DIRECT reads that bypass the page cache
//   - Mmap: local file mapped read-only into memory
//   - Memory: in-memory bytes, for tests and small datasets
//   - s3.Source: Amazon S3 object read with ranged GETs
//   - minio.Source: MinIO or any S3-compatible object read with ranged GETs
//
// # Custom Implementations
//
//	type Source interface {
//	    ReadAt(ctx context.Context, p []byte, off int64) (int, error)
//	    Size() int64
//	    Close() error
//	}
//
// ReadAt follows io.ReaderAt semantics: when it returns n < len(p) it also
// returns a non-nil error.
package source
