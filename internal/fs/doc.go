// Package fs provides filesystem abstractions for testability and fault injection.
//
// The package defines two key interfaces:
//
//   - [File]: an open, read-only dataset file supporting positioned reads
//   - [FileSystem]: abstracts opening and stat-ing files
//
// # Implementations
//
//   - [LocalFS]: Production implementation using standard os package
//   - [FaultyFS]: Test utility for fault injection (failing or short reads,
//     failing close)
//
// # Usage
//
// Production code should use fs.Default (which is [LocalFS]):
//
//	file, err := fs.Default.OpenFile(path, os.O_RDONLY, 0)
//
// Tests can inject [FaultyFS] to simulate device failures:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("dataset.bin", fs.Fault{FailAfterReads: 100})
//	// inject ffs into the sampler under test
//
// # Design Notes
//
// This package intentionally does NOT include context.Context parameters.
// Positioned reads against local NVMe are non-interruptible at the syscall
// level; cancellation is handled by the worker pool between reads.
package fs
