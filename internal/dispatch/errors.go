package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidBatchSize is returned when a batch size is not in [1, max batch].
	ErrInvalidBatchSize = errors.New("invalid batch size")

	// ErrIO matches every *ReadError.
	ErrIO = errors.New("i/o error")

	// ErrClosed is returned by operations on a closed dispatcher.
	ErrClosed = errors.New("sampler closed")
)

// ReadError reports the first failed read of a batch.
type ReadError struct {
	Slot   int   // ring slot that failed
	Row    int64 // dataset row that was being read
	Offset int64 // byte offset of the row in the dataset
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: row %d (slot %d, offset %d): %v", ErrIO, e.Row, e.Slot, e.Offset, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrIO) true for any ReadError.
func (e *ReadError) Is(target error) bool { return target == ErrIO }
