package nvmesampler

import (
	"errors"
	"fmt"

	"github.com/RTBHOUSE/nvme-sampler/internal/dispatch"
	"github.com/RTBHOUSE/nvme-sampler/internal/pool"
)

// FailedOffset is the offset ReadBatch returns alongside an error.
const FailedOffset = -1

var (
	// ErrInvalidConfig matches every *ConfigError.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidBatchSize is returned by ReadBatch when n is not in
	// [1, MaxBatchElements]. No sampler state is changed.
	ErrInvalidBatchSize = dispatch.ErrInvalidBatchSize

	// ErrIO matches every *ReadError.
	ErrIO = dispatch.ErrIO

	// ErrShortRead is the cause of a ReadError when the dataset returned
	// fewer bytes than a row.
	ErrShortRead = pool.ErrShortRead

	// ErrClosed is returned by ReadBatch after Close.
	ErrClosed = dispatch.ErrClosed
)

// ReadError reports the first row of a batch that failed to read.
// errors.Is(err, ErrIO) holds and errors.Unwrap returns the cause.
type ReadError = dispatch.ReadError

// ConfigError describes a rejected configuration value.
//
// The underlying error (if any) can be accessed via errors.Unwrap.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
	cause  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s=%v: %s", ErrInvalidConfig, e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.cause }

// Is makes errors.Is(err, ErrInvalidConfig) true for any ConfigError.
func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }

func configError(field string, value any, reason string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Reason: reason}
}
