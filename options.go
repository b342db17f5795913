package nvmesampler

import (
	"github.com/RTBHOUSE/nvme-sampler/internal/fs"
	"github.com/RTBHOUSE/nvme-sampler/source"
)

type options struct {
	seed             uint32
	seedSet          bool
	buffer           []float32
	source           source.Source
	directIO         bool
	memoryMap        bool
	ioRateLimit      int64
	ioBurst          int64
	coverage         bool
	logger           *Logger
	metricsCollector MetricsCollector
	fileSystem       fs.FileSystem
}

// Option configures Open.
type Option func(*options)

// WithSeed fixes the seed of the row index generator. Without it a random
// seed is chosen; Seed reports it.
func WithSeed(seed uint32) Option {
	return func(o *options) {
		o.seed = seed
		o.seedSet = true
	}
}

// WithBuffer makes the sampler read into buf instead of allocating its own
// ring. buf must hold at least BufferElements(cfg) elements and must outlive
// the sampler. The sampler never frees it.
func WithBuffer(buf []float32) Option {
	return func(o *options) {
		o.buffer = buf
	}
}

// WithSource reads rows from src instead of opening Config.Path.
// The caller keeps ownership of src and closes it after the sampler.
func WithSource(src source.Source) Option {
	return func(o *options) {
		o.source = src
	}
}

// WithDirectIO opens the dataset with O_DIRECT so reads bypass the page
// cache. It falls back to buffered reads where unsupported.
func WithDirectIO(enabled bool) Option {
	return func(o *options) {
		o.directIO = enabled
	}
}

// WithMemoryMap maps Config.Path read-only instead of issuing positioned
// reads. Rows already in the page cache are then copied without a syscall.
// It cannot be combined with WithDirectIO.
func WithMemoryMap(enabled bool) Option {
	return func(o *options) {
		o.memoryMap = enabled
	}
}

// WithIORateLimit throttles reads to bytesPerSec across all workers.
// A value <= 0 disables throttling.
func WithIORateLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioRateLimit = bytesPerSec
	}
}

// WithIOBurst sets the rate limiter burst in bytes. It defaults to one
// second worth of the rate limit.
func WithIOBurst(bytes int64) Option {
	return func(o *options) {
		o.ioBurst = bytes
	}
}

// WithCoverageTracking records every drawn row in a compressed bitmap so
// Stats can report the number of distinct rows sampled.
func WithCoverageTracking() Option {
	return func(o *options) {
		o.coverage = true
	}
}

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics collector.
// If nil is passed, NoopMetricsCollector is used.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithFileSystem opens Config.Path through fsys. It exists for fault
// injection in tests.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fileSystem = fsys
	}
}
