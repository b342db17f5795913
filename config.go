package nvmesampler

import (
	"math"

	"github.com/RTBHOUSE/nvme-sampler/internal/mem"
	"github.com/RTBHOUSE/nvme-sampler/internal/pool"
)

const (
	// DefaultMaxNumThreads is the number of I/O goroutines when unset.
	DefaultMaxNumThreads = 8

	// MaxNumThreads is the largest accepted MaxNumThreads.
	MaxNumThreads = pool.MaxWorkers

	// DefaultMemoryUsageLimit is the ring budget when unset (8 GiB).
	DefaultMemoryUsageLimit int64 = 8 << 30

	// SlotOverhead is the bookkeeping each ring slot costs on top of its row:
	// one state byte and the 8-byte row index.
	SlotOverhead = 9
)

// Config describes a dataset and the sampler's resource budget.
type Config struct {
	// Path is the dataset file. It is ignored when WithSource is given.
	Path string

	// NumRows is the number of rows in the dataset.
	NumRows int64

	// RowSize is the row size in bytes. It must be a multiple of 4.
	RowSize int

	// MaxBatchElements is the largest batch ReadBatch accepts, in rows.
	MaxBatchElements int

	// MaxNumThreads is the number of I/O goroutines, 1..64. Defaults to 8.
	MaxNumThreads int

	// MemoryUsageLimit bounds the ring buffer and its per-slot bookkeeping
	// in bytes. Defaults to 8 GiB.
	MemoryUsageLimit int64
}

func (c Config) withDefaults() Config {
	if c.MaxNumThreads == 0 {
		c.MaxNumThreads = DefaultMaxNumThreads
	}
	if c.MemoryUsageLimit == 0 {
		c.MemoryUsageLimit = DefaultMemoryUsageLimit
	}
	return c
}

// Validate checks every field after defaults are applied, including that the
// memory budget holds at least one maximum-size batch.
func (c Config) Validate() error {
	c = c.withDefaults()

	switch {
	case c.NumRows <= 0:
		return configError("NumRows", c.NumRows, "must be positive")
	case c.RowSize <= 0:
		return configError("RowSize", c.RowSize, "must be positive")
	case c.RowSize%4 != 0:
		return configError("RowSize", c.RowSize, "must be a multiple of 4 bytes")
	case c.MaxBatchElements <= 0:
		return configError("MaxBatchElements", c.MaxBatchElements, "must be positive")
	case c.MaxNumThreads < 1 || c.MaxNumThreads > MaxNumThreads:
		return configError("MaxNumThreads", c.MaxNumThreads, "must be between 1 and 64")
	case c.MemoryUsageLimit <= 0:
		return configError("MemoryUsageLimit", c.MemoryUsageLimit, "must be positive")
	case c.NumRows > math.MaxInt64/int64(c.RowSize):
		return configError("NumRows", c.NumRows, "dataset size overflows int64")
	}

	_, err := c.capacity()
	return err
}

// capacity is the ring size in slots: as many rows plus their bookkeeping
// as fit in the budget, rounded down to a multiple of MaxBatchElements.
func (c Config) capacity() (int, error) {
	rows := c.MemoryUsageLimit / int64(c.RowSize+SlotOverhead)
	rows -= rows % int64(c.MaxBatchElements)
	if rows < int64(c.MaxBatchElements) {
		return 0, configError("MemoryUsageLimit", c.MemoryUsageLimit,
			"must hold at least MaxBatchElements rows")
	}
	if rows > math.MaxInt32 {
		rows = math.MaxInt32 - math.MaxInt32%int64(c.MaxBatchElements)
	}
	return int(rows), nil
}

// ringBytes is the part of the budget a ring of capacity slots uses.
func (c Config) ringBytes(capacity int) int64 {
	return int64(capacity) * int64(c.RowSize+SlotOverhead)
}

// DatasetSize returns the minimum dataset size in bytes.
func (c Config) DatasetSize() int64 { return c.NumRows * int64(c.RowSize) }

// Capacity returns the number of ring slots a sampler opened with cfg uses.
func Capacity(cfg Config) (int, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	return cfg.withDefaults().capacity()
}

// BufferElements returns the number of 4-byte elements a buffer passed with
// WithBuffer must hold.
func BufferElements(cfg Config) (int, error) {
	capacity, err := Capacity(cfg)
	if err != nil {
		return 0, err
	}
	return capacity * (cfg.RowSize / 4), nil
}

// NewBuffer allocates a page-aligned heap buffer of BufferElements(cfg)
// elements for use with WithBuffer.
func NewBuffer(cfg Config) ([]float32, error) {
	n, err := BufferElements(cfg)
	if err != nil {
		return nil, err
	}
	return mem.AllocAlignedFloat32(n, mem.PageSize), nil
}
