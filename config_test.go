package nvmesampler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RTBHOUSE/nvme-sampler/internal/mem"
)

func validConfig() Config {
	return Config{
		Path:             "/dev/null",
		NumRows:          100_000,
		RowSize:          1016,
		MaxBatchElements: 128,
		MaxNumThreads:    8,
		MemoryUsageLimit: 2 << 24,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"valid", func(*Config) {}, ""},
		{"defaults", func(c *Config) { c.MaxNumThreads = 0; c.MemoryUsageLimit = 0 }, ""},
		{"zero rows", func(c *Config) { c.NumRows = 0 }, "NumRows"},
		{"negative rows", func(c *Config) { c.NumRows = -5 }, "NumRows"},
		{"zero row size", func(c *Config) { c.RowSize = 0 }, "RowSize"},
		{"misaligned row size", func(c *Config) { c.RowSize = 1018 }, "RowSize"},
		{"zero batch", func(c *Config) { c.MaxBatchElements = 0 }, "MaxBatchElements"},
		{"too many threads", func(c *Config) { c.MaxNumThreads = 65 }, "MaxNumThreads"},
		{"negative threads", func(c *Config) { c.MaxNumThreads = -1 }, "MaxNumThreads"},
		{"max threads", func(c *Config) { c.MaxNumThreads = 64 }, ""},
		{"negative limit", func(c *Config) { c.MemoryUsageLimit = -1 }, "MemoryUsageLimit"},
		{"limit below one batch", func(c *Config) { c.MemoryUsageLimit = 127 * 1016 }, "MemoryUsageLimit"},
		{"limit exactly one batch", func(c *Config) { c.MemoryUsageLimit = 128 * (1016 + SlotOverhead) }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.edit(&cfg)

			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			var ce *ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{NumRows: 1, RowSize: 4, MaxBatchElements: 1}.withDefaults()
	assert.Equal(t, DefaultMaxNumThreads, cfg.MaxNumThreads)
	assert.Equal(t, DefaultMemoryUsageLimit, cfg.MemoryUsageLimit)
}

func TestCapacity(t *testing.T) {
	cfg := validConfig()

	// 33554432 / (1016 + 9) = 32736 slots, rounded down to a multiple of 128.
	capacity, err := Capacity(cfg)
	require.NoError(t, err)
	assert.Equal(t, 32640, capacity)
	assert.Zero(t, capacity%cfg.MaxBatchElements)
	assert.LessOrEqual(t, int64(capacity*(cfg.RowSize+SlotOverhead)), cfg.MemoryUsageLimit)

	elems, err := BufferElements(cfg)
	require.NoError(t, err)
	assert.Equal(t, 32640*254, elems)

	cfg.RowSize = 1018
	_, err = Capacity(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = BufferElements(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCapacity_SmallRowsStayWithinBudget(t *testing.T) {
	cfg := Config{NumRows: 1 << 20, RowSize: 16, MaxBatchElements: 128, MemoryUsageLimit: 64 << 20}

	capacity, err := Capacity(cfg)
	require.NoError(t, err)
	assert.LessOrEqual(t, cfg.ringBytes(capacity), cfg.MemoryUsageLimit)
	assert.Greater(t, cfg.ringBytes(capacity+cfg.MaxBatchElements), cfg.MemoryUsageLimit)
}

func TestNewBuffer(t *testing.T) {
	cfg := validConfig()
	cfg.MemoryUsageLimit = 1 << 20

	buf, err := NewBuffer(cfg)
	require.NoError(t, err)

	elems, err := BufferElements(cfg)
	require.NoError(t, err)
	assert.Len(t, buf, elems)
	assert.True(t, mem.IsAligned(mem.AsBytes(buf), mem.PageSize))

	cfg.NumRows = 0
	_, err = NewBuffer(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigError(t *testing.T) {
	cause := errors.New("no such file")
	err := error(&ConfigError{Field: "Path", Value: "/x", Reason: "cannot open", cause: cause})

	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "invalid configuration: Path=/x: cannot open", err.Error())
}
