package nvmesampler_test

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nvmesampler "github.com/RTBHOUSE/nvme-sampler"
)

// TestNoGoroutineLeaks verifies that Close joins every I/O goroutine, with
// and without outstanding prefetch.
func TestNoGoroutineLeaks(t *testing.T) {
	const numRows, rowSize = 1000, 256
	path := fixture(t, numRows, rowSize)

	tests := []struct {
		name    string
		threads int
		batches int
	}{
		{"single thread, no reads", 1, 0},
		{"default threads", 0, 10},
		{"max threads", nvmesampler.MaxNumThreads, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runtime.GC()
			before := runtime.NumGoroutine()

			cfg := testConfig(path, numRows, rowSize)
			cfg.MaxNumThreads = tt.threads
			s, err := nvmesampler.Open(context.Background(), cfg)
			require.NoError(t, err)

			for i := 0; i < tt.batches; i++ {
				_, err := s.ReadBatch(context.Background(), 32)
				require.NoError(t, err)
			}
			require.NoError(t, s.Close())

			assert.LessOrEqual(t, settledGoroutines(before), before, "goroutines leaked after Close")
		})
	}
}

// TestOpenFailureReleasesEverything verifies that Open failures after the
// budget is reserved return an error instead of a handle and leave no
// goroutines behind.
func TestOpenFailureReleasesEverything(t *testing.T) {
	const numRows, rowSize = 100, 64
	path := fixture(t, numRows, rowSize)

	tests := []struct {
		name string
		cfg  nvmesampler.Config
		opts []nvmesampler.Option
	}{
		{"missing file", testConfig(filepath.Join(t.TempDir(), "nope.bin"), numRows, rowSize), nil},
		{"directory", testConfig(t.TempDir(), numRows, rowSize), nil},
		{"dataset too small", testConfig(path, numRows+1, rowSize), nil},
		{"buffer too small", testConfig(path, numRows, rowSize), []nvmesampler.Option{
			nvmesampler.WithBuffer(make([]float32, 1)),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runtime.GC()
			before := runtime.NumGoroutine()

			var s *nvmesampler.Sampler
			var err error
			require.NotPanics(t, func() {
				s, err = nvmesampler.Open(context.Background(), tt.cfg, tt.opts...)
			})
			require.ErrorIs(t, err, nvmesampler.ErrInvalidConfig)
			assert.Nil(t, s)
			assert.LessOrEqual(t, settledGoroutines(before), before)
		})
	}
}

// TestCloseWakesBlockedReadBatch verifies a ReadBatch blocked on slow reads
// returns ErrClosed when the sampler is closed.
func TestCloseWakesBlockedReadBatch(t *testing.T) {
	const rowSize = 64
	src := &blockingSource{size: 100 * rowSize, release: make(chan struct{})}
	before := runtime.NumGoroutine()

	s, err := nvmesampler.Open(context.Background(), testConfig("", 100, rowSize), nvmesampler.WithSource(src))
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := s.ReadBatch(context.Background(), 4)
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Close())

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, nvmesampler.ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("ReadBatch was not woken by Close")
	}

	assert.LessOrEqual(t, settledGoroutines(before), before)
}

// settledGoroutines polls until at most want goroutines remain or two
// seconds pass, and returns the last count.
func settledGoroutines(want int) int {
	deadline := time.Now().Add(2 * time.Second)
	for {
		runtime.GC()
		n := runtime.NumGoroutine()
		if n <= want || time.Now().After(deadline) {
			return n
		}
		time.Sleep(20 * time.Millisecond)
	}
}
