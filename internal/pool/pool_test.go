package pool

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memReader struct {
	data []byte
	err  error // returned for every read when set
}

func (m *memReader) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

type countingLimiter struct {
	bytes atomic.Int64
	err   error
}

func (l *countingLimiter) AcquireIO(_ context.Context, n int) error {
	l.bytes.Add(int64(n))
	return l.err
}

const rowSize = 16

func dataset(rows int) []byte {
	buf := make([]byte, rows*rowSize)
	for i := 0; i < rows; i++ {
		binary.LittleEndian.PutUint32(buf[i*rowSize:], uint32(i))
	}
	return buf
}

type collector struct {
	mu      sync.Mutex
	results map[int]Result
	tasks   map[int]Task
	done    chan struct{}
	want    int
}

func newCollector(want int) *collector {
	return &collector{
		results: make(map[int]Result),
		tasks:   make(map[int]Task),
		done:    make(chan struct{}),
		want:    want,
	}
}

func (c *collector) onComplete(t Task, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[t.Slot] = r
	c.tasks[t.Slot] = t
	if len(c.results) == c.want {
		close(c.done)
	}
}

func (c *collector) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for tasks")
	}
}

func TestPool_ReadsIntoSlots(t *testing.T) {
	const n = 32
	mem := make([]byte, n*rowSize)
	c := newCollector(n)

	p, err := New(context.Background(), Config{
		Workers:    4,
		QueueSize:  n,
		Reader:     &memReader{data: dataset(100)},
		OnComplete: c.onComplete,
	})
	require.NoError(t, err)
	defer p.Close()

	for slot := 0; slot < n; slot++ {
		row := int64((slot * 7) % 100)
		require.NoError(t, p.Submit(Task{
			Slot: slot,
			Seq:  uint64(slot),
			Row:  row,
			Buf:  mem[slot*rowSize : (slot+1)*rowSize],
		}))
	}
	c.wait(t)

	for slot := 0; slot < n; slot++ {
		r := c.results[slot]
		require.NoError(t, r.Err)
		assert.Equal(t, rowSize, r.Bytes)
		got := binary.LittleEndian.Uint32(mem[slot*rowSize:])
		assert.Equal(t, uint32(c.tasks[slot].Row), got)
	}

	st := p.Stats()
	assert.Equal(t, uint64(n), st.Completed)
	assert.Zero(t, st.Failed)
	assert.Equal(t, uint64(n*rowSize), st.Bytes)
	assert.Equal(t, 4, st.Workers)
}

func TestPool_ShortRead(t *testing.T) {
	c := newCollector(1)
	p, err := New(context.Background(), Config{
		Workers:    1,
		Reader:     &memReader{data: dataset(2)[:rowSize+4]},
		OnComplete: c.onComplete,
	})
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Submit(Task{Slot: 0, Row: 1, Buf: make([]byte, rowSize)}))
	c.wait(t)

	r := c.results[0]
	assert.ErrorIs(t, r.Err, ErrShortRead)
	assert.Equal(t, 4, r.Bytes)
	assert.Equal(t, uint64(1), p.Stats().Failed)
}

func TestPool_FullReadWithEOF(t *testing.T) {
	c := newCollector(1)
	p, err := New(context.Background(), Config{
		Workers:    1,
		Reader:     &memReader{data: dataset(2)},
		OnComplete: c.onComplete,
	})
	require.NoError(t, err)
	defer p.Close()

	// Last row: memReader returns exactly rowSize bytes.
	require.NoError(t, p.Submit(Task{Slot: 0, Row: 1, Buf: make([]byte, rowSize)}))
	c.wait(t)
	assert.NoError(t, c.results[0].Err)
}

func TestPool_ReadError(t *testing.T) {
	boom := errors.New("boom")
	c := newCollector(1)
	p, err := New(context.Background(), Config{
		Workers:    2,
		Reader:     &memReader{err: boom},
		OnComplete: c.onComplete,
	})
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Submit(Task{Slot: 0, Row: 3, Buf: make([]byte, rowSize)}))
	c.wait(t)

	assert.ErrorIs(t, c.results[0].Err, boom)
	assert.NotErrorIs(t, c.results[0].Err, ErrShortRead)
}

func TestPool_Limiter(t *testing.T) {
	lim := &countingLimiter{}
	c := newCollector(3)
	p, err := New(context.Background(), Config{
		Workers:    2,
		Reader:     &memReader{data: dataset(10)},
		Limiter:    lim,
		OnComplete: c.onComplete,
	})
	require.NoError(t, err)
	defer p.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Submit(Task{Slot: i, Row: int64(i), Buf: make([]byte, rowSize)}))
	}
	c.wait(t)
	assert.Equal(t, int64(3*rowSize), lim.bytes.Load())

	lim.err = context.Canceled
	c2 := newCollector(1)
	p2, err := New(context.Background(), Config{
		Workers:    1,
		Reader:     &memReader{data: dataset(10)},
		Limiter:    lim,
		OnComplete: c2.onComplete,
	})
	require.NoError(t, err)
	defer p2.Close()

	require.NoError(t, p2.Submit(Task{Slot: 0, Row: 0, Buf: make([]byte, rowSize)}))
	c2.wait(t)
	assert.ErrorIs(t, c2.results[0].Err, context.Canceled)
}

func TestPool_SubmitNeverBlocks(t *testing.T) {
	block := make(chan struct{})
	p, err := New(context.Background(), Config{
		Workers:   1,
		QueueSize: 2,
		Reader: readerFunc(func(ctx context.Context, p []byte, _ int64) (int, error) {
			select {
			case <-block:
			case <-ctx.Done():
			}
			return len(p), nil
		}),
	})
	require.NoError(t, err)

	// One task is taken by the worker; two more fill the queue.
	require.NoError(t, p.Submit(Task{Buf: make([]byte, rowSize)}))
	require.Eventually(t, func() bool { return p.Stats().Queued == 0 }, time.Second, time.Millisecond)
	require.NoError(t, p.Submit(Task{Buf: make([]byte, rowSize)}))
	require.NoError(t, p.Submit(Task{Buf: make([]byte, rowSize)}))
	assert.ErrorIs(t, p.Submit(Task{Buf: make([]byte, rowSize)}), ErrQueueFull)

	close(block)
	require.NoError(t, p.Close())
}

func TestPool_Close(t *testing.T) {
	before := runtime.NumGoroutine()

	p, err := New(context.Background(), Config{Workers: 8, Reader: &memReader{}})
	require.NoError(t, err)
	assert.Equal(t, 8, p.Workers())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Submit(Task{Buf: make([]byte, rowSize)}), ErrClosed)

	assert.LessOrEqual(t, settledGoroutines(before), before)
}

func TestPool_ParentContextStopsWorkers(t *testing.T) {
	before := runtime.NumGoroutine()
	ctx, cancel := context.WithCancel(context.Background())

	p, err := New(ctx, Config{Workers: 4, Reader: &memReader{}})
	require.NoError(t, err)
	cancel()

	assert.LessOrEqual(t, settledGoroutines(before), before)
	require.NoError(t, p.Close())
}

func TestPool_InvalidConfig(t *testing.T) {
	_, err := New(context.Background(), Config{Workers: 1})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Workers: MaxWorkers + 1, Reader: &memReader{}})
	assert.Error(t, err)

	p, err := New(context.Background(), Config{Reader: &memReader{}})
	require.NoError(t, err)
	assert.Equal(t, min(runtime.GOMAXPROCS(0), MaxWorkers), p.Workers())
	require.NoError(t, p.Close())
}

func TestTask_Offset(t *testing.T) {
	task := Task{Row: 5, Buf: make([]byte, 1016)}
	assert.Equal(t, int64(5*1016), task.Offset())
	assert.True(t, bytes.Equal(task.Buf, make([]byte, 1016)))
}

type readerFunc func(ctx context.Context, p []byte, off int64) (int, error)

func (f readerFunc) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	return f(ctx, p, off)
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
