package pool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrClosed is returned when submitting to a closed pool.
	ErrClosed = errors.New("pool: closed")

	// ErrQueueFull is returned when the task channel has no room.
	ErrQueueFull = errors.New("pool: task queue full")

	// ErrShortRead is reported when a read returns fewer bytes than a row.
	ErrShortRead = errors.New("short read")
)

// MaxWorkers is the upper bound on the number of I/O goroutines.
const MaxWorkers = 64

// DefaultWorkers returns GOMAXPROCS capped at MaxWorkers.
func DefaultWorkers() int { return min(runtime.GOMAXPROCS(0), MaxWorkers) }

// Reader performs positioned reads. source.Source satisfies it.
type Reader interface {
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
}

// Limiter throttles reads. resource.Controller satisfies it.
type Limiter interface {
	AcquireIO(ctx context.Context, bytes int) error
}

// Task is one positioned read into a ring slot.
type Task struct {
	Slot int
	Seq  uint64
	Row  int64
	Buf  []byte // slot memory; len(Buf) is the row size
}

// Offset returns the byte offset of the task's row in the dataset.
func (t Task) Offset() int64 { return t.Row * int64(len(t.Buf)) }

// Result describes a finished task.
type Result struct {
	Bytes    int
	Duration time.Duration
	Err      error
}

// Config configures a Pool.
type Config struct {
	// Workers is the number of I/O goroutines. Defaults to GOMAXPROCS,
	// capped at MaxWorkers.
	Workers int

	// QueueSize is the task channel capacity. Submit fails with ErrQueueFull
	// beyond it, so callers keep at most QueueSize tasks outstanding.
	QueueSize int

	Reader  Reader
	Limiter Limiter // optional

	// OnComplete is invoked from the worker goroutine after every task.
	OnComplete func(Task, Result)
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Workers   int
	Queued    int
	Completed uint64
	Failed    uint64
	Bytes     uint64
}

// Pool is a fixed set of I/O workers fed by a buffered channel.
type Pool struct {
	cfg    Config
	tasks  chan Task
	cancel context.CancelFunc
	g      *errgroup.Group

	closed   atomic.Bool
	submitMu sync.RWMutex

	completed atomic.Uint64
	failed    atomic.Uint64
	bytes     atomic.Uint64
}

// New starts cfg.Workers goroutines. They run until Close or until ctx is done.
func New(ctx context.Context, cfg Config) (*Pool, error) {
	if cfg.Reader == nil {
		return nil, errors.New("pool: nil reader")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers()
	}
	if cfg.Workers > MaxWorkers {
		return nil, fmt.Errorf("pool: %d workers exceeds maximum of %d", cfg.Workers, MaxWorkers)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 2
	}

	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)

	p := &Pool{
		cfg:    cfg,
		tasks:  make(chan Task, cfg.QueueSize),
		cancel: cancel,
		g:      g,
	}

	for i := 0; i < cfg.Workers; i++ {
		g.Go(func() error {
			p.worker(ctx)
			return nil
		})
	}

	return p, nil
}

func (p *Pool) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-p.tasks:
			res := p.run(ctx, t)
			if p.cfg.OnComplete != nil {
				p.cfg.OnComplete(t, res)
			}
		}
	}
}

func (p *Pool) run(ctx context.Context, t Task) Result {
	start := time.Now()

	if p.cfg.Limiter != nil {
		if err := p.cfg.Limiter.AcquireIO(ctx, len(t.Buf)); err != nil {
			p.failed.Add(1)
			return Result{Duration: time.Since(start), Err: fmt.Errorf("throttle row %d: %w", t.Row, err)}
		}
	}

	n, err := p.cfg.Reader.ReadAt(ctx, t.Buf, t.Offset())
	switch {
	case n == len(t.Buf):
		// io.ReaderAt may report io.EOF alongside a full read at the end of the file.
		err = nil
	case err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
		err = fmt.Errorf("%w: row %d: got %d of %d bytes at offset %d", ErrShortRead, t.Row, n, len(t.Buf), t.Offset())
	default:
		err = fmt.Errorf("read row %d at offset %d: %w", t.Row, t.Offset(), err)
	}

	res := Result{Bytes: n, Duration: time.Since(start), Err: err}
	p.bytes.Add(uint64(n))
	if err != nil {
		p.failed.Add(1)
	} else {
		p.completed.Add(1)
	}
	return res
}

// Submit enqueues t. It never blocks.
func (p *Pool) Submit(t Task) error {
	p.submitMu.RLock()
	defer p.submitMu.RUnlock()

	if p.closed.Load() {
		return ErrClosed
	}

	select {
	case p.tasks <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

// Workers returns the number of I/O goroutines.
func (p *Pool) Workers() int { return p.cfg.Workers }

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.cfg.Workers,
		Queued:    len(p.tasks),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Bytes:     p.bytes.Load(),
	}
}

// Close stops the workers and waits for them to exit. Tasks still queued are
// dropped; a read already in progress finishes first. Close is idempotent.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.submitMu.Lock()
	p.cancel()
	p.submitMu.Unlock()

	return p.g.Wait()
}
