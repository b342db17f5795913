package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/RTBHOUSE/nvme-sampler/internal/indexgen"
	"github.com/RTBHOUSE/nvme-sampler/internal/pool"
	"github.com/RTBHOUSE/nvme-sampler/internal/ring"
)

// Config configures a Dispatcher.
type Config struct {
	Ring      *ring.Ring
	Generator *indexgen.Generator
	Reader    pool.Reader
	Limiter   pool.Limiter // optional

	Workers  int
	MaxBatch int

	// OnRead observes every finished read. It runs on the worker goroutine
	// without the dispatcher lock held.
	OnRead func(pool.Task, pool.Result)
}

// Stats is a snapshot of dispatcher state.
type Stats struct {
	Capacity int
	Workers  int

	Dispatched      uint64
	FilledThrough   uint64
	ConsumedThrough uint64
	Released        uint64
	InFlight        int // reads queued or running
	Queued          int // reads waiting for a worker

	Batches        uint64
	Rows           uint64
	Skipped        uint64 // tail slots discarded at wraparound
	Wakeups        uint64 // times a blocked Next was woken
	ReadsCompleted uint64
	ReadsFailed    uint64
	BytesRead      uint64
}

// prefetchDepth is the number of queued or running reads per worker.
const prefetchDepth = 4

// drawChunk bounds the indices drawn per generator lock acquisition.
const drawChunk = 256

// Dispatcher keeps the ring full and hands out completed batches.
type Dispatcher struct {
	ring     *ring.Ring
	gen      *indexgen.Generator
	pool     *pool.Pool
	maxBatch int
	window   int
	onRead   func(pool.Task, pool.Result)

	mu        sync.Mutex
	cond      *sync.Cond
	closed    bool
	submitted uint64 // next sequence to hand to the pool
	inFlight  int    // submitted tasks not yet completed
	draws     [drawChunk]int64

	// The consumer waits for waitFrom, the first unfinished slot it needs.
	waiting  bool
	waitFrom uint64

	batches uint64
	rows    uint64
	skipped uint64
	wakeups uint64
}

// New creates a Dispatcher and its worker pool. Workers inherit ctx values
// but not its cancellation; they run until Close.
func New(ctx context.Context, cfg Config) (*Dispatcher, error) {
	if cfg.Ring == nil || cfg.Generator == nil {
		return nil, errors.New("dispatch: ring and generator are required")
	}
	if cfg.MaxBatch <= 0 || cfg.MaxBatch > cfg.Ring.Capacity() {
		return nil, fmt.Errorf("%w: max batch %d with ring capacity %d", ErrInvalidBatchSize, cfg.MaxBatch, cfg.Ring.Capacity())
	}

	d := &Dispatcher{
		ring:     cfg.Ring,
		gen:      cfg.Generator,
		maxBatch: cfg.MaxBatch,
		onRead:   cfg.OnRead,
	}
	d.cond = sync.NewCond(&d.mu)

	workers := cfg.Workers
	if workers <= 0 {
		workers = pool.DefaultWorkers()
	}
	d.window = min(workers*prefetchDepth, cfg.Ring.Capacity())

	p, err := pool.New(context.WithoutCancel(ctx), pool.Config{
		Workers:    workers,
		QueueSize:  d.window,
		Reader:     cfg.Reader,
		Limiter:    cfg.Limiter,
		OnComplete: d.complete,
	})
	if err != nil {
		return nil, err
	}
	d.pool = p

	return d, nil
}

// Start assigns rows to every slot of the ring and submits the first
// prefetch window.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	return d.dispatchFreeLocked()
}

// MaxBatch returns the largest batch Next accepts.
func (d *Dispatcher) MaxBatch() int { return d.maxBatch }

// Capacity returns the ring capacity in slots.
func (d *Dispatcher) Capacity() int { return d.ring.Capacity() }

// Window returns the maximum number of reads queued or running at once.
func (d *Dispatcher) Window() int { return d.window }

// Next returns the first slot of the next n completed rows. The slots stay
// valid until the following call to Next or Close.
//
// If any row of the batch failed to read, Next returns a *ReadError for the
// first failed slot; the batch is still consumed and the next call proceeds
// with fresh slots.
func (d *Dispatcher) Next(ctx context.Context, n int) (int, error) {
	if n <= 0 || n > d.maxBatch {
		return 0, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidBatchSize, n, d.maxBatch)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	d.ring.Release()
	if err := d.dispatchFreeLocked(); err != nil {
		return 0, err
	}

	capacity := d.ring.Capacity()
	start := d.ring.ConsumedThrough()
	if idx := d.ring.Index(start); idx+n > capacity {
		tail := start + uint64(capacity-idx)
		if err := d.waitLocked(ctx, start, tail); err != nil {
			return 0, err
		}
		d.ring.Consume(tail, 0)
		d.ring.Release()
		d.skipped += tail - start
		if err := d.dispatchFreeLocked(); err != nil {
			return 0, err
		}
		start = tail
	}

	end := start + uint64(n)
	if err := d.waitLocked(ctx, start, end); err != nil {
		return 0, err
	}

	slot, failed := d.ring.FirstError(start, end)
	d.ring.Consume(start, n)
	d.batches++

	if failed {
		row := d.ring.Row(slot)
		return 0, &ReadError{
			Slot:   slot,
			Row:    row,
			Offset: row * int64(d.ring.RowSize()),
			Err:    d.ring.Err(slot),
		}
	}

	d.rows += uint64(n)
	return d.ring.Index(start), nil
}

// Row returns the dataset row held by slot. It is meaningful for the slots
// of the most recent batch.
func (d *Dispatcher) Row(slot int) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ring.Row(slot)
}

// Stats returns a snapshot of the dispatcher counters and watermarks.
func (d *Dispatcher) Stats() Stats {
	ps := d.pool.Stats()

	d.mu.Lock()
	defer d.mu.Unlock()

	return Stats{
		Capacity:        d.ring.Capacity(),
		Workers:         ps.Workers,
		Dispatched:      d.ring.Dispatched(),
		FilledThrough:   d.ring.FilledThrough(),
		ConsumedThrough: d.ring.ConsumedThrough(),
		Released:        d.ring.Released(),
		InFlight:        d.inFlight,
		Queued:          ps.Queued,
		Batches:         d.batches,
		Rows:            d.rows,
		Skipped:         d.skipped,
		Wakeups:         d.wakeups,
		ReadsCompleted:  ps.Completed,
		ReadsFailed:     ps.Failed,
		BytesRead:       ps.Bytes,
	}
}

// Close stops the workers and wakes any blocked Next with ErrClosed.
// It waits for in-progress reads to finish. Close is idempotent.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.cond.Broadcast()
	d.mu.Unlock()

	return d.pool.Close()
}

// dispatchFreeLocked assigns fresh rows to every free slot in sequence
// order, then submits as much as the prefetch window allows.
func (d *Dispatcher) dispatchFreeLocked() error {
	for free := d.ring.Free(); free > 0; free = d.ring.Free() {
		rows := d.draws[:min(free, drawChunk)]
		d.gen.Fill(rows)
		for _, row := range rows {
			d.ring.Dispatch(row)
		}
	}
	return d.submitLocked()
}

// submitLocked hands dispatched slots to the pool until the window is full.
func (d *Dispatcher) submitLocked() error {
	for d.submitted < d.ring.Dispatched() && d.inFlight < d.window {
		seq := d.submitted
		slot := d.ring.Index(seq)
		d.submitted++
		d.inFlight++

		err := d.pool.Submit(pool.Task{
			Slot: slot,
			Seq:  seq,
			Row:  d.ring.Row(slot),
			Buf:  d.ring.Slot(slot),
		})
		if err != nil {
			d.inFlight--
			d.ring.Complete(slot, seq, err)
			d.wakeLocked()
			return fmt.Errorf("dispatch slot %d: %w", slot, err)
		}
	}
	return nil
}

func (d *Dispatcher) complete(t pool.Task, res pool.Result) {
	d.mu.Lock()
	d.ring.Complete(t.Slot, t.Seq, res.Err)
	d.inFlight--
	if !d.closed {
		// A failed submit is recorded on its slot.
		_ = d.submitLocked()
	}
	d.wakeLocked()
	d.mu.Unlock()

	if d.onRead != nil {
		d.onRead(t, res)
	}
}

// wakeLocked signals the consumer once the slot it is blocked on finished.
func (d *Dispatcher) wakeLocked() {
	if d.waiting && d.ring.State(d.ring.Index(d.waitFrom)).Done() {
		d.cond.Signal()
	}
}

// waitLocked blocks until every slot in [from, to) has finished its read.
func (d *Dispatcher) waitLocked(ctx context.Context, from, to uint64) error {
	d.waitFrom = d.ring.DoneThrough(from, to)
	if d.waitFrom == to {
		return nil
	}

	stop := context.AfterFunc(ctx, func() {
		d.mu.Lock()
		d.cond.Broadcast()
		d.mu.Unlock()
	})
	defer stop()

	d.waiting = true
	defer func() { d.waiting = false }()

	for {
		if d.closed {
			return ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		d.cond.Wait()
		d.wakeups++
		if d.waitFrom = d.ring.DoneThrough(d.waitFrom, to); d.waitFrom == to {
			return nil
		}
	}
}
