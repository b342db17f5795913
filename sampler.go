package nvmesampler

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/RTBHOUSE/nvme-sampler/internal/dispatch"
	"github.com/RTBHOUSE/nvme-sampler/internal/fs"
	"github.com/RTBHOUSE/nvme-sampler/internal/indexgen"
	"github.com/RTBHOUSE/nvme-sampler/internal/mem"
	"github.com/RTBHOUSE/nvme-sampler/internal/mmap"
	"github.com/RTBHOUSE/nvme-sampler/internal/pool"
	"github.com/RTBHOUSE/nvme-sampler/internal/resource"
	"github.com/RTBHOUSE/nvme-sampler/internal/ring"
	"github.com/RTBHOUSE/nvme-sampler/source"
)

// Sampler hands out batches of uniformly sampled rows.
//
// ReadBatch must not be called concurrently. Stats and the accessors are
// safe to call from any goroutine.
type Sampler struct {
	cfg      Config
	id       string
	seed     uint32
	capacity int
	elems    int // 4-byte elements per row

	src        source.Source
	ownsSource bool
	srcName    string

	buf     []float32
	mapping *mmap.Mapping // non-nil when the sampler allocated buf

	ring *ring.Ring
	gen  *indexgen.Generator
	disp *dispatch.Dispatcher

	res      *resource.Controller
	reserved int64

	logger  *Logger
	metrics MetricsCollector

	closed atomic.Bool
}

// Stats is a snapshot of sampler activity.
type Stats struct {
	Capacity int
	Workers  int

	Batches uint64 // ReadBatch calls that waited for data, including failed ones
	Rows    uint64 // rows delivered in successful batches
	Skipped uint64 // prefetched rows discarded at ring wraparound

	ReadsCompleted uint64
	ReadsFailed    uint64
	BytesRead      uint64

	Dispatched      uint64
	FilledThrough   uint64
	ConsumedThrough uint64
	Released        uint64
	InFlight        int // reads queued or running
	Queued          int // reads waiting for an I/O goroutine

	Draws        uint64
	DistinctRows uint64 // zero unless WithCoverageTracking

	MemoryReserved int64
}

// Open validates cfg, opens the dataset, allocates or adopts the ring buffer
// and starts prefetching. On failure everything acquired is released and no
// sampler is returned.
func Open(ctx context.Context, cfg Config, optFns ...Option) (_ *Sampler, err error) {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		fileSystem:       fs.Default,
	}
	for _, fn := range optFns {
		fn(&o)
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	capacity, err := cfg.capacity()
	if err != nil {
		return nil, err
	}

	if !o.seedSet {
		o.seed = rand.Uint32()
	}

	s := &Sampler{
		cfg:      cfg,
		id:       uuid.NewString(),
		seed:     o.seed,
		capacity: capacity,
		elems:    cfg.RowSize / 4,
		metrics:  o.metricsCollector,
	}
	s.logger = o.logger.WithSampler(s.id)

	var cleanup []func() error
	defer func() {
		if err == nil {
			return
		}
		for i := len(cleanup) - 1; i >= 0; i-- {
			_ = cleanup[i]()
		}
	}()

	s.res = resource.NewController(resource.Config{
		MemoryLimitBytes:   cfg.MemoryUsageLimit,
		IOLimitBytesPerSec: o.ioRateLimit,
		IOBurstBytes:       o.ioBurst,
	})
	ringBytes := cfg.ringBytes(capacity)
	if err := s.res.AcquireMemory(ringBytes); err != nil {
		return nil, &ConfigError{Field: "MemoryUsageLimit", Value: cfg.MemoryUsageLimit, Reason: err.Error(), cause: err}
	}
	s.reserved = ringBytes
	cleanup = append(cleanup, func() error { s.res.ReleaseMemory(ringBytes); return nil })

	if err := s.openSource(cfg, &o); err != nil {
		return nil, err
	}
	if s.ownsSource {
		cleanup = append(cleanup, s.src.Close)
	}

	if err := s.setupBuffer(capacity, &o); err != nil {
		return nil, err
	}
	if s.mapping != nil {
		cleanup = append(cleanup, s.mapping.Close)
	}

	s.ring, err = ring.New(mem.AsBytes(s.buf), cfg.RowSize, capacity)
	if err != nil {
		return nil, fmt.Errorf("create ring: %w", err)
	}

	var genOpts []indexgen.Option
	if o.coverage {
		genOpts = append(genOpts, indexgen.WithCoverage())
	}
	s.gen = indexgen.New(cfg.NumRows, s.seed, genOpts...)

	var limiter pool.Limiter
	if s.res.IOLimited() {
		limiter = s.res
	}

	s.disp, err = dispatch.New(ctx, dispatch.Config{
		Ring:      s.ring,
		Generator: s.gen,
		Reader:    s.src,
		Limiter:   limiter,
		Workers:   cfg.MaxNumThreads,
		MaxBatch:  cfg.MaxBatchElements,
		OnRead: func(_ pool.Task, r pool.Result) {
			s.metrics.RecordRead(r.Bytes, r.Duration, r.Err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("start workers: %w", err)
	}
	cleanup = append(cleanup, s.disp.Close)

	if err := s.disp.Start(); err != nil {
		return nil, fmt.Errorf("start prefetch: %w", err)
	}

	s.logger.LogOpen(ctx, cfg, capacity, s.seed, s.srcName)
	return s, nil
}

func (s *Sampler) openSource(cfg Config, o *options) error {
	if o.source != nil {
		s.src = o.source
		s.srcName = fmt.Sprintf("%T", o.source)
	} else {
		if cfg.Path == "" {
			return configError("Path", cfg.Path, "required unless WithSource is given")
		}
		src, err := openPath(cfg.Path, o)
		if err != nil {
			return err
		}
		s.src = src
		s.ownsSource = true
		s.srcName = cfg.Path
	}

	if size := s.src.Size(); size < cfg.DatasetSize() {
		if s.ownsSource {
			_ = s.src.Close()
		}
		return configError("NumRows", cfg.NumRows,
			fmt.Sprintf("dataset holds %d bytes, need %d", size, cfg.DatasetSize()))
	}
	return nil
}

func openPath(path string, o *options) (source.Source, error) {
	var (
		src source.Source
		err error
	)
	switch {
	case o.memoryMap && o.directIO:
		return nil, configError("Path", path, "memory mapping and direct I/O are exclusive")
	case o.memoryMap:
		src, err = source.OpenMmap(path)
	default:
		src, err = source.OpenFile(path,
			source.WithFileSystem(o.fileSystem),
			source.WithDirectIO(o.directIO),
		)
	}
	if err != nil {
		return nil, &ConfigError{Field: "Path", Value: path, Reason: err.Error(), cause: err}
	}
	return src, nil
}

func (s *Sampler) setupBuffer(capacity int, o *options) error {
	need := capacity * s.elems

	if o.buffer != nil {
		if len(o.buffer) < need {
			return configError("Buffer", len(o.buffer),
				fmt.Sprintf("must hold %d elements (%d rows)", need, capacity))
		}
		s.buf = o.buffer[:need:need]
		return nil
	}

	m, err := mmap.MapAnon(need * 4)
	if err != nil {
		return fmt.Errorf("allocate ring buffer: %w", err)
	}
	s.mapping = m
	s.buf = mem.AsFloat32(m.Bytes())
	return nil
}

// ReadBatch waits for the next n sampled rows and returns the offset, in
// 4-byte elements, of the first one in Buffer. The n rows are contiguous and
// stay valid until the next call to ReadBatch or Close.
//
// On failure it returns FailedOffset and an error: ErrInvalidBatchSize when
// n is not in [1, MaxBatchElements] (nothing is changed), a *ReadError when a
// row could not be read, ErrClosed after Close, or the context's error.
func (s *Sampler) ReadBatch(ctx context.Context, n int) (int, error) {
	if s.closed.Load() {
		return FailedOffset, ErrClosed
	}

	start := time.Now()
	slot, err := s.disp.Next(ctx, n)
	wait := time.Since(start)

	s.metrics.RecordBatch(n, wait, err)
	s.logger.LogBatch(ctx, n, wait, err)

	if err != nil {
		return FailedOffset, err
	}
	return s.ring.ElementOffset(slot), nil
}

// Batch returns the n rows starting at offset as one flat slice.
func (s *Sampler) Batch(offset, n int) []float32 {
	end := offset + n*s.elems
	return s.buf[offset:end:end]
}

// Rows returns the n rows starting at offset, one slice per row.
func (s *Sampler) Rows(offset, n int) [][]float32 {
	rows := make([][]float32, n)
	for i := range rows {
		lo := offset + i*s.elems
		rows[i] = s.buf[lo : lo+s.elems : lo+s.elems]
	}
	return rows
}

// RowIndices returns the dataset row numbers of the n rows starting at offset.
func (s *Sampler) RowIndices(offset, n int) []int64 {
	first := offset / s.elems
	idx := make([]int64, n)
	for i := range idx {
		idx[i] = s.disp.Row(first + i)
	}
	return idx
}

// Buffer returns the ring buffer. When the sampler allocated it, the slice
// is invalid after Close.
func (s *Sampler) Buffer() []float32 { return s.buf }

// Capacity returns the number of ring slots.
func (s *Sampler) Capacity() int { return s.capacity }

// Config returns the configuration with defaults applied.
func (s *Sampler) Config() Config { return s.cfg }

// Seed returns the seed of the row index generator.
func (s *Sampler) Seed() uint32 { return s.seed }

// ID returns the sampler instance id used in logs.
func (s *Sampler) ID() string { return s.id }

// Stats returns a snapshot of sampler activity.
func (s *Sampler) Stats() Stats {
	d := s.disp.Stats()
	return Stats{
		Capacity:        d.Capacity,
		Workers:         d.Workers,
		Batches:         d.Batches,
		Rows:            d.Rows,
		Skipped:         d.Skipped,
		ReadsCompleted:  d.ReadsCompleted,
		ReadsFailed:     d.ReadsFailed,
		BytesRead:       d.BytesRead,
		Dispatched:      d.Dispatched,
		FilledThrough:   d.FilledThrough,
		ConsumedThrough: d.ConsumedThrough,
		Released:        d.Released,
		InFlight:        d.InFlight,
		Queued:          d.Queued,
		Draws:           s.gen.Draws(),
		DistinctRows:    s.gen.Distinct(),
		MemoryReserved:  s.res.MemoryUsage(),
	}
}

// Close stops the I/O goroutines, waits for in-progress reads, closes the
// dataset and releases the ring. A borrowed buffer is left untouched.
// Failures are logged and returned joined. Close is idempotent.
//
// Calling Close while ReadBatch is blocked wakes it with ErrClosed, but the
// batch memory must not be used afterwards.
func (s *Sampler) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	ctx := context.Background()
	var errs []error
	warn := func(msg string, err error) {
		if err != nil {
			s.logger.WarnContext(ctx, msg, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", msg, err))
		}
	}

	warn("stop workers", s.disp.Close())
	stats := s.Stats()

	if s.ownsSource {
		warn("close dataset", s.src.Close())
	}

	s.res.ReleaseMemory(s.reserved)

	if s.mapping != nil {
		s.buf = nil
		warn("unmap ring buffer", s.mapping.Close())
	}

	err := errors.Join(errs...)
	s.logger.LogClose(ctx, stats, err)
	return err
}
