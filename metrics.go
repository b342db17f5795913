package nvmesampler

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    batches   prometheus.Counter
//	    batchWait prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordBatch(size int, wait time.Duration, err error) {
//	    p.batches.Inc()
//	    p.batchWait.Observe(wait.Seconds())
//	}
type MetricsCollector interface {
	// RecordBatch is called after each ReadBatch. size is the requested
	// batch size, wait is the time spent blocked, err is nil if successful.
	RecordBatch(size int, wait time.Duration, err error)

	// RecordRead is called by the I/O goroutines after each row read.
	// It must be safe for concurrent use.
	RecordRead(bytes int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBatch(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordRead(int, time.Duration, error)  {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	BatchCount     atomic.Int64
	BatchErrors    atomic.Int64
	BatchRows      atomic.Int64
	BatchWaitNanos atomic.Int64
	ReadCount      atomic.Int64
	ReadErrors     atomic.Int64
	ReadBytes      atomic.Int64
	ReadTotalNanos atomic.Int64
}

// RecordBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatch(size int, wait time.Duration, err error) {
	b.BatchCount.Add(1)
	b.BatchWaitNanos.Add(wait.Nanoseconds())
	if err != nil {
		b.BatchErrors.Add(1)
		return
	}
	b.BatchRows.Add(int64(size))
}

// RecordRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRead(bytes int, duration time.Duration, err error) {
	b.ReadCount.Add(1)
	b.ReadBytes.Add(int64(bytes))
	b.ReadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ReadErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BatchCount:     b.BatchCount.Load(),
		BatchErrors:    b.BatchErrors.Load(),
		BatchRows:      b.BatchRows.Load(),
		BatchAvgWait:   avgNanos(b.BatchWaitNanos.Load(), b.BatchCount.Load()),
		ReadCount:      b.ReadCount.Load(),
		ReadErrors:     b.ReadErrors.Load(),
		ReadBytes:      b.ReadBytes.Load(),
		ReadAvgLatency: avgNanos(b.ReadTotalNanos.Load(), b.ReadCount.Load()),
	}
}

func avgNanos(total, count int64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(total / count)
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BatchCount     int64
	BatchErrors    int64
	BatchRows      int64
	BatchAvgWait   time.Duration
	ReadCount      int64
	ReadErrors     int64
	ReadBytes      int64
	ReadAvgLatency time.Duration
}
