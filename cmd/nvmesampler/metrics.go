package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	nvmesampler "github.com/RTBHOUSE/nvme-sampler"
)

// PrometheusMetrics exports sampler activity as Prometheus metrics.
type PrometheusMetrics struct {
	batches     *prometheus.CounterVec
	batchRows   prometheus.Counter
	batchWait   prometheus.Histogram
	reads       *prometheus.CounterVec
	readBytes   prometheus.Counter
	readLatency prometheus.Histogram
}

var _ nvmesampler.MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates the collectors and registers them with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nvmesampler_batches_total",
			Help: "ReadBatch calls by status",
		}, []string{"status"}),
		batchRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nvmesampler_batch_rows_total",
			Help: "Rows delivered by successful ReadBatch calls",
		}),
		batchWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nvmesampler_batch_wait_seconds",
			Help:    "Time ReadBatch spent waiting for prefetched rows",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nvmesampler_reads_total",
			Help: "Row reads by status",
		}, []string{"status"}),
		readBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nvmesampler_read_bytes_total",
			Help: "Bytes read from the dataset",
		}),
		readLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nvmesampler_read_duration_seconds",
			Help:    "Row read latency",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
	}
	reg.MustRegister(m.batches, m.batchRows, m.batchWait, m.reads, m.readBytes, m.readLatency)
	return m
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordBatch implements nvmesampler.MetricsCollector.
func (m *PrometheusMetrics) RecordBatch(size int, wait time.Duration, err error) {
	m.batches.WithLabelValues(status(err)).Inc()
	m.batchWait.Observe(wait.Seconds())
	if err == nil {
		m.batchRows.Add(float64(size))
	}
}

// RecordRead implements nvmesampler.MetricsCollector.
func (m *PrometheusMetrics) RecordRead(bytes int, duration time.Duration, err error) {
	m.reads.WithLabelValues(status(err)).Inc()
	m.readBytes.Add(float64(bytes))
	m.readLatency.Observe(duration.Seconds())
}

// startMetrics serves /metrics on addr. With an empty addr it returns a nil
// collector and a no-op stop function.
func startMetrics(addr string, logger *nvmesampler.Logger) (nvmesampler.MetricsCollector, func(), error) {
	if addr == "" {
		return nil, func() {}, nil
	}

	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return m, stop, nil
}
