package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	nvmesampler "github.com/RTBHOUSE/nvme-sampler"
	"github.com/RTBHOUSE/nvme-sampler/testutil"
)

// progressEvery is how often the sampling loop logs progress.
const progressEvery = 5 * time.Second

// sampleLoop calls ReadBatch until c.Samples rows were delivered or ctx is
// done, handing every batch to visit. It returns the rows delivered.
func sampleLoop(ctx context.Context, s *nvmesampler.Sampler, c Config, logger *nvmesampler.Logger,
	visit func(offset, n int) error) (int64, error) {
	batch := c.BatchSize
	if batch <= 0 {
		batch = 1
	}

	var done int64
	last := time.Now()
	for done < c.Samples {
		n := int(min(int64(batch), c.Samples-done))
		off, err := s.ReadBatch(ctx, n)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Warn("sampling interrupted", "rows", done)
				return done, nil
			}
			return done, err
		}
		if visit != nil {
			if err := visit(off, n); err != nil {
				return done, err
			}
		}
		done += int64(n)

		if time.Since(last) >= progressEvery {
			last = time.Now()
			logger.Info("sampling", "rows", done, "of", c.Samples)
		}
	}
	return done, nil
}

func bench(ctx context.Context, c Config, logger *nvmesampler.Logger, stdout io.Writer) error {
	metrics, stopMetrics, err := startMetrics(c.MetricsAddr, logger)
	if err != nil {
		return err
	}
	defer stopMetrics()

	s, closeFn, err := openSampler(ctx, c, logger, metrics)
	if err != nil {
		return err
	}

	start := time.Now()
	rows, loopErr := sampleLoop(ctx, s, c, logger, nil)
	elapsed := time.Since(start)
	stats := s.Stats()

	err = errors.Join(loopErr, closeFn())

	r := newReport(c, s.Seed(), rows, elapsed, stats)
	if werr := writeReport(c.Report, stdout, r); werr != nil {
		err = errors.Join(err, werr)
	}
	return err
}

func check(ctx context.Context, c Config, logger *nvmesampler.Logger, stdout io.Writer) error {
	metrics, stopMetrics, err := startMetrics(c.MetricsAddr, logger)
	if err != nil {
		return err
	}
	defer stopMetrics()

	s, closeFn, err := openSampler(ctx, c, logger, metrics)
	if err != nil {
		return err
	}

	hits := testutil.NewHitCounter(c.NumRows)
	visit := func(off, n int) error {
		indices := s.RowIndices(off, n)
		for i, row := range s.Rows(off, n) {
			got, err := testutil.CheckRow(row, c.NumRows)
			if err != nil {
				return err
			}
			if got != indices[i] {
				return fmt.Errorf("row %d delivered where row %d was drawn", got, indices[i])
			}
			hits.Add(got)
		}
		return nil
	}

	start := time.Now()
	rows, loopErr := sampleLoop(ctx, s, c, logger, visit)
	elapsed := time.Since(start)
	stats := s.Stats()

	err = errors.Join(loopErr, closeFn())

	r := newReport(c, s.Seed(), rows, elapsed, stats)
	hs := hits.Stats()
	r.Hits = &hs
	if err == nil {
		if cerr := hs.Check(c.RowSize); cerr != nil {
			r.CheckError = cerr.Error()
			err = cerr
		}
	}
	if werr := writeReport(c.Report, stdout, r); werr != nil {
		err = errors.Join(err, werr)
	}
	return err
}
