package testutil

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
)

// Percentiles are the quantiles HitStats compares against a normal fit.
var Percentiles = []float64{1, 10, 25, 50, 75, 90, 99}

// HitCounter counts how often each row was sampled. It is safe for
// concurrent use.
type HitCounter struct {
	mu      sync.Mutex
	counts  []uint32
	samples uint64
}

// NewHitCounter returns a counter for numRows rows.
func NewHitCounter(numRows int64) *HitCounter {
	return &HitCounter{counts: make([]uint32, numRows)}
}

// Add records one hit for row.
func (h *HitCounter) Add(row int64) {
	h.mu.Lock()
	h.counts[row]++
	h.samples++
	h.mu.Unlock()
}

// Samples returns the number of recorded hits.
func (h *HitCounter) Samples() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.samples
}

// HitStats summarizes per-row hit counts.
type HitStats struct {
	Rows        int64
	Samples     uint64
	Mean        float64
	Std         float64
	Max         uint32
	Zeros       int64
	Percentiles []float64 // values at the Percentiles quantiles
}

// Stats computes the summary of the counts recorded so far.
func (h *HitCounter) Stats() HitStats {
	h.mu.Lock()
	counts := slices.Clone(h.counts)
	samples := h.samples
	h.mu.Unlock()

	st := HitStats{Rows: int64(len(counts)), Samples: samples}
	if len(counts) == 0 {
		return st
	}

	var sum float64
	for _, c := range counts {
		sum += float64(c)
		st.Max = max(st.Max, c)
		if c == 0 {
			st.Zeros++
		}
	}
	st.Mean = sum / float64(len(counts))

	var sq float64
	for _, c := range counts {
		d := float64(c) - st.Mean
		sq += d * d
	}
	st.Std = math.Sqrt(sq / float64(len(counts)))

	slices.Sort(counts)
	st.Percentiles = make([]float64, len(Percentiles))
	for i, q := range Percentiles {
		st.Percentiles[i] = percentile(counts, q)
	}
	return st
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []uint32, q float64) float64 {
	pos := q / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return float64(sorted[lo]) + frac*(float64(sorted[hi])-float64(sorted[lo]))
}

// Expected returns the mean and standard deviation of per-row hit counts
// for uniform sampling with replacement, using the normal approximation.
func Expected(samples uint64, numRows int64) (mean, std float64) {
	mean = float64(samples) / float64(numRows)
	return mean, math.Sqrt(mean)
}

// MaxZeros is the number of never-sampled rows tolerated for rows of
// rowSize bytes.
func MaxZeros(rowSize int) int64 {
	return int64(2 * 3 * 4096 / (rowSize / 4))
}

// Check compares the summary against uniform sampling with replacement:
// mean and standard deviation within 10%, maximum below mean + 6 std, every
// percentile within 10% of the normal quantile, and at most MaxZeros rows
// never sampled.
func (s HitStats) Check(rowSize int) error {
	if s.Rows == 0 || s.Samples == 0 {
		return errors.New("testutil: no samples")
	}

	mean, std := Expected(s.Samples, s.Rows)
	var errs []error

	if z := MaxZeros(rowSize); s.Zeros > z {
		errs = append(errs, fmt.Errorf("%d rows never sampled, want at most %d", s.Zeros, z))
	}
	if ub := mean + 6*std; float64(s.Max) >= ub {
		errs = append(errs, fmt.Errorf("max hits %d, want below %.2f", s.Max, ub))
	}
	if math.Abs(s.Mean-mean) >= mean*0.1 {
		errs = append(errs, fmt.Errorf("mean %.3f, want %.3f within 10%%", s.Mean, mean))
	}
	if math.Abs(s.Std-std) >= std*0.1 {
		errs = append(errs, fmt.Errorf("std %.3f, want %.3f within 10%%", s.Std, std))
	}
	for i, q := range Percentiles {
		if i >= len(s.Percentiles) {
			break
		}
		want := normalQuantile(mean, std, q/100)
		if math.Abs(s.Percentiles[i]-want) >= want*0.1 {
			errs = append(errs, fmt.Errorf("p%g %.2f, want %.2f within 10%%", q, s.Percentiles[i], want))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("testutil: distribution check failed: %w", errors.Join(errs...))
	}
	return nil
}

func normalQuantile(mean, std, p float64) float64 {
	return mean + std*math.Sqrt2*math.Erfinv(2*p-1)
}
