package main

import (
	"fmt"
	"io"
	"os"
	"time"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	nvmesampler "github.com/RTBHOUSE/nvme-sampler"
	"github.com/RTBHOUSE/nvme-sampler/testutil"
)

// Report summarizes a bench or check run.
type Report struct {
	Mode    string `json:"mode"`
	Path    string `json:"path"`
	NumRows int64  `json:"num_rows"`
	RowSize int    `json:"row_size"`
	Batch   int    `json:"batch_size"`
	Threads int    `json:"threads"`
	Seed    uint32 `json:"seed"`

	Rows          int64   `json:"rows"`
	ElapsedSec    float64 `json:"elapsed_sec"`
	RowsPerSec    float64 `json:"rows_per_sec"`
	GiBPerSec     float64 `json:"gib_per_sec"`
	BatchesPerSec float64 `json:"batches_per_sec"`

	Sampler nvmesampler.Stats `json:"sampler"`

	Hits       *testutil.HitStats `json:"hits,omitempty"`
	CheckError string             `json:"check_error,omitempty"`
}

func newReport(c Config, seed uint32, rows int64, elapsed time.Duration, st nvmesampler.Stats) Report {
	r := Report{
		Mode:    c.Mode,
		Path:    c.Path,
		NumRows: c.NumRows,
		RowSize: c.RowSize,
		Batch:   c.BatchSize,
		Threads: c.Threads,
		Seed:    seed,
		Rows:    rows,
		Sampler: st,
	}
	if sec := elapsed.Seconds(); sec > 0 {
		r.ElapsedSec = sec
		r.RowsPerSec = float64(rows) / sec
		r.GiBPerSec = float64(rows) * float64(c.RowSize) / sec / (1 << 30)
		r.BatchesPerSec = float64(st.Batches) / sec
	}
	return r
}

// writeReport writes r as indented JSON to path, or to stdout when path is
// "-". An empty path discards the report.
func writeReport(path string, stdout io.Writer, r Report) error {
	switch path {
	case "":
		return nil
	case "-":
		return encodeReport(stdout, r)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := encodeReport(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func encodeReport(w io.Writer, r Report) error {
	if err := jsonv2.MarshalWrite(w, r, jsontext.WithIndent("  ")); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}
