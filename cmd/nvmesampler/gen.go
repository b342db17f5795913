package main

import (
	"errors"
	"time"

	nvmesampler "github.com/RTBHOUSE/nvme-sampler"
	"github.com/RTBHOUSE/nvme-sampler/source"
	"github.com/RTBHOUSE/nvme-sampler/testutil"
)

func generate(c Config, logger *nvmesampler.Logger) error {
	loc, err := source.ParseLocation(c.Path)
	if err != nil {
		return err
	}
	if loc.Scheme != "file" && loc.Scheme != "mmap" {
		return errors.New("gen writes local files only")
	}

	start := time.Now()
	if err := testutil.WriteFixture(loc.Path, c.NumRows, c.RowSize); err != nil {
		return err
	}
	logger.Info("fixture written",
		"path", loc.Path,
		"rows", c.NumRows,
		"row_size", c.RowSize,
		"bytes", c.NumRows*int64(c.RowSize),
		"elapsed", time.Since(start),
	)
	return nil
}
