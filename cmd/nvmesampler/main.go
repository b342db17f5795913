// Command nvmesampler generates fixture datasets, benchmarks sampling
// throughput and checks sampled rows for integrity and uniformity.
//
//	nvmesampler -mode gen   -path /nvme/test.bin -numrows 100000 -rowsize 1016
//	nvmesampler -mode check -path /nvme/test.bin -numrows 100000 -rowsize 1016
//	nvmesampler -mode bench -path s3://bucket/train.bin -numrows 1000000 -rowsize 1024 -batchsize 512
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fulldump/goconfig"
	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	nvmesampler "github.com/RTBHOUSE/nvme-sampler"
)

func main() {
	c := Default()
	goconfig.Read(&c)

	if c.ShowConfig {
		_ = jsonv2.MarshalWrite(os.Stdout, c, jsontext.WithIndent("    "))
		fmt.Println()
	}

	logger := nvmesampler.NewTextLogger(parseLevel(c.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, c, logger, os.Stdout); err != nil {
		logger.Error("nvmesampler failed", "mode", c.Mode, "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, c Config, logger *nvmesampler.Logger, stdout io.Writer) error {
	switch strings.ToLower(c.Mode) {
	case "gen":
		return generate(c, logger)
	case "bench":
		return bench(ctx, c, logger, stdout)
	case "check":
		return check(ctx, c, logger, stdout)
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
