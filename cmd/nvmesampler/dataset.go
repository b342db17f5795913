package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"

	nvmesampler "github.com/RTBHOUSE/nvme-sampler"
	"github.com/RTBHOUSE/nvme-sampler/source"
	miniosrc "github.com/RTBHOUSE/nvme-sampler/source/minio"
	s3src "github.com/RTBHOUSE/nvme-sampler/source/s3"
)

// openDataset opens mapped and remote datasets. Plain local paths return a
// nil source and are opened by the sampler itself.
func openDataset(ctx context.Context, c Config, loc source.Location) (source.Source, error) {
	switch loc.Scheme {
	case "file":
		return nil, nil
	case "mmap":
		return source.OpenMmap(loc.Path)
	case "s3":
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return s3src.Open(ctx, s3src.NewFromConfig(awsCfg), loc.Bucket, loc.Key)
	case "minio":
		client, err := miniosrc.NewClient(loc.Host, miniosrc.Options{
			AccessKey: c.MinioAccessKey,
			SecretKey: c.MinioSecretKey,
			Secure:    c.MinioSecure,
		})
		if err != nil {
			return nil, err
		}
		return miniosrc.Open(ctx, client, loc.Bucket, loc.Key)
	default:
		return nil, fmt.Errorf("unsupported scheme %q", loc.Scheme)
	}
}

// openSampler opens the dataset named by c.Path and a sampler over it.
// The returned close function releases both.
func openSampler(ctx context.Context, c Config, logger *nvmesampler.Logger, mc nvmesampler.MetricsCollector) (*nvmesampler.Sampler, func() error, error) {
	loc, err := source.ParseLocation(c.Path)
	if err != nil {
		return nil, nil, err
	}
	src, err := openDataset(ctx, c, loc)
	if err != nil {
		return nil, nil, err
	}

	opts := []nvmesampler.Option{
		nvmesampler.WithLogger(logger),
		nvmesampler.WithDirectIO(c.DirectIO),
	}
	if mc != nil {
		opts = append(opts, nvmesampler.WithMetricsCollector(mc))
	}
	if src != nil {
		opts = append(opts, nvmesampler.WithSource(src))
	}
	if c.Seed >= 0 {
		opts = append(opts, nvmesampler.WithSeed(uint32(c.Seed)))
	}
	if c.IORateLimit > 0 {
		opts = append(opts, nvmesampler.WithIORateLimit(c.IORateLimit))
	}

	cfg := nvmesampler.Config{
		Path:             loc.Path,
		NumRows:          c.NumRows,
		RowSize:          c.RowSize,
		MaxBatchElements: c.MaxBatch,
		MaxNumThreads:    c.Threads,
		MemoryUsageLimit: c.MemoryLimit,
	}
	s, err := nvmesampler.Open(ctx, cfg, opts...)
	if err != nil {
		if src != nil {
			_ = src.Close()
		}
		return nil, nil, err
	}

	closeFn := func() error {
		err := s.Close()
		if src != nil {
			if cerr := src.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		return err
	}
	return s, closeFn, nil
}
