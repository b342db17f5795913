// Package s3 provides an Amazon S3 implementation of source.Source.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	src, err := s3.Open(ctx, s3.NewFromConfig(cfg), "my-bucket", "datasets/train.bin")
//
//	smp, err := nvmesampler.Open(ctx, cfg, nvmesampler.WithSource(src))
//
// Every row is fetched with one ranged GetObject request, so throughput is
// bounded by request latency times the number of workers.
package s3
