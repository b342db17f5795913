package main

// Config is read from flags and environment variables by goconfig.
type Config struct {
	Mode string `usage:"gen | bench | check"`

	Path        string `usage:"dataset: path, file://path, mmap://path, s3://bucket/key or minio://endpoint/bucket/key"`
	NumRows     int64  `usage:"number of rows in the dataset"`
	RowSize     int    `usage:"row size in bytes, a multiple of 4"`
	MaxBatch    int    `usage:"largest batch the sampler accepts, in rows"`
	BatchSize   int    `usage:"rows per ReadBatch call"`
	Threads     int    `usage:"number of I/O goroutines (1..64)"`
	MemoryLimit int64  `usage:"ring buffer budget in bytes"`

	Samples     int64 `usage:"rows to sample in bench and check modes"`
	Seed        int64 `usage:"row index seed; negative picks a random seed"`
	DirectIO    bool  `usage:"bypass the page cache with O_DIRECT"`
	IORateLimit int64 `usage:"throttle reads to this many bytes per second; 0 disables"`

	MinioAccessKey string `usage:"MinIO access key"`
	MinioSecretKey string `usage:"MinIO secret key"`
	MinioSecure    bool   `usage:"use HTTPS for MinIO"`

	MetricsAddr string `usage:"serve Prometheus metrics on this address; empty disables"`
	Report      string `usage:"write a JSON report to this file; - for stdout"`
	LogLevel    string `usage:"debug | info | warn | error"`
	ShowConfig  bool   `usage:"print config"`
}

// Default returns a small benchmark configuration: 1016-byte rows and
// batches of one row.
func Default() Config {
	return Config{
		Mode:        "bench",
		Path:        "nvme_test.bin",
		NumRows:     100_000,
		RowSize:     1016,
		MaxBatch:    128,
		BatchSize:   1,
		Threads:     8,
		MemoryLimit: 2 << 24,
		Samples:     2_500_000,
		Seed:        -1,
		LogLevel:    "info",
		Report:      "-",
	}
}
