package minio

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/RTBHOUSE/nvme-sampler/source"
)

// Options configures NewClient.
type Options struct {
	AccessKey string
	SecretKey string
	Secure    bool
	Region    string
}

// NewClient creates a MinIO client with static credentials.
func NewClient(endpoint string, opts Options) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.Secure,
		Region: opts.Region,
	})
}

// Source reads a single object with ranged GETs.
type Source struct {
	client *minio.Client
	bucket string
	key    string
	size   int64
}

var _ source.Source = (*Source)(nil)

// Open verifies the object exists and records its size.
func Open(ctx context.Context, client *minio.Client, bucket, key string) (*Source, error) {
	info, err := client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("minio %s/%s: %w", bucket, key, source.ErrNotFound)
		}
		return nil, err
	}

	return &Source{
		client: client,
		bucket: bucket,
		key:    key,
		size:   info.Size,
	}, nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return true
	}
	return false
}

func (s *Source) Size() int64 { return s.size }

func (s *Source) Close() error { return nil }

// ReadAt reads len(p) bytes starting at offset off.
func (s *Source) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	end, ok := clampRange(off, len(p), s.size)
	if !ok {
		return 0, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return 0, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, s.key, opts)
	if err != nil {
		return 0, err
	}
	defer func() { _ = obj.Close() }()

	want := int(end - off + 1)
	n, err := io.ReadFull(obj, p[:want])
	if err != nil {
		if err == io.ErrUnexpectedEOF {
			return n, io.EOF
		}
		return n, err
	}
	if want < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// clampRange returns the inclusive end of the byte range [off, off+n) within
// an object of size bytes. ok is false when the range is empty.
func clampRange(off int64, n int, size int64) (end int64, ok bool) {
	if off < 0 || off >= size || n <= 0 {
		return 0, false
	}
	end = off + int64(n) - 1
	if end >= size {
		end = size - 1
	}
	return end, true
}
