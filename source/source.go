package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

var (
	// ErrNotFound is returned when the dataset does not exist.
	// It maps to os.ErrNotExist.
	ErrNotFound = os.ErrNotExist

	// ErrClosed is returned when reading from a closed source.
	ErrClosed = errors.New("source: closed")

	// ErrNotRegular is returned when the dataset path is not a regular file.
	ErrNotRegular = errors.New("source: not a regular file")
)

// Source is a read-only, fixed-size dataset.
type Source interface {
	// ReadAt reads len(p) bytes starting at byte offset off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// Size returns the dataset size in bytes.
	Size() int64
	Close() error
}

// Location is a parsed dataset URI.
type Location struct {
	Scheme string // "file", "mmap", "s3" or "minio"
	Host   string // bucket for s3; endpoint for minio
	Bucket string
	Key    string
	Path   string // local path for file and mmap
}

// ParseLocation parses a dataset location.
//
//	/data/train.bin              local file
//	file:///data/train.bin       local file
//	mmap:///data/train.bin       local file, memory-mapped
//	s3://bucket/key              Amazon S3 object
//	minio://host:9000/bucket/key MinIO object
func ParseLocation(raw string) (Location, error) {
	if !strings.Contains(raw, "://") {
		if raw == "" {
			return Location{}, errors.New("source: empty location")
		}
		return Location{Scheme: "file", Path: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("source: parse %q: %w", raw, err)
	}

	switch u.Scheme {
	case "file", "mmap":
		if u.Path == "" {
			return Location{}, fmt.Errorf("source: %q has no path", raw)
		}
		return Location{Scheme: u.Scheme, Path: u.Path}, nil
	case "s3":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, fmt.Errorf("source: %q must be s3://bucket/key", raw)
		}
		return Location{Scheme: "s3", Host: u.Host, Bucket: u.Host, Key: key}, nil
	case "minio":
		bucket, key, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		if u.Host == "" || bucket == "" || key == "" {
			return Location{}, fmt.Errorf("source: %q must be minio://endpoint/bucket/key", raw)
		}
		return Location{Scheme: "minio", Host: u.Host, Bucket: bucket, Key: key}, nil
	default:
		return Location{}, fmt.Errorf("source: unsupported scheme %q", u.Scheme)
	}
}
