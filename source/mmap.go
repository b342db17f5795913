package source

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/RTBHOUSE/nvme-sampler/internal/mmap"
)

// Mmap is a Source over a read-only memory mapping of a local file.
// Reads copy out of the mapping and fault pages in on demand, so hot rows
// are served from the page cache without a syscall.
type Mmap struct {
	m    *mmap.Mapping
	name string
}

// OpenMmap maps the dataset at path and advises the kernel of random access.
func OpenMmap(path string) (*Mmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegular, path)
	}
	if fi.Size() > math.MaxInt {
		return nil, fmt.Errorf("source: %s is too large to map (%d bytes)", path, fi.Size())
	}

	m, err := mmap.MapFile(f, int(fi.Size()))
	if err != nil {
		return nil, fmt.Errorf("source: map %s: %w", path, err)
	}
	// Advice is best-effort.
	_ = m.AdviseRandom()
	return &Mmap{m: m, name: path}, nil
}

func (s *Mmap) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data := s.m.Bytes()
	if data == nil {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("source: negative offset %d", off)
	}
	if off >= int64(len(data)) {
		return 0, io.EOF
	}
	n := copy(p, data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Name returns the mapped path.
func (s *Mmap) Name() string { return s.name }

func (s *Mmap) Size() int64 { return int64(s.m.Len()) }

func (s *Mmap) Close() error { return s.m.Close() }
