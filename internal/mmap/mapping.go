//go:build unix

package mmap

import (
	"errors"
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

var (
	// ErrInvalidSize is returned for a mapping of zero or negative length.
	ErrInvalidSize = errors.New("mmap: invalid size")
)

// Mapping is a region obtained from mmap(2). Close unmaps it.
type Mapping struct {
	data   []byte
	closed atomic.Bool
}

// MapFile maps the first size bytes of f read-only and shared, so reads are
// served from the page cache. The mapping stays valid after f is closed.
func MapFile(f *os.File, size int) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data}, nil
}

// MapAnon returns a zeroed, page-aligned, read-write region of size bytes
// outside the Go heap.
func MapAnon(size int) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data}, nil
}

// AdviseRandom tells the kernel pages are touched in no particular order,
// which turns off readahead around each fault.
func (m *Mapping) AdviseRandom() error {
	data := m.Bytes()
	if data == nil {
		return nil
	}
	return unix.Madvise(data, unix.MADV_RANDOM)
}

// Bytes returns the mapped region, or nil after Close.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Len returns the length of the region in bytes.
func (m *Mapping) Len() int { return len(m.data) }

// Close unmaps the region. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	return unix.Munmap(m.data)
}
