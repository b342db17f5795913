package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/RTBHOUSE/nvme-sampler/internal/fs"
	"github.com/RTBHOUSE/nvme-sampler/internal/mem"
)

// FileOption configures OpenFile.
type FileOption func(*fileOptions)

type fileOptions struct {
	fs     fs.FileSystem
	direct bool
}

// WithFileSystem opens the dataset through fsys instead of the local file system.
func WithFileSystem(fsys fs.FileSystem) FileOption {
	return func(o *fileOptions) {
		o.fs = fsys
	}
}

// WithDirectIO requests O_DIRECT reads that bypass the page cache. Where the
// platform or file system does not support it, reads fall back to buffered I/O.
func WithDirectIO(enabled bool) FileOption {
	return func(o *fileOptions) {
		o.direct = enabled
	}
}

// File is a Source over a local file opened read-only.
type File struct {
	f      fs.File
	name   string
	size   int64
	direct bool
	closed atomic.Bool

	// Aligned scratch buffers for direct reads of unaligned rows.
	scratch sync.Pool
}

// OpenFile opens the regular file at path for random positioned reads.
func OpenFile(path string, opts ...FileOption) (*File, error) {
	o := fileOptions{fs: fs.Default}
	for _, fn := range opts {
		fn(&o)
	}

	fi, err := o.fs.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegular, path)
	}

	direct := o.direct && directFlag != 0
	flag := os.O_RDONLY
	if direct {
		flag |= directFlag
	}

	f, err := o.fs.OpenFile(path, flag, 0)
	if err != nil && direct && isDirectUnsupported(err) {
		direct = false
		f, err = o.fs.OpenFile(path, os.O_RDONLY, 0)
	}
	if err != nil {
		return nil, err
	}

	// Access hints are advisory; failure to apply them is not an error.
	_ = adviseRandom(f.Fd())

	return &File{
		f:      f,
		name:   path,
		size:   fi.Size(),
		direct: direct,
	}, nil
}

// Direct reports whether reads bypass the page cache.
func (f *File) Direct() bool { return f.direct }

// Name returns the path the file was opened with.
func (f *File) Name() string { return f.name }

func (f *File) Size() int64 { return f.size }

func (f *File) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if f.closed.Load() {
		return 0, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !f.direct || aligned(p, off) {
		return f.f.ReadAt(p, off)
	}
	return f.readDirect(p, off)
}

func aligned(p []byte, off int64) bool {
	return off%mem.SectorSize == 0 && len(p)%mem.SectorSize == 0 && mem.IsAligned(p, mem.SectorSize)
}

// readDirect reads the sector-aligned span covering [off, off+len(p)) into
// aligned scratch memory and copies the requested bytes out.
func (f *File) readDirect(p []byte, off int64) (int, error) {
	start := mem.AlignDown(off, mem.SectorSize)
	end := mem.AlignUp(off+int64(len(p)), mem.SectorSize)
	need := int(end - start)

	buf := f.getScratch(need)
	defer f.scratch.Put(buf)

	n, err := f.f.ReadAt((*buf)[:need], start)
	skip := int(off - start)
	if n <= skip {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}

	m := copy(p, (*buf)[skip:n])
	if m < len(p) {
		if err == nil || errors.Is(err, io.EOF) {
			return m, io.EOF
		}
		return m, err
	}
	return m, nil
}

func (f *File) getScratch(need int) *[]byte {
	if v := f.scratch.Get(); v != nil {
		buf := v.(*[]byte)
		if cap(*buf) >= need {
			return buf
		}
	}
	buf := mem.AllocAligned(need, mem.PageSize)
	return &buf
}

// Close closes the underlying file. It is idempotent.
func (f *File) Close() error {
	if f.closed.Swap(true) {
		return nil
	}
	return f.f.Close()
}
