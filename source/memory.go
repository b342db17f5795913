package source

import (
	"context"
	"io"
	"sync/atomic"
)

// Memory is an in-memory Source. It does not copy data.
type Memory struct {
	data   []byte
	closed atomic.Bool
}

// NewMemory returns a Source over data.
func NewMemory(data []byte) *Memory {
	return &Memory{data: data}
}

func (m *Memory) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *Memory) Size() int64 { return int64(len(m.data)) }

func (m *Memory) Bytes() []byte { return m.data }

func (m *Memory) Close() error {
	m.closed.Store(true)
	return nil
}
