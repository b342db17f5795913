package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLocalFS(t *testing.T) {
	path := writeFile(t, "test.bin", []byte("hello world"))
	lfs := LocalFS{}

	f, err := lfs.OpenFile(path, os.O_RDONLY, 0)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 5)
	n, err := f.ReadAt(buf, 6)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "world", string(buf))

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(11), info.Size())
	assert.NotZero(t, f.Fd())

	info2, err := lfs.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(11), info2.Size())

	_, err = lfs.OpenFile(filepath.Join(t.TempDir(), "missing"), os.O_RDONLY, 0)
	assert.True(t, os.IsNotExist(err))
}

func TestFaultyFS_FailAfterReads(t *testing.T) {
	path := writeFile(t, "data.bin", make([]byte, 64))
	ffs := NewFaultyFS(nil)
	ffs.AddRule("data.bin", Fault{FailAfterReads: 2, FailAtOffset: -1})

	f, err := ffs.OpenFile(path, os.O_RDONLY, 0)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 8)
	for i := 0; i < 2; i++ {
		_, err = f.ReadAt(buf, 0)
		require.NoError(t, err)
	}
	_, err = f.ReadAt(buf, 0)
	assert.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, int64(3), ffs.Reads())
}

func TestFaultyFS_FailAtOffset(t *testing.T) {
	path := writeFile(t, "data.bin", make([]byte, 64))
	ffs := NewFaultyFS(nil)
	ffs.Default = Fault{FailAfterReads: -1, FailAtOffset: 20}

	f, err := ffs.OpenFile(path, os.O_RDONLY, 0)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 8)
	_, err = f.ReadAt(buf, 8)
	assert.NoError(t, err)
	_, err = f.ReadAt(buf, 16)
	assert.ErrorIs(t, err, ErrInjected)
	_, err = f.ReadAt(buf, 24)
	assert.NoError(t, err)
}

func TestFaultyFS_ShortReadAndClose(t *testing.T) {
	path := writeFile(t, "data.bin", make([]byte, 64))
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("data", Fault{FailAfterReads: -1, FailAtOffset: -1, ShortRead: true, FailOnClose: true})

	f, err := ffs.OpenFile(path, os.O_RDONLY, 0)
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := f.ReadAt(buf, 0)
	assert.NoError(t, err)
	assert.Equal(t, 8, n)

	assert.ErrorIs(t, f.Close(), ErrInjected)

	_, err = ffs.Stat(path)
	assert.NoError(t, err)
}
