package mem

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocAligned(t *testing.T) {
	sizes := []int{1, 10, 63, 64, 65, 100, 1024, 5000}
	aligns := []int{4, 64, SectorSize, PageSize}

	for _, align := range aligns {
		for _, size := range sizes {
			buf := AllocAligned(size, align)
			assert.Len(t, buf, size)
			assert.Equal(t, size, cap(buf))
			assert.True(t, IsAligned(buf, align), "size %d align %d", size, align)
		}
	}

	assert.Nil(t, AllocAligned(0, 64))
	assert.Nil(t, AllocAligned(-1, 64))
	assert.Panics(t, func() { AllocAligned(10, 3) })
}

func TestAllocAlignedFloat32(t *testing.T) {
	for _, n := range []int{1, 10, 16, 17, 100, 1024} {
		f := AllocAlignedFloat32(n, PageSize)
		assert.Len(t, f, n)
		assert.True(t, IsAligned(AsBytes(f), PageSize))
	}
	assert.Nil(t, AllocAlignedFloat32(0, PageSize))
}

func TestViews(t *testing.T) {
	f := []float32{1, 2, 3}
	b := AsBytes(f)
	assert.Len(t, b, 12)

	back := AsFloat32(b)
	back[1] = 42
	assert.Equal(t, float32(42), f[1], "views share memory")

	assert.Nil(t, AsBytes(nil))
	assert.Nil(t, AsFloat32(nil))
	assert.Panics(t, func() { AsFloat32(make([]byte, 6)) })
}

func TestAlign(t *testing.T) {
	assert.Equal(t, int64(4096), AlignDown(5000, PageSize))
	assert.Equal(t, int64(8192), AlignUp(5000, PageSize))
	assert.Equal(t, int64(512), AlignUp(512, SectorSize))
	assert.Equal(t, int64(0), AlignDown(511, SectorSize))
}

func BenchmarkAllocAligned(b *testing.B) {
	for _, size := range []int{4096, 65536, 1 << 20} {
		b.Run(fmt.Sprintf("size=%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = AllocAligned(size, PageSize)
			}
		})
	}
}
