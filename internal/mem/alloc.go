package mem

import (
	"unsafe"
)

const (
	// SectorSize is the logical block size assumed for direct I/O.
	SectorSize = 512
	// PageSize is the OS page size assumed for buffer alignment.
	PageSize = 4096
)

// AllocAligned allocates a byte slice of the given size whose first byte is
// aligned to align, which must be a power of two.
//
// Note: This function allocates align extra bytes to find an aligned offset.
// The underlying array is kept alive by the returned slice.
func AllocAligned(size, align int) []byte {
	if size <= 0 {
		return nil
	}
	if align <= 0 || align&(align-1) != 0 {
		panic("mem: alignment must be a power of two")
	}

	buf := make([]byte, size+align)

	addr := uintptr(unsafe.Pointer(&buf[0])) //nolint:gosec // unsafe is required for memory alignment
	offset := int((uintptr(align) - (addr & uintptr(align-1))) & uintptr(align-1))

	return buf[offset : offset+size : offset+size]
}

// AllocAlignedFloat32 allocates n float32 elements aligned to align bytes.
func AllocAlignedFloat32(n, align int) []float32 {
	if n <= 0 {
		return nil
	}
	return AsFloat32(AllocAligned(n*4, align))
}

// AsBytes returns the bytes backing f. The views share memory.
func AsBytes(f []float32) []byte {
	if len(f) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&f[0])), len(f)*4) //nolint:gosec // zero-copy view
}

// AsFloat32 returns b viewed as float32 elements. len(b) must be a multiple
// of 4 and b must be 4-byte aligned.
func AsFloat32(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	if len(b)%4 != 0 || uintptr(unsafe.Pointer(&b[0]))%4 != 0 { //nolint:gosec // alignment check
		panic("mem: byte slice is not a whole number of aligned float32 elements")
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4) //nolint:gosec // zero-copy view
}

// IsAligned reports whether the first byte of b is aligned to align.
func IsAligned(b []byte, align int) bool {
	if len(b) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(&b[0]))%uintptr(align) == 0 //nolint:gosec // alignment check
}

// AlignDown rounds x down to a multiple of align (a power of two).
func AlignDown(x, align int64) int64 { return x &^ (align - 1) }

// AlignUp rounds x up to a multiple of align (a power of two).
func AlignUp(x, align int64) int64 { return (x + align - 1) &^ (align - 1) }
