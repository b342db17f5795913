// Package mem provides memory allocation utilities.
//
// # Aligned Allocation
//
// Direct I/O requires buffers aligned to the device's logical block size, and
// rows are handed out as 4-byte elements. AllocAligned returns heap slices
// aligned to any power-of-two boundary; PageSize alignment satisfies both.
//
// # Views
//
// AsBytes and AsFloat32 reinterpret memory between the engine's byte-level
// view of the ring and the caller's element-level view without copying.
package mem
