// Package resource enforces the sampler's resource budgets.
//
// A Controller governs two resources:
//
//   - Memory: the ring buffer (and any scratch space) is reserved against a
//     hard byte budget. Reservation is fail-fast: TryAcquireMemory never blocks
//     and AcquireMemory returns ErrMemoryLimitExceeded immediately.
//   - IO: an optional token bucket throttles worker reads so the sampler can
//     share a device with other tenants.
//
// # Usage
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:   8 << 30,
//	    IOLimitBytesPerSec: 2 << 30,
//	})
//	if err := rc.AcquireMemory(ringBytes); err != nil {
//	    return err
//	}
//	defer rc.ReleaseMemory(ringBytes)
//
//	// in each worker, before a read of rowSize bytes
//	if err := rc.AcquireIO(ctx, rowSize); err != nil {
//	    return err
//	}
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
package resource
