// Package dispatch coordinates the ring, the index generator and the I/O
// pool on behalf of a single consumer.
//
// Every free slot is dispatched with a freshly drawn row index as soon as it
// is released, so the whole ring is kept in flight ahead of the consumer.
// Indices are drawn under the dispatcher lock in sequence order, which makes
// the row sequence a function of the seed alone, independent of how many
// workers complete reads or in which order.
//
// Next hands out contiguous slot ranges. A batch that would straddle the end
// of the ring skips the remaining tail slots (their rows are discarded) and
// starts again at slot 0, so every batch is one contiguous memory region.
// Slots of the returned batch stay untouched until the following call to
// Next.
package dispatch
