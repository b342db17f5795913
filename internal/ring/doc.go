// Package ring implements the fixed-capacity slot ring the sampler reads into.
//
// A Ring is a view over a caller-owned byte region cut into row-sized slots.
// It never allocates or frees that region. Each slot moves through
//
//	Empty -> Pending -> Ready | Error -> Consumed -> Empty
//
// Pending means exactly one worker owns the slot and is writing into it.
// Consumed means the slot belongs to the batch most recently returned to the
// consumer; it is only reclaimed when the consumer asks for the next batch.
//
// Positions are tracked with monotonically increasing sequence numbers
// (slot = seq % capacity). The watermarks satisfy
//
//	Released <= ConsumedThrough <= Dispatched
//	Dispatched - Released <= Capacity
//
// The Ring itself is not synchronized; the dispatcher serializes access.
package ring
