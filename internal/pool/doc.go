// Package pool runs the fixed set of I/O goroutines that fill ring slots.
//
// Workers block on a buffered task channel, perform one positioned read per
// task directly into the slot's memory, and report the outcome through a
// completion callback. The channel is sized to the ring capacity, so Submit
// never blocks: the number of outstanding tasks is bounded by the ring.
package pool
