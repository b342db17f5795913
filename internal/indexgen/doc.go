// Package indexgen draws row indices for the sampler.
//
// Every draw is independent and uniform over [0, numRows), i.e. rows are
// sampled with replacement. A [Generator] is a single PCG stream guarded by a
// mutex. The dispatcher draws from it in slot order, which makes the row
// sequence reproducible for a fixed seed regardless of the number of I/O
// workers.
//
// Optionally the Generator records every drawn row in a roaring bitmap so the
// number of distinct rows touched so far can be reported.
package indexgen
