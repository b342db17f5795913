// Package mmap wraps the two kinds of mapping the sampler uses.
//
// MapAnon backs the ring buffer when the caller does not supply one, so
// gigabytes of slots live outside the Go heap. MapFile gives the mmap row
// source a read-only view of the dataset.
//
// Bytes must not be used after Close; the caller serializes the two.
package mmap
