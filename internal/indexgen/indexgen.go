package indexgen

import (
	"math/rand/v2"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// golden is the SplitMix64 increment.
const golden = 0x9e3779b97f4a7c15

// mix expands the 32-bit seed with a SplitMix64 finalizer, so neighbouring
// seeds produce unrelated PCG states.
func mix(seed uint32) uint64 {
	z := uint64(seed) + golden
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Option configures a Generator.
type Option func(*Generator)

// WithCoverage enables tracking of distinct rows drawn.
func WithCoverage() Option {
	return func(g *Generator) {
		g.coverage = roaring64.New()
	}
}

// Generator produces uniformly distributed row indices.
// It is safe for concurrent use.
type Generator struct {
	numRows int64
	seed    uint32

	mu       sync.Mutex
	rng      *rand.Rand
	draws    uint64
	coverage *roaring64.Bitmap // nil unless WithCoverage
}

// New creates a Generator over [0, numRows). numRows must be positive.
func New(numRows int64, seed uint32, opts ...Option) *Generator {
	if numRows <= 0 {
		panic("indexgen: numRows must be positive")
	}
	g := &Generator{
		numRows: numRows,
		seed:    seed,
		rng:     newRand(seed),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func newRand(seed uint32) *rand.Rand {
	s := mix(seed)
	return rand.New(rand.NewPCG(s, s^golden))
}

// Next returns the next row index.
func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nextLocked()
}

// Fill writes len(dst) fresh indices into dst under a single lock acquisition.
func (g *Generator) Fill(dst []int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range dst {
		dst[i] = g.nextLocked()
	}
}

func (g *Generator) nextLocked() int64 {
	row := g.rng.Int64N(g.numRows)
	g.draws++
	if g.coverage != nil {
		g.coverage.Add(uint64(row))
	}
	return row
}

// Draws returns the number of indices produced so far.
func (g *Generator) Draws() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.draws
}

// Distinct returns the number of distinct rows drawn so far,
// or 0 if coverage tracking is disabled.
func (g *Generator) Distinct() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.coverage == nil {
		return 0
	}
	return g.coverage.GetCardinality()
}

// NumRows returns the size of the sampled range.
func (g *Generator) NumRows() int64 { return g.numRows }

// Seed returns the seed.
func (g *Generator) Seed() uint32 { return g.seed }
