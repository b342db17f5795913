package testutil

import (
	"encoding/binary"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	row := make([]float32, 6)
	FillRow(row, 7)
	assert.Equal(t, []float32{7, 7.25, 7.125, 7.25, 7.125, 7.5}, row)

	short := make([]float32, 2)
	FillRow(short, 3)
	assert.Equal(t, []float32{3, 3.5}, short)
}

func TestWriteFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.bin")
	require.NoError(t, WriteFixture(path, 10, 16))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, 10*16)

	for i := 0; i < 10; i++ {
		row := make([]float32, 4)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*16+j*4:]))
		}
		idx, err := CheckRow(row, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(i), idx)
	}

	assert.Error(t, WriteFixture(path, 10, 6))
	assert.Error(t, WriteFixture(path, 0, 16))
	assert.Error(t, WriteFixture(filepath.Join(t.TempDir(), "missing", "f.bin"), 1, 16))
}

func TestCheckRow(t *testing.T) {
	row := make([]float32, 8)
	FillRow(row, 42)

	idx, err := CheckRow(row, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(42), idx)

	_, err = CheckRow(row, 42)
	assert.Error(t, err, "index out of range")

	torn := make([]float32, 8)
	copy(torn, row)
	FillRow(torn[4:], 43)
	_, err = CheckRow(torn, 100)
	assert.Error(t, err, "torn row")

	frac := make([]float32, 8)
	copy(frac, row)
	frac[0] = 42.5
	_, err = CheckRow(frac, 100)
	assert.Error(t, err)

	_, err = CheckRow(row[:1], 100)
	assert.Error(t, err)
}

func TestHitCounter(t *testing.T) {
	h := NewHitCounter(4)
	for _, r := range []int64{0, 0, 1, 3, 3, 3} {
		h.Add(r)
	}

	st := h.Stats()
	assert.Equal(t, uint64(6), h.Samples())
	assert.Equal(t, int64(4), st.Rows)
	assert.InDelta(t, 1.5, st.Mean, 1e-9)
	assert.Equal(t, uint32(3), st.Max)
	assert.Equal(t, int64(1), st.Zeros)
	// counts = [2 1 0 3] -> population std
	assert.InDelta(t, math.Sqrt(1.25), st.Std, 1e-9)
	require.Len(t, st.Percentiles, len(Percentiles))
	assert.InDelta(t, 1.5, st.Percentiles[3], 1e-9)
}

func TestHitStats_CheckUniform(t *testing.T) {
	const rows = 20_000
	const samples = 25 * rows

	rng := rand.New(rand.NewPCG(1, 2))
	h := NewHitCounter(rows)
	for i := 0; i < samples; i++ {
		h.Add(rng.Int64N(rows))
	}

	st := h.Stats()
	mean, std := Expected(samples, rows)
	assert.InEpsilon(t, mean, st.Mean, 0.1)
	assert.InEpsilon(t, std, st.Std, 0.1)
	assert.LessOrEqual(t, st.Zeros, MaxZeros(1016))
}

func TestHitStats_CheckRejectsSkew(t *testing.T) {
	const rows = 1000
	h := NewHitCounter(rows)
	// Half the rows never sampled.
	for i := 0; i < 25*rows; i++ {
		h.Add(int64(i % (rows / 2)))
	}

	err := h.Stats().Check(1016)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "never sampled")

	assert.Error(t, NewHitCounter(10).Stats().Check(1016))
}

func TestMaxZeros(t *testing.T) {
	assert.Equal(t, int64(96), MaxZeros(1016))
	assert.Equal(t, int64(96), MaxZeros(1024))
}

func TestNormalQuantile(t *testing.T) {
	assert.InDelta(t, 25.0, normalQuantile(25, 5, 0.5), 1e-9)
	assert.InDelta(t, 25+1.2815515655*5, normalQuantile(25, 5, 0.9), 1e-6)
}
