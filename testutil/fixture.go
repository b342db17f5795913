package testutil

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// Tolerance is the largest accepted per-element deviation in CheckRow.
const Tolerance = 1e-3

// Value returns element col of row in a fixture with elems elements per row.
func Value(row int64, col, elems int) float32 {
	base := float32(row)
	switch {
	case col == 0:
		return base
	case col == elems-1:
		return base + 0.5
	case col%2 == 1:
		return base + 0.25
	default:
		return base + 0.125
	}
}

// FillRow writes the fixture contents of row into dst.
func FillRow(dst []float32, row int64) {
	for col := range dst {
		dst[col] = Value(row, col, len(dst))
	}
}

// WriteFixture creates path holding numRows fixture rows of rowSize bytes.
func WriteFixture(path string, numRows int64, rowSize int) (err error) {
	if numRows <= 0 || rowSize <= 0 || rowSize%4 != 0 {
		return fmt.Errorf("testutil: invalid fixture geometry rows=%d rowSize=%d", numRows, rowSize)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriterSize(f, 1<<20)
	elems := rowSize / 4
	row := make([]float32, elems)
	buf := make([]byte, rowSize)

	for i := int64(0); i < numRows; i++ {
		FillRow(row, i)
		for j, v := range row {
			binary.LittleEndian.PutUint32(buf[j*4:], math.Float32bits(v))
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return w.Flush()
}

// CheckRow verifies that row is an intact fixture row and returns its index.
func CheckRow(row []float32, numRows int64) (int64, error) {
	if len(row) < 2 {
		return 0, fmt.Errorf("testutil: row of %d elements is too short", len(row))
	}

	lead := row[0]
	if lead != float32(math.Trunc(float64(lead))) {
		return 0, fmt.Errorf("testutil: leading element %v is not an index", lead)
	}
	idx := int64(lead)
	if idx < 0 || idx >= numRows {
		return idx, fmt.Errorf("testutil: index %d out of range [0, %d)", idx, numRows)
	}

	for col, got := range row {
		want := Value(idx, col, len(row))
		if math.Abs(float64(got-want)) >= Tolerance {
			return idx, fmt.Errorf("testutil: row %d col %d: got %v, want %v", idx, col, got, want)
		}
	}
	return idx, nil
}
