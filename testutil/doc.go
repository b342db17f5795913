// Package testutil provides fixtures and statistics for testing samplers.
//
// This package is intended for tests, benchmarks and the CLI's gen and check
// modes. It writes self-describing datasets, verifies that sampled rows are
// intact, and checks that hit counts look like uniform sampling with
// replacement.
//
// # Fixture Format
//
// Row i of a fixture with e elements per row holds
//
//	[i, i+.25, i+.125, i+.25, i+.125, ..., i+.5]
//
// so every row carries its own index and any torn or misplaced read is
// detectable from the row alone.
//
//	err := testutil.WriteFixture(path, numRows, rowSize)
//	row, err := testutil.CheckRow(batch[0], numRows)
//
// # Distribution Checks
//
//	hits := testutil.NewHitCounter(numRows)
//	hits.Add(row)
//	err := hits.Stats().Check(rowSize)
package testutil
