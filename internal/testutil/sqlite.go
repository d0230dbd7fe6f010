// Package testutil holds helpers shared by storage tests.
package testutil

import (
	"iter"
	"path/filepath"
	"testing"

	"github.com/gocraft/dbr/v2"

	"github.com/leengari/tablestore/internal/domain/data"
	"github.com/leengari/tablestore/internal/storage/dialect"
)

// OpenSQLite opens a connection to a fresh SQLite database file in the
// test's temp dir. The connection is closed when the test ends.
func OpenSQLite(t *testing.T) *dbr.Connection {
	t.Helper()
	conn, err := dialect.Open("sqlite", filepath.Join(t.TempDir(), "store.db"), nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// CollectBatches drains a read sequence, failing the test on any error.
func CollectBatches(t *testing.T, seq iter.Seq2[*data.Batch, error]) []*data.Batch {
	t.Helper()
	var out []*data.Batch
	for b, err := range seq {
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		out = append(out, b)
	}
	return out
}

// BatchLens returns the row count of each batch.
func BatchLens(batches []*data.Batch) []int {
	lens := make([]int, len(batches))
	for i, b := range batches {
		lens[i] = b.Len()
	}
	return lens
}

// AssertRowCount checks the total number of rows across batches
func AssertRowCount(t *testing.T, batches []*data.Batch, expected int, context string) {
	t.Helper()
	actual := 0
	for _, b := range batches {
		actual += b.Len()
	}
	if actual != expected {
		t.Errorf("%s: expected %d rows, got %d", context, expected, actual)
	}
}

// AssertColumnNotExists checks that a column is absent from a row
func AssertColumnNotExists(t *testing.T, row map[string]interface{}, column, context string) {
	t.Helper()
	if _, exists := row[column]; exists {
		t.Errorf("%s: did not expect column '%s' to exist", context, column)
	}
}
