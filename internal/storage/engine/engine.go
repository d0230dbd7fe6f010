// Package engine defines the contract of a table storage engine and the
// lifecycle events it reports.
package engine

import (
	"context"
	"iter"

	"github.com/leengari/tablestore/internal/domain/data"
	"github.com/leengari/tablestore/internal/domain/schema"
)

// StorageEngine persists tables described by catalog metadata and streams
// them back in memory-bounded batches.
type StorageEngine interface {
	// Create derives and creates the physical relation for t.
	Create(ctx context.Context, t schema.Table) (*schema.PhysicalTable, error)
	// Drop removes the relation and forgets its handle. Failures are logged,
	// not returned.
	Drop(ctx context.Context, t schema.Table) bool
	// Write appends every row of the batch and commits once.
	Write(ctx context.Context, t schema.Table, batch *data.Batch) error
	// Read scans the table. The sequence can be ranged over once.
	Read(ctx context.Context, t schema.Table, batchMemSize int64) (iter.Seq2[*data.Batch, error], error)
	// Delete removes the rows matching every column = value pair.
	Delete(ctx context.Context, t schema.Table, predicate map[string]interface{}) error
	// Rename always fails.
	Rename(ctx context.Context, t schema.Table, newName string) error
}
