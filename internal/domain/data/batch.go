package data

import (
	"slices"
	"sort"
)

// Batch is an ordered set of rows sharing one column layout. It is the unit
// exchanged with the storage engine on write and read.
type Batch struct {
	columns []string
	rows    []Row
}

// NewBatch creates a batch with an explicit column order.
func NewBatch(columns []string, rows ...Row) *Batch {
	return &Batch{
		columns: slices.Clone(columns),
		rows:    rows,
	}
}

// FromRows builds a batch from row maps. The column order is the sorted union
// of the row keys, since maps carry no order of their own.
func FromRows(rows []Row) *Batch {
	seen := make(map[string]struct{})
	var columns []string
	for _, row := range rows {
		for k := range row {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			columns = append(columns, k)
		}
	}
	sort.Strings(columns)
	return &Batch{columns: columns, rows: rows}
}

// Columns returns the column order.
func (b *Batch) Columns() []string { return b.columns }

// Rows returns the rows in order.
func (b *Batch) Rows() []Row { return b.rows }

// Len returns the number of rows.
func (b *Batch) Len() int { return len(b.rows) }

// Empty reports whether the batch has no rows.
func (b *Batch) Empty() bool { return len(b.rows) == 0 }

// Append adds a row to the end of the batch.
func (b *Batch) Append(row Row) {
	b.rows = append(b.rows, row)
}

// Record returns row i as values in column order.
func (b *Batch) Record(i int) []interface{} {
	return b.rows[i].Values(b.columns)
}

// Column returns every value of one column, top to bottom.
func (b *Batch) Column(name string) []interface{} {
	out := make([]interface{}, len(b.rows))
	for i, row := range b.rows {
		out[i] = row[name]
	}
	return out
}

// SizeBytes approximates the in-memory footprint of the whole batch.
func (b *Batch) SizeBytes() int64 {
	size := int64(2 * sliceHeaderSize)
	for _, col := range b.columns {
		size += stringHeaderSize + int64(len(col))
	}
	for _, row := range b.rows {
		size += 8 + row.SizeBytes()
	}
	return size
}
