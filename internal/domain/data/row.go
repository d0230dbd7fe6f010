package data

import "maps"

// Row represents a single table row
// Key = column name, Value = cell value
type Row map[string]interface{}

// Copy creates a shallow copy of the row so callers' maps are never mutated
func (r Row) Copy() Row {
	return maps.Clone(r)
}

// Values returns the cell values in the given column order. Missing columns
// yield nil.
func (r Row) Values(columns []string) []interface{} {
	vals := make([]interface{}, len(columns))
	for i, col := range columns {
		vals[i] = r[col]
	}
	return vals
}

// SizeBytes approximates the in-memory footprint of the row
func (r Row) SizeBytes() int64 {
	size := int64(mapHeaderSize)
	for k, v := range r {
		size += mapEntrySize + stringHeaderSize + int64(len(k)) + SizeOf(v)
	}
	return size
}
