package schema

import "fmt"

// IdentifierColumn is the reserved row identifier. The store assigns it as an
// auto-increment primary key; callers never supply it.
const IdentifierColumn = "_row_id"

type ColumnType string

const (
	ColumnTypeInt     ColumnType = "INT"
	ColumnTypeFloat   ColumnType = "FLOAT"
	ColumnTypeText    ColumnType = "TEXT"
	ColumnTypeBool    ColumnType = "BOOL"
	ColumnTypeNDArray ColumnType = "NDARRAY"
)

// Valid reports whether t is one of the supported logical types.
func (t ColumnType) Valid() bool {
	switch t {
	case ColumnTypeInt, ColumnTypeFloat, ColumnTypeText, ColumnTypeBool, ColumnTypeNDArray:
		return true
	}
	return false
}

// ParseColumnType accepts the canonical names plus a few common aliases.
func ParseColumnType(s string) (ColumnType, error) {
	switch s {
	case "INT", "int", "INTEGER", "integer", "BIGINT", "bigint":
		return ColumnTypeInt, nil
	case "FLOAT", "float", "DOUBLE", "double", "REAL", "real":
		return ColumnTypeFloat, nil
	case "TEXT", "text", "STRING", "string", "VARCHAR", "varchar":
		return ColumnTypeText, nil
	case "BOOL", "bool", "BOOLEAN", "boolean":
		return ColumnTypeBool, nil
	case "NDARRAY", "ndarray", "ARRAY", "array":
		return ColumnTypeNDArray, nil
	}
	return "", fmt.Errorf("unknown column type %q", s)
}

// Column describes one logical column of a table as supplied by the catalog.
type Column struct {
	Name string     `json:"name" yaml:"name"`
	Type ColumnType `json:"type" yaml:"type"`
}

// IsIdentifier reports whether the column is the reserved row identifier.
func (c Column) IsIdentifier() bool {
	return c.Name == IdentifierColumn
}
