package schema

import "fmt"

// Table is the catalog's description of a table: a unique name and an
// ordered list of logical columns. The identifier column may or may not be
// listed; it is always treated as present.
type Table struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []Column `json:"columns" yaml:"columns"`
}

// NewTable builds a table descriptor from its columns.
func NewTable(name string, columns ...Column) Table {
	return Table{Name: name, Columns: columns}
}

// DataColumns returns the columns in declaration order with the identifier
// column removed.
func (t Table) DataColumns() []Column {
	cols := make([]Column, 0, len(t.Columns))
	for _, col := range t.Columns {
		if col.IsIdentifier() {
			continue
		}
		cols = append(cols, col)
	}
	return cols
}

// ReadColumns returns the column layout of a decoded row: the identifier
// first, then the data columns.
func (t Table) ReadColumns() []Column {
	cols := make([]Column, 0, len(t.Columns)+1)
	cols = append(cols, Column{Name: IdentifierColumn, Type: ColumnTypeInt})
	return append(cols, t.DataColumns()...)
}

// Column finds a column by name.
func (t Table) Column(name string) (Column, bool) {
	if name == IdentifierColumn {
		return Column{Name: IdentifierColumn, Type: ColumnTypeInt}, true
	}
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// Validate checks the descriptor is usable for schema derivation.
func (t Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table name is empty")
	}
	seen := make(map[string]struct{}, len(t.Columns))
	for _, col := range t.Columns {
		if col.Name == "" {
			return fmt.Errorf("table %s: column name is empty", t.Name)
		}
		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("table %s: duplicate column %s", t.Name, col.Name)
		}
		seen[col.Name] = struct{}{}
		if !col.IsIdentifier() && !col.Type.Valid() {
			return fmt.Errorf("table %s: column %s has unsupported type %q", t.Name, col.Name, col.Type)
		}
	}
	return nil
}
