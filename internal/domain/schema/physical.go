package schema

// PhysicalColumn is a column of the relation as it exists in the store.
type PhysicalColumn struct {
	Name          string     `json:"name"`
	SQLType       string     `json:"sql_type"`
	Logical       ColumnType `json:"logical,omitempty"`
	PrimaryKey    bool       `json:"primary_key,omitempty"`
	AutoIncrement bool       `json:"auto_increment,omitempty"`
}

// PhysicalTable is the handle the engine keeps for a created relation.
type PhysicalTable struct {
	Name    string           `json:"name"`
	Columns []PhysicalColumn `json:"columns"`
}

// HasColumn reports whether the relation has a column with the given name.
func (p *PhysicalTable) HasColumn(name string) bool {
	for _, col := range p.Columns {
		if col.Name == name {
			return true
		}
	}
	return false
}

// DataColumnNames lists the non-identifier column names in physical order.
func (p *PhysicalTable) DataColumnNames() []string {
	names := make([]string, 0, len(p.Columns))
	for _, col := range p.Columns {
		if col.Name == IdentifierColumn {
			continue
		}
		names = append(names, col.Name)
	}
	return names
}

// GetPrimaryKeyColumn returns the primary key column, or nil if none.
func (p *PhysicalTable) GetPrimaryKeyColumn() *PhysicalColumn {
	for i := range p.Columns {
		if p.Columns[i].PrimaryKey {
			return &p.Columns[i]
		}
	}
	return nil
}
