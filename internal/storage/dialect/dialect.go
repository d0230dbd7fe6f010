// Package dialect renders the physical schema of a table for each supported
// backing store and opens dbr connections against them.
package dialect

import (
	"fmt"
	"strings"

	"github.com/gocraft/dbr/v2"
	dbrdialect "github.com/gocraft/dbr/v2/dialect"

	"github.com/leengari/tablestore/internal/domain/schema"
)

type Name string

const (
	SQLite   Name = "sqlite"
	MySQL    Name = "mysql"
	Postgres Name = "postgres"
)

// Dialect holds the type mapping and DDL rules of one store.
type Dialect struct {
	Name   Name
	Driver string // database/sql driver name

	dbr           dbr.Dialect
	types         map[schema.ColumnType]string
	identifierDef string
}

var registry = map[Name]*Dialect{
	SQLite: {
		Name:   SQLite,
		Driver: "sqlite",
		dbr:    dbrdialect.SQLite3,
		types: map[schema.ColumnType]string{
			schema.ColumnTypeInt:     "INTEGER",
			schema.ColumnTypeFloat:   "REAL",
			schema.ColumnTypeText:    "TEXT",
			schema.ColumnTypeBool:    "BOOLEAN",
			schema.ColumnTypeNDArray: "BLOB",
		},
		identifierDef: "INTEGER PRIMARY KEY AUTOINCREMENT",
	},
	MySQL: {
		Name:   MySQL,
		Driver: "mysql",
		dbr:    dbrdialect.MySQL,
		types: map[schema.ColumnType]string{
			schema.ColumnTypeInt:     "BIGINT",
			schema.ColumnTypeFloat:   "DOUBLE",
			schema.ColumnTypeText:    "LONGTEXT",
			schema.ColumnTypeBool:    "BOOLEAN",
			schema.ColumnTypeNDArray: "LONGBLOB",
		},
		identifierDef: "BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY",
	},
	Postgres: {
		Name:   Postgres,
		Driver: "postgres",
		dbr:    dbrdialect.PostgreSQL,
		types: map[schema.ColumnType]string{
			schema.ColumnTypeInt:     "BIGINT",
			schema.ColumnTypeFloat:   "DOUBLE PRECISION",
			schema.ColumnTypeText:    "TEXT",
			schema.ColumnTypeBool:    "BOOLEAN",
			schema.ColumnTypeNDArray: "BYTEA",
		},
		identifierDef: "BIGSERIAL PRIMARY KEY",
	},
}

// Lookup returns the dialect registered under name.
func Lookup(name string) (*Dialect, error) {
	d, ok := registry[Name(strings.ToLower(name))]
	if !ok {
		return nil, fmt.Errorf("unknown dialect %q", name)
	}
	return d, nil
}

// ForConnection resolves the dialect of an open dbr connection.
func ForConnection(conn *dbr.Connection) (*Dialect, error) {
	if conn == nil || conn.Dialect == nil {
		return nil, fmt.Errorf("connection has no dialect")
	}
	for _, d := range registry {
		if d.dbr == conn.Dialect {
			return d, nil
		}
	}
	return nil, fmt.Errorf("unsupported dbr dialect %T", conn.Dialect)
}

// Quote quotes an identifier for this store.
func (d *Dialect) Quote(ident string) string {
	return d.dbr.QuoteIdent(ident)
}

// SQLType maps a logical column type to its physical type.
func (d *Dialect) SQLType(t schema.ColumnType) (string, error) {
	sqlType, ok := d.types[t]
	if !ok {
		return "", fmt.Errorf("%s: no physical type for %q", d.Name, t)
	}
	return sqlType, nil
}

// PhysicalSchema derives the relation for a logical table: the identifier
// column first, then one column per data column in declaration order.
func (d *Dialect) PhysicalSchema(t schema.Table) (*schema.PhysicalTable, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	cols := make([]schema.PhysicalColumn, 0, len(t.Columns)+1)
	cols = append(cols, schema.PhysicalColumn{
		Name:          schema.IdentifierColumn,
		SQLType:       d.types[schema.ColumnTypeInt],
		Logical:       schema.ColumnTypeInt,
		PrimaryKey:    true,
		AutoIncrement: true,
	})
	for _, col := range t.DataColumns() {
		sqlType, err := d.SQLType(col.Type)
		if err != nil {
			return nil, err
		}
		cols = append(cols, schema.PhysicalColumn{
			Name:    col.Name,
			SQLType: sqlType,
			Logical: col.Type,
		})
	}
	return &schema.PhysicalTable{Name: t.Name, Columns: cols}, nil
}

// CreateTableSQL renders the CREATE TABLE statement for a relation.
func (d *Dialect) CreateTableSQL(p *schema.PhysicalTable) string {
	defs := make([]string, 0, len(p.Columns))
	for _, col := range p.Columns {
		if col.AutoIncrement {
			defs = append(defs, d.Quote(col.Name)+" "+d.identifierDef)
			continue
		}
		def := d.Quote(col.Name) + " " + col.SQLType
		if col.PrimaryKey {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", d.Quote(p.Name), strings.Join(defs, ", "))
}

func (d *Dialect) DropTableSQL(table string) string {
	return "DROP TABLE " + d.Quote(table)
}

// InsertDefaultsSQL inserts one row made only of column defaults.
func (d *Dialect) InsertDefaultsSQL(table string) string {
	if d.Name == MySQL {
		return fmt.Sprintf("INSERT INTO %s () VALUES ()", d.Quote(table))
	}
	return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", d.Quote(table))
}

// ProbeSQL selects no rows but exposes the relation's columns.
func (d *Dialect) ProbeSQL(table string) string {
	return fmt.Sprintf("SELECT * FROM %s WHERE 1=0", d.Quote(table))
}

// SelectSQL renders a full scan of the given columns.
func (d *Dialect) SelectSQL(table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = d.Quote(col)
	}
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), d.Quote(table))
}

// LogicalType guesses the logical type of a column from the database type
// name reported by the driver.
func LogicalType(dbType string) schema.ColumnType {
	t := strings.ToUpper(dbType)
	switch {
	case strings.Contains(t, "BOOL"):
		return schema.ColumnTypeBool
	case strings.Contains(t, "BLOB"), strings.Contains(t, "BYTEA"), strings.Contains(t, "BINARY"):
		return schema.ColumnTypeNDArray
	case strings.Contains(t, "INT"), t == "SERIAL", t == "BIGSERIAL":
		return schema.ColumnTypeInt
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOAT"), strings.Contains(t, "DOUBLE"),
		strings.Contains(t, "NUMERIC"), strings.Contains(t, "DECIMAL"):
		return schema.ColumnTypeFloat
	}
	return schema.ColumnTypeText
}
