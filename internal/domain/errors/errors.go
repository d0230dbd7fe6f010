// Package errors holds the error taxonomy of the storage engine.
//
// Every typed error matches its sentinel through errors.Is, and errors that
// wrap a store or codec failure expose it through errors.Unwrap.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSchemaConflict         = errors.New("schema conflict")
	ErrInvalidPredicateColumn = errors.New("invalid predicate column")
	ErrUnsupportedOperation   = errors.New("unsupported operation")
	ErrStore                  = errors.New("store error")
	ErrTableNotFound          = errors.New("table not found")
	ErrCodec                  = errors.New("codec error")
)

// SchemaConflictError is returned by create when the table name is already
// taken, either in the engine's registry or in the store.
type SchemaConflictError struct {
	Table string
	Err   error // store error, nil when the conflict was detected locally
}

func (e *SchemaConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("table %s already exists: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("table %s already exists", e.Table)
}

func (e *SchemaConflictError) Unwrap() error { return e.Err }

func (e *SchemaConflictError) Is(target error) bool { return target == ErrSchemaConflict }

// InvalidPredicateColumnError is returned by delete when a predicate names a
// column the physical table does not have.
type InvalidPredicateColumnError struct {
	TableName  string
	ColumnName string
}

func (e *InvalidPredicateColumnError) Error() string {
	return fmt.Sprintf("predicate column %s not found in table %s", e.ColumnName, e.TableName)
}

func (e *InvalidPredicateColumnError) Is(target error) bool {
	return target == ErrInvalidPredicateColumn
}

// UnsupportedOperationError is returned for operations the engine refuses.
type UnsupportedOperationError struct {
	Operation string
	Table     string
	Reason    string
}

func (e *UnsupportedOperationError) Error() string {
	parts := []string{fmt.Sprintf("%s not supported", e.Operation)}
	if e.Table != "" {
		parts = append(parts, fmt.Sprintf("table %s", e.Table))
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	return strings.Join(parts, " - ")
}

func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}

// StoreError wraps a failure reported by the backing store.
type StoreError struct {
	Op    string // create, write, read, delete, drop
	Table string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// TableNotFoundError is returned when a table cannot be resolved by name.
type TableNotFoundError struct {
	Table string
	Err   error
}

func (e *TableNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("table %s not found: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("table %s not found", e.Table)
}

func (e *TableNotFoundError) Unwrap() error { return e.Err }

func (e *TableNotFoundError) Is(target error) bool { return target == ErrTableNotFound }

// CodecError is returned when a cell cannot be encoded for the store or
// decoded from it.
type CodecError struct {
	Table  string
	Column string
	Value  interface{}
	Err    error
}

func (e *CodecError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("codec %s.%s (value %T): %v", e.Table, e.Column, e.Value, e.Err)
	}
	return fmt.Sprintf("codec %s.%s: %v", e.Table, e.Column, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

func (e *CodecError) Is(target error) bool { return target == ErrCodec }

// NewStoreError wraps err unless it is nil or already a StoreError.
func NewStoreError(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Table: table, Err: err}
}
