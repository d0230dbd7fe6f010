package errors

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelMatching(t *testing.T) {
	cause := io.ErrUnexpectedEOF

	tests := []struct {
		err      error
		sentinel error
		wrapped  bool
	}{
		{&SchemaConflictError{Table: "t", Err: cause}, ErrSchemaConflict, true},
		{&InvalidPredicateColumnError{TableName: "t", ColumnName: "c"}, ErrInvalidPredicateColumn, false},
		{&UnsupportedOperationError{Operation: "rename"}, ErrUnsupportedOperation, false},
		{&StoreError{Op: "write", Table: "t", Err: cause}, ErrStore, true},
		{&TableNotFoundError{Table: "t", Err: cause}, ErrTableNotFound, true},
		{&CodecError{Table: "t", Column: "c", Err: cause}, ErrCodec, true},
	}

	for _, tt := range tests {
		t.Run(tt.sentinel.Error(), func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.wrapped, errors.Is(tt.err, cause))
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestNewStoreError(t *testing.T) {
	assert.NoError(t, NewStoreError("read", "t", nil))

	err := NewStoreError("read", "t", io.EOF)
	var se *StoreError
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, "read", se.Op)
	assert.ErrorIs(t, err, io.EOF)

	again := NewStoreError("write", "t", err)
	assert.Same(t, err, again)
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "table t already exists", (&SchemaConflictError{Table: "t"}).Error())
	assert.Equal(t, "predicate column x not found in table t",
		(&InvalidPredicateColumnError{TableName: "t", ColumnName: "x"}).Error())
	assert.Equal(t, "rename not supported - table t - structured tables cannot be renamed",
		(&UnsupportedOperationError{Operation: "rename", Table: "t", Reason: "structured tables cannot be renamed"}).Error())
}
