package sqlstore

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/leengari/tablestore/internal/domain/errors"
	"github.com/leengari/tablestore/internal/domain/schema"
	"github.com/leengari/tablestore/internal/ndarray"
)

func TestNormalizeScalar(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want interface{}
	}{
		{"int", 3, int64(3)},
		{"int8", int8(-3), int64(-3)},
		{"uint32", uint32(4), int64(4)},
		{"uint64", uint64(5), int64(5)},
		{"float32", float32(0.5), 0.5},
		{"json int", json.Number("12"), int64(12)},
		{"json float", json.Number("1.5"), 1.5},
		{"decimal int", decimal.NewFromInt(9), int64(9)},
		{"decimal frac", decimal.RequireFromString("0.125"), 0.125},
		{"single element slice", []float32{2}, 2.0},
		{"nested single element", [][]int{{4}}, int64(4)},
		{"0-d array", ndarray.MustFromSlice(int16(6)), int64(6)},
		{"string", "x", "x"},
		{"bytes", []byte{1}, []byte{1}},
		{"bool", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeScalar(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeScalarRejects(t *testing.T) {
	_, err := normalizeScalar(uint64(math.MaxUint64))
	assert.Error(t, err)

	_, err = normalizeScalar([]int{1, 2})
	assert.Error(t, err)

	_, err = normalizeScalar(ndarray.MustFromSlice([]int{1, 2}))
	assert.Error(t, err)
}

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		name string
		typ  schema.ColumnType
		in   interface{}
		want interface{}
	}{
		{"null", schema.ColumnTypeInt, nil, nil},
		{"int", schema.ColumnTypeInt, int64(7), int64(7)},
		{"int from text protocol", schema.ColumnTypeInt, []byte("42"), int64(42)},
		{"float", schema.ColumnTypeFloat, 1.5, 1.5},
		{"float from int", schema.ColumnTypeFloat, int64(2), 2.0},
		{"float from bytes", schema.ColumnTypeFloat, []byte("0.25"), 0.25},
		{"bool from int", schema.ColumnTypeBool, int64(1), true},
		{"bool from bytes", schema.ColumnTypeBool, []byte("0"), false},
		{"bool from pg text", schema.ColumnTypeBool, "t", true},
		{"text from bytes", schema.ColumnTypeText, []byte("hi"), "hi"},
		{"untyped bytes", "", []byte("raw"), "raw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeValue("t", "c", tt.typ, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeValueArray(t *testing.T) {
	want := ndarray.MustFromSlice([][]float64{{1, 2}, {3, 4}})
	blob, err := ndarray.Encode(want, ndarray.Zstd{})
	require.NoError(t, err)

	got, err := decodeValue("t", "c", schema.ColumnTypeNDArray, blob)
	require.NoError(t, err)
	assert.True(t, want.Equal(got.(*ndarray.Array)))

	_, err = decodeValue("t", "c", schema.ColumnTypeNDArray, []byte("garbage"))
	assert.ErrorIs(t, err, domainerrors.ErrCodec)
	assert.ErrorIs(t, err, ndarray.ErrCorrupt)

	_, err = decodeValue("t", "c", schema.ColumnTypeNDArray, int64(3))
	assert.ErrorIs(t, err, domainerrors.ErrCodec)
}

func TestDecodeValueRejects(t *testing.T) {
	_, err := decodeValue("t", "c", schema.ColumnTypeInt, 1.5)
	assert.ErrorIs(t, err, domainerrors.ErrCodec)

	_, err = decodeValue("t", "c", schema.ColumnTypeBool, []byte("maybe"))
	assert.ErrorIs(t, err, domainerrors.ErrCodec)
}
