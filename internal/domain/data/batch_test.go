package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSizer int64

func (f fixedSizer) SizeBytes() int64 { return int64(f) }

func TestFromRowsColumnUnion(t *testing.T) {
	b := FromRows([]Row{
		{"b": 1, "a": "x"},
		{"c": true},
	})
	assert.Equal(t, []string{"a", "b", "c"}, b.Columns())
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, []interface{}{"x", 1, nil}, b.Record(0))
	assert.Equal(t, []interface{}{nil, true}, b.Column("c"))
}

func TestNewBatchCopiesColumns(t *testing.T) {
	cols := []string{"a", "b"}
	b := NewBatch(cols)
	cols[0] = "z"
	assert.Equal(t, []string{"a", "b"}, b.Columns())
	assert.True(t, b.Empty())

	b.Append(Row{"a": 1})
	assert.False(t, b.Empty())
	assert.Equal(t, []interface{}{1, nil}, b.Record(0))
}

func TestRowCopy(t *testing.T) {
	r := Row{"a": 1}
	c := r.Copy()
	c["a"] = 2
	assert.Equal(t, 1, r["a"])
}

func TestSizeOf(t *testing.T) {
	assert.Equal(t, int64(0), SizeOf(nil))
	assert.Equal(t, int64(8), SizeOf(int64(5)))
	assert.Equal(t, int64(1), SizeOf(true))
	assert.Equal(t, int64(4), SizeOf(float32(1)))
	assert.Equal(t, int64(stringHeaderSize+3), SizeOf("abc"))
	assert.Equal(t, int64(sliceHeaderSize+4), SizeOf([]byte{1, 2, 3, 4}))
	assert.Equal(t, int64(99), SizeOf(fixedSizer(99)))
	assert.Equal(t, int64(sliceHeaderSize+3*8), SizeOf([]float64{1, 2, 3}))
}

func TestSizeIsStableForUniformRows(t *testing.T) {
	r1 := Row{"id": int64(1), "v": fixedSizer(100)}
	r2 := Row{"id": int64(2), "v": fixedSizer(100)}
	require.Equal(t, r1.SizeBytes(), r2.SizeBytes())

	one := NewBatch([]string{"id", "v"}, r1)
	two := NewBatch([]string{"id", "v"}, r1, r2)
	assert.Equal(t, one.SizeBytes()+8+r2.SizeBytes(), two.SizeBytes())
}
