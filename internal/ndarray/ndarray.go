// Package ndarray provides the N-dimensional numeric array value stored in
// NDARRAY columns, and its self-describing binary encoding.
package ndarray

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
)

var (
	// ErrRagged is returned when nested slices do not form a rectangular array.
	ErrRagged = errors.New("ndarray: ragged nested slices")
	// ErrUnsupportedElement is returned for element values that are not bool or numeric.
	ErrUnsupportedElement = errors.New("ndarray: unsupported element type")
	// ErrShapeOverflow is returned when the byte size of a shape does not fit in an int.
	ErrShapeOverflow = errors.New("ndarray: shape overflows")
)

// Array is a dense row-major array. Elements are held as little-endian raw
// bytes so that encode/decode round trips are bit-exact.
type Array struct {
	dtype DType
	shape []int
	data  []byte
}

// New wraps raw little-endian element bytes.
func New(dtype DType, shape []int, data []byte) (*Array, error) {
	if !dtype.Valid() {
		return nil, fmt.Errorf("ndarray: invalid dtype %d", dtype)
	}
	want, err := byteLen(dtype, shape)
	if err != nil {
		return nil, err
	}
	if want != len(data) {
		return nil, fmt.Errorf("ndarray: %s%v needs %d bytes, got %d", dtype, shape, want, len(data))
	}
	return &Array{dtype: dtype, shape: slices.Clone(shape), data: data}, nil
}

// byteLen is the payload size of an array of the given shape. Any zero
// dimension makes the array empty regardless of the others.
func byteLen(dtype DType, shape []int) (int, error) {
	empty := false
	for _, dim := range shape {
		if dim < 0 {
			return 0, fmt.Errorf("ndarray: negative dimension %d", dim)
		}
		if dim == 0 {
			empty = true
		}
	}
	if empty {
		return 0, nil
	}
	n := dtype.ItemSize()
	for _, dim := range shape {
		if n > math.MaxInt/dim {
			return 0, fmt.Errorf("%w: %s%v", ErrShapeOverflow, dtype, shape)
		}
		n *= dim
	}
	return n, nil
}

// FromSlice converts a Go value into an Array. Accepted inputs are *Array,
// Array, numeric or bool scalars (0-d arrays) and rectangular nested slices
// or arrays of them. Slices of interface values, as produced by JSON
// decoding, are inferred as bool, int64 or float64.
func FromSlice(v any) (*Array, error) {
	switch a := v.(type) {
	case *Array:
		return a, nil
	case Array:
		return &a, nil
	}

	rv := unwrap(reflect.ValueOf(v))
	if !rv.IsValid() {
		return nil, fmt.Errorf("%w: nil", ErrUnsupportedElement)
	}

	shape := discoverShape(rv)
	var leaves []reflect.Value
	if err := flatten(rv, shape, 0, &leaves); err != nil {
		return nil, err
	}

	dtype, err := inferDType(rv, leaves)
	if err != nil {
		return nil, err
	}

	size := dtype.ItemSize()
	data := make([]byte, len(leaves)*size)
	for i, leaf := range leaves {
		s, err := scalarOf(leaf)
		if err != nil {
			return nil, err
		}
		s.put(data[i*size:(i+1)*size], dtype)
	}
	return &Array{dtype: dtype, shape: shape, data: data}, nil
}

// MustFromSlice is FromSlice for literals in tests and examples.
func MustFromSlice(v any) *Array {
	a, err := FromSlice(v)
	if err != nil {
		panic(err)
	}
	return a
}

func (a *Array) DType() DType { return a.dtype }

// Shape returns a copy of the dimensions.
func (a *Array) Shape() []int { return slices.Clone(a.shape) }

// Size is the number of elements; a 0-d array has one.
func (a *Array) Size() int {
	if a.dtype.ItemSize() == 0 {
		return 0
	}
	return len(a.data) / a.dtype.ItemSize()
}

// Bytes exposes the raw element bytes. Callers must not modify them.
func (a *Array) Bytes() []byte { return a.data }

// SizeBytes approximates the in-memory footprint of the array.
func (a *Array) SizeBytes() int64 {
	return int64(64 + 8*len(a.shape) + len(a.data))
}

// Equal is bit-exact: same dtype, same shape, same payload.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.dtype == b.dtype && slices.Equal(a.shape, b.shape) && bytes.Equal(a.data, b.data)
}

// At returns element i of the flattened array as its Go type.
func (a *Array) At(i int) any {
	size := a.dtype.ItemSize()
	b := a.data[i*size : (i+1)*size]
	switch a.dtype {
	case Bool:
		return b[0] != 0
	case Int8:
		return int8(b[0])
	case Int16:
		return int16(binary.LittleEndian.Uint16(b))
	case Int32:
		return int32(binary.LittleEndian.Uint32(b))
	case Int64:
		return int64(binary.LittleEndian.Uint64(b))
	case Uint8:
		return b[0]
	case Uint16:
		return binary.LittleEndian.Uint16(b)
	case Uint32:
		return binary.LittleEndian.Uint32(b)
	case Uint64:
		return binary.LittleEndian.Uint64(b)
	case Float32:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	return nil
}

// Scalar returns the only element of a single-element array.
func (a *Array) Scalar() (any, bool) {
	if a.Size() != 1 {
		return nil, false
	}
	return a.At(0), true
}

// ToSlice rebuilds nested Go slices of the element type. A 0-d array
// returns its scalar.
func (a *Array) ToSlice() any {
	if len(a.shape) == 0 {
		return a.At(0)
	}
	t := a.dtype.goType()
	for range a.shape {
		t = reflect.SliceOf(t)
	}
	idx := 0
	return a.build(t, 0, &idx).Interface()
}

func (a *Array) build(t reflect.Type, depth int, idx *int) reflect.Value {
	out := reflect.MakeSlice(t, a.shape[depth], a.shape[depth])
	for i := 0; i < a.shape[depth]; i++ {
		if depth == len(a.shape)-1 {
			out.Index(i).Set(reflect.ValueOf(a.At(*idx)))
			*idx++
			continue
		}
		out.Index(i).Set(a.build(t.Elem(), depth+1, idx))
	}
	return out
}

func (a *Array) String() string {
	return fmt.Sprintf("ndarray(%s, shape=%v)", a.dtype, a.shape)
}

func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func isList(v reflect.Value) bool {
	return v.Kind() == reflect.Slice || v.Kind() == reflect.Array
}

func isListType(t reflect.Type) bool {
	return t.Kind() == reflect.Slice || t.Kind() == reflect.Array
}

// discoverShape follows the first element at every level. An empty level
// contributes zeros for every nested list level its static type still has.
func discoverShape(v reflect.Value) []int {
	shape := []int{}
	cur := v
	for isList(cur) {
		shape = append(shape, cur.Len())
		if cur.Len() == 0 {
			for t := cur.Type().Elem(); isListType(t); t = t.Elem() {
				shape = append(shape, 0)
			}
			break
		}
		cur = unwrap(cur.Index(0))
	}
	return shape
}

func flatten(v reflect.Value, shape []int, depth int, leaves *[]reflect.Value) error {
	if depth == len(shape) {
		if isList(v) {
			return ErrRagged
		}
		*leaves = append(*leaves, v)
		return nil
	}
	if !isList(v) || v.Len() != shape[depth] {
		return ErrRagged
	}
	for i := 0; i < v.Len(); i++ {
		if err := flatten(unwrap(v.Index(i)), shape, depth+1, leaves); err != nil {
			return err
		}
	}
	return nil
}

func inferDType(root reflect.Value, leaves []reflect.Value) (DType, error) {
	t := root.Type()
	for isListType(t) {
		t = t.Elem()
	}
	if t.Kind() != reflect.Interface && t != reflect.TypeFor[json.Number]() {
		if d, ok := dtypeForKind(t.Kind()); ok {
			return d, nil
		}
		return Invalid, fmt.Errorf("%w: %s", ErrUnsupportedElement, t)
	}
	if len(leaves) == 0 {
		return Float64, nil
	}

	var sawBool, sawInt, sawFloat bool
	for _, leaf := range leaves {
		s, err := scalarOf(leaf)
		if err != nil {
			return Invalid, err
		}
		switch s.kind {
		case kindBool:
			sawBool = true
		case kindInt, kindUint:
			sawInt = true
		case kindFloat:
			sawFloat = true
		}
	}
	switch {
	case sawBool && (sawInt || sawFloat):
		return Invalid, fmt.Errorf("%w: mixed bool and numeric elements", ErrUnsupportedElement)
	case sawBool:
		return Bool, nil
	case sawFloat:
		return Float64, nil
	}
	return Int64, nil
}

type scalarKind uint8

const (
	kindBool scalarKind = iota
	kindInt
	kindUint
	kindFloat
)

type scalar struct {
	kind scalarKind
	b    bool
	i    int64
	u    uint64
	f    float64
}

func scalarOf(v reflect.Value) (scalar, error) {
	if !v.IsValid() {
		return scalar{}, fmt.Errorf("%w: nil element", ErrUnsupportedElement)
	}
	if n, ok := v.Interface().(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return scalar{kind: kindInt, i: i}, nil
		}
		f, err := n.Float64()
		if err != nil {
			return scalar{}, fmt.Errorf("%w: %q", ErrUnsupportedElement, n)
		}
		return scalar{kind: kindFloat, f: f}, nil
	}
	switch v.Kind() {
	case reflect.Bool:
		return scalar{kind: kindBool, b: v.Bool()}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return scalar{kind: kindInt, i: v.Int()}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return scalar{kind: kindUint, u: v.Uint()}, nil
	case reflect.Float32, reflect.Float64:
		return scalar{kind: kindFloat, f: v.Float()}, nil
	}
	return scalar{}, fmt.Errorf("%w: %s", ErrUnsupportedElement, v.Type())
}

func (s scalar) int64() int64 {
	switch s.kind {
	case kindBool:
		if s.b {
			return 1
		}
		return 0
	case kindUint:
		return int64(s.u)
	case kindFloat:
		return int64(s.f)
	}
	return s.i
}

func (s scalar) uint64() uint64 {
	switch s.kind {
	case kindInt, kindBool:
		return uint64(s.int64())
	case kindFloat:
		return uint64(s.f)
	}
	return s.u
}

func (s scalar) float64() float64 {
	switch s.kind {
	case kindInt, kindBool:
		return float64(s.int64())
	case kindUint:
		return float64(s.u)
	}
	return s.f
}

func (s scalar) put(b []byte, d DType) {
	switch d {
	case Bool:
		if s.kind == kindBool && s.b || s.kind != kindBool && s.float64() != 0 {
			b[0] = 1
		}
	case Int8:
		b[0] = byte(int8(s.int64()))
	case Int16:
		binary.LittleEndian.PutUint16(b, uint16(int16(s.int64())))
	case Int32:
		binary.LittleEndian.PutUint32(b, uint32(int32(s.int64())))
	case Int64:
		binary.LittleEndian.PutUint64(b, uint64(s.int64()))
	case Uint8:
		b[0] = byte(s.uint64())
	case Uint16:
		binary.LittleEndian.PutUint16(b, uint16(s.uint64()))
	case Uint32:
		binary.LittleEndian.PutUint32(b, uint32(s.uint64()))
	case Uint64:
		binary.LittleEndian.PutUint64(b, s.uint64())
	case Float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(s.float64())))
	case Float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(s.float64()))
	}
}
