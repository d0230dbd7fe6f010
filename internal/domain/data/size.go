package data

import "reflect"

// Approximate runtime overheads used by the size estimator. They only need to
// be stable, not exact: batch sizing compares estimates against a ceiling.
const (
	mapHeaderSize    = 48
	mapEntrySize     = 16
	stringHeaderSize = 16
	sliceHeaderSize  = 24
	ifaceSize        = 16
)

// Sizer is implemented by values that know their own footprint.
type Sizer interface {
	SizeBytes() int64
}

// SizeOf estimates the deep in-memory size of a cell value.
func SizeOf(v interface{}) int64 {
	switch x := v.(type) {
	case nil:
		return 0
	case Sizer:
		return x.SizeBytes()
	case bool, int8, uint8:
		return 1
	case int16, uint16:
		return 2
	case int32, uint32, float32:
		return 4
	case int, int64, uint, uint64, float64:
		return 8
	case string:
		return stringHeaderSize + int64(len(x))
	case []byte:
		return sliceHeaderSize + int64(len(x))
	}
	return sizeOfValue(reflect.ValueOf(v))
}

func sizeOfValue(rv reflect.Value) int64 {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return ifaceSize
		}
		return ifaceSize + sizeOfValue(rv.Elem())
	case reflect.Slice:
		size := int64(sliceHeaderSize)
		for i := 0; i < rv.Len(); i++ {
			size += sizeOfValue(rv.Index(i))
		}
		return size
	case reflect.Map:
		size := int64(mapHeaderSize)
		iter := rv.MapRange()
		for iter.Next() {
			size += mapEntrySize + sizeOfValue(iter.Key()) + sizeOfValue(iter.Value())
		}
		return size
	case reflect.String:
		return stringHeaderSize + int64(rv.Len())
	}
	if rv.CanInterface() {
		if s, ok := rv.Interface().(Sizer); ok {
			return s.SizeBytes()
		}
	}
	return int64(rv.Type().Size())
}
