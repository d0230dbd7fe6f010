package ndarray

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Blob layout:
//
//	magic "ND" | version | codec id | dtype | uvarint ndim | uvarint dim... | uvarint raw len | payload
const (
	blobVersion = 1
	headerFixed = 5

	// MaxPayload bounds the raw element bytes of one encoded array.
	MaxPayload = 1 << 30
)

var blobMagic = [2]byte{'N', 'D'}

// ErrCorrupt is returned when a blob cannot be decoded.
var ErrCorrupt = errors.New("ndarray: corrupt blob")

// Encode serializes the array with the given codec. A nil codec means Default.
func Encode(a *Array, c Codec) ([]byte, error) {
	if c == nil {
		c = Default
	}
	if len(a.data) > MaxPayload {
		return nil, fmt.Errorf("ndarray: payload of %d bytes exceeds %d", len(a.data), MaxPayload)
	}
	payload, err := c.Compress(a.data)
	if err != nil {
		return nil, fmt.Errorf("ndarray: %s compress: %w", c.Name(), err)
	}

	out := make([]byte, 0, headerFixed+binary.MaxVarintLen64*(len(a.shape)+2)+len(payload))
	out = append(out, blobMagic[0], blobMagic[1], blobVersion, c.ID(), byte(a.dtype))
	out = binary.AppendUvarint(out, uint64(len(a.shape)))
	for _, dim := range a.shape {
		out = binary.AppendUvarint(out, uint64(dim))
	}
	out = binary.AppendUvarint(out, uint64(len(a.data)))
	return append(out, payload...), nil
}

// EncodeAll encodes a once per registered codec, in registry order. Equal
// arrays written under any codec match one of the results byte for byte.
func EncodeAll(a *Array) ([][]byte, error) {
	blobs := make([][]byte, 0, len(codecs))
	for _, c := range codecs {
		blob, err := Encode(a, c)
		if err != nil {
			return nil, err
		}
		blobs = append(blobs, blob)
	}
	return blobs, nil
}

// Decode is the inverse of Encode. The codec is taken from the blob header.
func Decode(blob []byte) (*Array, error) {
	if len(blob) < headerFixed || blob[0] != blobMagic[0] || blob[1] != blobMagic[1] {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if blob[2] != blobVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, blob[2])
	}
	c, ok := ByID(blob[3])
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec id %d", ErrCorrupt, blob[3])
	}
	dtype := DType(blob[4])
	if !dtype.Valid() {
		return nil, fmt.Errorf("%w: unknown dtype %d", ErrCorrupt, blob[4])
	}

	rest := blob[headerFixed:]
	next := func() (uint64, error) {
		v, n := binary.Uvarint(rest)
		if n <= 0 {
			return 0, fmt.Errorf("%w: truncated header", ErrCorrupt)
		}
		rest = rest[n:]
		return v, nil
	}

	ndim, err := next()
	if err != nil {
		return nil, err
	}
	if ndim > uint64(len(rest)) {
		return nil, fmt.Errorf("%w: ndim %d exceeds blob", ErrCorrupt, ndim)
	}
	shape := make([]int, ndim)
	for i := range shape {
		dim, err := next()
		if err != nil {
			return nil, err
		}
		if dim > math.MaxInt {
			return nil, fmt.Errorf("%w: dimension %d out of range", ErrCorrupt, dim)
		}
		shape[i] = int(dim)
	}
	rawLen, err := next()
	if err != nil {
		return nil, err
	}
	want, err := byteLen(dtype, shape)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if rawLen > MaxPayload || uint64(want) != rawLen {
		return nil, fmt.Errorf("%w: header says %d payload bytes for %s%v", ErrCorrupt, rawLen, dtype, shape)
	}

	data, err := c.Decompress(rest, int(rawLen))
	if err != nil {
		return nil, fmt.Errorf("%w: %s decompress: %w", ErrCorrupt, c.Name(), err)
	}
	if uint64(len(data)) != rawLen {
		return nil, fmt.Errorf("%w: payload is %d bytes, header says %d", ErrCorrupt, len(data), rawLen)
	}
	a, err := New(dtype, shape, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return a, nil
}
