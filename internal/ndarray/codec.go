package ndarray

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec compresses the raw element payload of an encoded array.
//
// The codec id is written into every blob header, so ids are a persisted
// format and must stay stable. Implementations must be safe for concurrent use.
type Codec interface {
	ID() byte
	Name() string
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte, rawLen int) ([]byte, error)
}

// maxPrealloc caps the capacity reserved from an untrusted length hint.
const maxPrealloc = 1 << 20

func prealloc(rawLen int) int {
	return max(0, min(rawLen, maxPrealloc))
}

// Default is used when no codec is configured.
var Default Codec = Raw{}

var codecs = []Codec{Raw{}, Zstd{}, LZ4{}, Snappy{}}

// ByName returns a built-in codec by its configuration name.
func ByName(name string) (Codec, bool) {
	for _, c := range codecs {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// ByID returns the codec recorded in a blob header.
func ByID(id byte) (Codec, bool) {
	for _, c := range codecs {
		if c.ID() == id {
			return c, true
		}
	}
	return nil, false
}

// Raw stores the payload uncompressed.
type Raw struct{}

func (Raw) ID() byte     { return 0 }
func (Raw) Name() string { return "raw" }

func (Raw) Compress(src []byte) ([]byte, error) { return src, nil }

func (Raw) Decompress(src []byte, _ int) ([]byte, error) { return src, nil }

var (
	zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) { return zstd.NewWriter(nil) })
	zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxPayload))
	})
)

// Zstd uses github.com/klauspost/compress/zstd.
type Zstd struct{}

func (Zstd) ID() byte     { return 1 }
func (Zstd) Name() string { return "zstd" }

func (Zstd) Compress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return []byte{}, nil
	}
	enc, err := zstdEncoder()
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(src, nil), nil
}

func (Zstd) Decompress(src []byte, rawLen int) ([]byte, error) {
	if len(src) == 0 {
		return []byte{}, nil
	}
	dec, err := zstdDecoder()
	if err != nil {
		return nil, err
	}
	return dec.DecodeAll(src, make([]byte, 0, prealloc(rawLen)))
}

// LZ4 uses the lz4 frame format from github.com/pierrec/lz4/v4.
type LZ4 struct{}

func (LZ4) ID() byte     { return 2 }
func (LZ4) Name() string { return "lz4" }

func (LZ4) Compress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return []byte{}, nil
	}
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (LZ4) Decompress(src []byte, rawLen int) ([]byte, error) {
	if len(src) == 0 {
		return []byte{}, nil
	}
	limit := int64(MaxPayload)
	if rawLen >= 0 && rawLen < MaxPayload {
		limit = int64(rawLen)
	}
	out := bytes.NewBuffer(make([]byte, 0, prealloc(rawLen)))
	// One byte past the limit lets the caller's length check see overruns.
	r := io.LimitReader(lz4.NewReader(bytes.NewReader(src)), limit+1)
	if _, err := io.Copy(out, r); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Snappy uses github.com/golang/snappy block encoding.
type Snappy struct{}

func (Snappy) ID() byte     { return 3 }
func (Snappy) Name() string { return "snappy" }

func (Snappy) Compress(src []byte) ([]byte, error) { return snappy.Encode(nil, src), nil }

func (Snappy) Decompress(src []byte, rawLen int) ([]byte, error) {
	n, err := snappy.DecodedLen(src)
	if err != nil {
		return nil, err
	}
	if n != rawLen || n > MaxPayload {
		return nil, fmt.Errorf("snappy: decoded length %d, header says %d", n, rawLen)
	}
	return snappy.Decode(nil, src)
}
