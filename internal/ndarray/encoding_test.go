package ndarray

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	arrays := map[string]*Array{
		"int matrix":   MustFromSlice([][]int{{1, 2}, {3, 4}}),
		"float cube":   MustFromSlice([][][]float64{{{0.1, math.Inf(1)}}, {{-0, math.MaxFloat64}}}),
		"float32":      MustFromSlice([]float32{1e-7, 3.25, -8}),
		"bool":         MustFromSlice([]bool{true, true, false}),
		"uint64":       MustFromSlice([]uint64{math.MaxUint64, 0}),
		"scalar":       MustFromSlice(int8(-3)),
		"empty":        MustFromSlice([]float64{}),
		"large repeat": MustFromSlice(make([]int32, 4096)),
	}

	for _, c := range codecs {
		for name, a := range arrays {
			t.Run(c.Name()+"/"+name, func(t *testing.T) {
				blob, err := Encode(a, c)
				require.NoError(t, err)
				assert.Equal(t, c.ID(), blob[3])

				got, err := Decode(blob)
				require.NoError(t, err)
				assert.True(t, a.Equal(got), "want %v got %v", a, got)
			})
		}
	}
}

func TestEncodeNilCodecUsesDefault(t *testing.T) {
	blob, err := Encode(MustFromSlice([]int{1}), nil)
	require.NoError(t, err)
	assert.Equal(t, Default.ID(), blob[3])
}

func TestCompressionShrinksRepetitivePayload(t *testing.T) {
	a := MustFromSlice(make([]float64, 10000))
	raw, err := Encode(a, Raw{})
	require.NoError(t, err)

	for _, c := range []Codec{Zstd{}, LZ4{}, Snappy{}} {
		blob, err := Encode(a, c)
		require.NoError(t, err)
		assert.Less(t, len(blob), len(raw), c.Name())
	}
}

func TestDecodeCorrupt(t *testing.T) {
	good, err := Encode(MustFromSlice([]int{1, 2, 3}), Raw{})
	require.NoError(t, err)

	cases := map[string][]byte{
		"empty":         {},
		"bad magic":     append([]byte("XX"), good[2:]...),
		"bad version":   append([]byte{'N', 'D', 9}, good[3:]...),
		"bad codec":     append([]byte{'N', 'D', blobVersion, 200}, good[4:]...),
		"bad dtype":     append([]byte{'N', 'D', blobVersion, 0, 99}, good[5:]...),
		"truncated":     good[:len(good)-4],
		"header only":   good[:headerFixed],
		"garbage zstd":  {'N', 'D', blobVersion, 1, byte(Int64), 1, 1, 8, 0xde, 0xad},
		"garbage lz4":   {'N', 'D', blobVersion, 2, byte(Int64), 1, 1, 8, 0xde, 0xad},
		"garbage snapp": {'N', 'D', blobVersion, 3, byte(Int64), 1, 1, 8, 0xff, 0xff, 0xff},
	}
	for name, blob := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(blob)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

// blobHeader builds a header by hand so tests can lie about the payload.
func blobHeader(codec byte, dtype DType, shape []uint64, rawLen uint64, payload ...byte) []byte {
	out := []byte{'N', 'D', blobVersion, codec, byte(dtype)}
	out = binary.AppendUvarint(out, uint64(len(shape)))
	for _, dim := range shape {
		out = binary.AppendUvarint(out, dim)
	}
	out = binary.AppendUvarint(out, rawLen)
	return append(out, payload...)
}

func TestDecodeRejectsLyingHeaders(t *testing.T) {
	zstdBlob, err := Encode(MustFromSlice([]int64{1, 2}), Zstd{})
	require.NoError(t, err)
	lz4Blob, err := Encode(MustFromSlice([]int64{1, 2}), LZ4{})
	require.NoError(t, err)
	zstdPayload := zstdBlob[len(blobHeader(1, Int64, []uint64{2}, 16)):]
	lz4Payload := lz4Blob[len(blobHeader(2, Int64, []uint64{2}, 16)):]

	cases := map[string][]byte{
		"huge zstd raw len":    blobHeader(1, Int64, []uint64{2}, 1<<62, zstdPayload...),
		"huge lz4 raw len":     blobHeader(2, Int64, []uint64{2}, 1<<62, lz4Payload...),
		"raw len over limit":   blobHeader(1, Int64, []uint64{MaxPayload}, MaxPayload*8, zstdPayload...),
		"shape product wraps":  blobHeader(0, Int64, []uint64{1 << 32, 1 << 32}, 0),
		"dimension past int":   blobHeader(0, Int64, []uint64{math.MaxUint64}, 0),
		"raw len wrong":        blobHeader(1, Int64, []uint64{2}, 24, zstdPayload...),
		"raw len under shape":  blobHeader(0, Int64, []uint64{3}, 16, make([]byte, 16)...),
		"lz4 payload too long": blobHeader(2, Int64, []uint64{1}, 8, lz4Payload...),
	}
	for name, blob := range cases {
		t.Run(name, func(t *testing.T) {
			require.NotPanics(t, func() {
				_, err = Decode(blob)
			})
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestDecompressIgnoresHugeHints(t *testing.T) {
	for _, c := range []Codec{Zstd{}, LZ4{}} {
		t.Run(c.Name(), func(t *testing.T) {
			src, err := c.Compress([]byte("tablestore"))
			require.NoError(t, err)
			var got []byte
			require.NotPanics(t, func() {
				got, err = c.Decompress(src, math.MaxInt)
			})
			require.NoError(t, err)
			assert.Equal(t, []byte("tablestore"), got)
		})
	}
}

func TestEncodeAllCoversEveryCodec(t *testing.T) {
	a := MustFromSlice([][]int{{1, 2}, {3, 4}})
	blobs, err := EncodeAll(a)
	require.NoError(t, err)
	require.Len(t, blobs, len(codecs))

	for _, c := range codecs {
		blob, err := Encode(a, c)
		require.NoError(t, err)
		assert.Contains(t, blobs, blob, c.Name())
	}
}

func TestCodecLookup(t *testing.T) {
	for _, c := range codecs {
		byName, ok := ByName(c.Name())
		require.True(t, ok)
		assert.Equal(t, c, byName)

		byID, ok := ByID(c.ID())
		require.True(t, ok)
		assert.Equal(t, c, byID)
	}
	_, ok := ByName("brotli")
	assert.False(t, ok)
}
