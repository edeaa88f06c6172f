package structure

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.einride.tech/can"
)

var sample = []byte{0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC, 0xDE, 0xF0}

func TestReadScalar(t *testing.T) {
	tests := []struct {
		name      string
		bitOffset int
		bitSize   int
		dataType  DataType
		end       Endianness
		want      any
	}{
		{"UINT8", 0, 8, Uint, BigEndian, uint64(0x12)},
		{"UINT16BE", 0, 16, Uint, BigEndian, uint64(0x1234)},
		{"UINT16LE", 0, 16, Uint, LittleEndian, uint64(0x3412)},
		{"UINT32BE", 0, 32, Uint, BigEndian, uint64(0x12345678)},
		{"UINT64LE", 0, 64, Uint, LittleEndian, uint64(0xF0DEBC9A78563412)},
		{"INT8Negative", 32, 8, Int, BigEndian, int64(-102)},
		{"INT16LENegative", 48, 16, Int, LittleEndian, int64(-3874)},
		{"BitFieldBE", 4, 8, Uint, BigEndian, uint64(0x23)},
		{"NibbleBE", 0, 4, Uint, BigEndian, uint64(1)},
		{"NibbleSigned", 32, 4, Int, BigEndian, int64(-7)},
		{"BitFieldLE", 12, 8, Uint, LittleEndian, uint64(0x41)},
		{"OneBitInt", 32, 1, Int, BigEndian, int64(1)},
		{"EndAnchored", -16, 16, Uint, BigEndian, uint64(0xDEF0)},
		{"Block", 16, 16, Block, BigEndian, []byte{0x56, 0x78}},
		{"BlockFillRest", 40, 0, Block, BigEndian, []byte{0xBC, 0xDE, 0xF0}},
		{"BlockFillMinusTail", 40, -16, Block, BigEndian, []byte{0xBC}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readScalar(sample, tt.bitOffset, tt.bitSize, tt.dataType, tt.end, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadString(t *testing.T) {
	buf := []byte("AB\x00CD")
	got, err := readScalar(buf, 0, 40, String, BigEndian, false)
	require.NoError(t, err)
	assert.Equal(t, "AB", got)

	got, err = readScalar(buf, 24, 0, String, BigEndian, false)
	require.NoError(t, err)
	assert.Equal(t, "CD", got)
}

func TestReadScalarErrors(t *testing.T) {
	t.Run("PastEnd", func(t *testing.T) {
		_, err := readScalar(sample[:4], 24, 16, Uint, BigEndian, false)
		assert.ErrorIs(t, err, ErrBufferTooSmall)
	})
	t.Run("AnchorBeforeStart", func(t *testing.T) {
		_, err := readScalar(sample[:1], -16, 16, Uint, BigEndian, false)
		assert.ErrorIs(t, err, ErrBufferTooSmall)
	})
	t.Run("FillPastEnd", func(t *testing.T) {
		_, err := readScalar(sample[:2], 8, -16, Block, BigEndian, false)
		assert.ErrorIs(t, err, ErrBufferTooSmall)
	})
	t.Run("ZeroSizeInt", func(t *testing.T) {
		_, err := readScalar(sample, 0, 0, Int, BigEndian, false)
		assert.ErrorIs(t, err, ErrInvalidItemDefinition)
	})
	t.Run("ExactEmpty", func(t *testing.T) {
		got, err := readScalar(sample, 16, 0, Block, BigEndian, true)
		require.NoError(t, err)
		assert.Equal(t, []byte{}, got)
	})
}

// canStart converts a little endian bit field definition into the start
// bit (least significant bit) numbering used for CAN signals.
func canStart(bitOffset, bitSize int) int {
	if bitOffset%8 == 0 && evenBitSize(bitSize) {
		return bitOffset
	}
	return 8*(bitOffset/8) + (7 - bitOffset%8) - (bitSize - 1)
}

func TestLittleEndianMatchesCANSignals(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for range 200 {
		var data can.Data
		for i := range data {
			data[i] = byte(rng.UintN(256))
		}
		buf := data[:]
		bitSize := 1 + rng.IntN(32)
		bitOffset := rng.IntN(64)
		start := canStart(bitOffset, bitSize)
		if start < 0 || start+bitSize > 64 {
			continue
		}

		got, err := readScalar(buf, bitOffset, bitSize, Uint, LittleEndian, false)
		require.NoError(t, err, "offset %d size %d", bitOffset, bitSize)
		want := data.UnsignedBitsLittleEndian(uint8(start), uint8(bitSize))
		assert.Equal(t, want, got, "offset %d size %d", bitOffset, bitSize)

		value := rng.Uint64() & (1<<bitSize - 1)
		out := make([]byte, 8)
		copy(out, buf)
		_, err = writeScalar(out, value, bitOffset, bitSize, Uint, LittleEndian, OverflowError, false)
		require.NoError(t, err)
		expected := data
		expected.SetUnsignedBitsLittleEndian(uint8(start), uint8(bitSize), value)
		assert.Equal(t, expected[:], out, "offset %d size %d", bitOffset, bitSize)
	}
}

func TestLittleEndianAlignedMatchesCAN(t *testing.T) {
	var data can.Data
	copy(data[:], sample)
	for _, size := range []int{8, 16, 32} {
		for off := 0; off+size <= 64; off += 8 {
			got, err := readScalar(data[:], off, size, Uint, LittleEndian, false)
			require.NoError(t, err)
			assert.Equal(t, data.UnsignedBitsLittleEndian(uint8(off), uint8(size)), got, "offset %d size %d", off, size)
		}
	}
}

func TestWriteIntegerOverflow(t *testing.T) {
	tests := []struct {
		name     string
		dataType DataType
		bitSize  int
		overflow Overflow
		value    any
		want     any
		wantErr  bool
	}{
		{"UintTooLarge", Uint, 8, OverflowError, 256, nil, true},
		{"UintSaturate", Uint, 8, OverflowSaturate, 256, uint64(255), false},
		{"UintTruncate", Uint, 8, OverflowTruncate, 257, uint64(1), false},
		{"UintNegative", Uint, 8, OverflowError, -1, nil, true},
		{"UintNegativeTruncate", Uint, 8, OverflowTruncate, -1, uint64(255), false},
		{"UintNegativeSaturate", Uint, 8, OverflowSaturate, -5, uint64(0), false},
		{"IntTooLarge", Int, 8, OverflowError, 128, nil, true},
		{"IntAllowHex", Int, 8, OverflowErrorAllowHex, 0xFF, int64(-1), false},
		{"IntAllowHexTooLarge", Int, 8, OverflowErrorAllowHex, 0x100, nil, true},
		{"IntSaturateHigh", Int, 8, OverflowSaturate, 1000, int64(127), false},
		{"IntSaturateLow", Int, 8, OverflowSaturate, -1000, int64(-128), false},
		{"IntTruncate", Int, 8, OverflowTruncate, 200, int64(-56), false},
		{"IntTooSmall", Int, 8, OverflowError, -129, nil, true},
		{"Int12Bits", Int, 12, OverflowError, -2048, int64(-2048), false},
		{"HexString", Uint, 16, OverflowError, "0xBEEF", uint64(0xBEEF), false},
		{"Float", Int, 16, OverflowError, 12.9, int64(12), false},
		{"Uint64Max", Uint, 64, OverflowError, uint64(1<<64 - 1), uint64(1<<64 - 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, 12)
			_, err := writeScalar(buf, tt.value, 4, tt.bitSize, tt.dataType, BigEndian, tt.overflow, false)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOverflow)
				return
			}
			require.NoError(t, err)
			got, err := readScalar(buf, 4, tt.bitSize, tt.dataType, BigEndian, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteBitFieldPreservesNeighbours(t *testing.T) {
	buf := []byte{0xFF, 0xFF}
	_, err := writeScalar(buf, 0, 4, 8, Uint, BigEndian, OverflowError, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF0, 0x0F}, buf)
}

func TestWriteFloat(t *testing.T) {
	buf := make([]byte, 12)
	_, err := writeScalar(buf, 1.5, 0, 32, Float, BigEndian, OverflowError, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x3F, 0xC0, 0x00, 0x00}, buf[:4])
	_, err = writeScalar(buf, -2, 32, 64, Float, LittleEndian, OverflowError, false)
	require.NoError(t, err)

	f, err := readScalar(buf, 0, 32, Float, BigEndian, false)
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)
	f, err = readScalar(buf, 32, 64, Float, LittleEndian, false)
	require.NoError(t, err)
	assert.Equal(t, -2.0, f)
}

func TestWriteBytes(t *testing.T) {
	t.Run("PadShort", func(t *testing.T) {
		buf := []byte{1, 2, 3, 4}
		_, err := writeScalar(buf, "A", 0, 24, String, BigEndian, OverflowError, false)
		require.NoError(t, err)
		assert.Equal(t, []byte{'A', 0, 0, 4}, buf)
	})
	t.Run("TooLong", func(t *testing.T) {
		buf := make([]byte, 4)
		_, err := writeScalar(buf, "ABCDE", 0, 32, String, BigEndian, OverflowError, false)
		assert.ErrorIs(t, err, ErrOverflow)
	})
	t.Run("Truncate", func(t *testing.T) {
		buf := make([]byte, 4)
		_, err := writeScalar(buf, "ABCDE", 0, 32, String, BigEndian, OverflowTruncate, false)
		require.NoError(t, err)
		assert.Equal(t, []byte("ABCD"), buf)
	})
	t.Run("FillRestGrows", func(t *testing.T) {
		buf := []byte{1, 2, 3, 4, 5, 6}
		out, err := writeScalar(buf, []byte{9, 9, 9, 9}, 16, -16, Block, BigEndian, OverflowError, false)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 9, 9, 9, 9, 5, 6}, out)
	})
	t.Run("FillRestShrinks", func(t *testing.T) {
		buf := []byte{1, 2, 3, 4, 5, 6}
		out, err := writeScalar(buf, []byte{}, 8, 0, Block, BigEndian, OverflowError, false)
		require.NoError(t, err)
		assert.Equal(t, []byte{1}, out)
	})
}

func arrayItem(t *testing.T, bitOffset, bitSize, arraySize int, dt DataType) (*Item, placement) {
	t.Helper()
	it, err := NewArrayItem("ARRAY", bitOffset, bitSize, arraySize, dt, BigEndian, OverflowError)
	require.NoError(t, err)
	return it, definedPlacement(it)
}

func TestArrays(t *testing.T) {
	t.Run("Read", func(t *testing.T) {
		it, p := arrayItem(t, 8, 8, 24, Uint)
		got, err := readArray(sample, it, p)
		require.NoError(t, err)
		assert.Equal(t, []any{uint64(0x34), uint64(0x56), uint64(0x78)}, got)
	})
	t.Run("ReadFill", func(t *testing.T) {
		it, p := arrayItem(t, 32, 16, -16, Uint)
		got, err := readArray(sample, it, p)
		require.NoError(t, err)
		assert.Equal(t, []any{uint64(0x9ABC)}, got)
	})
	t.Run("ReadNibbles", func(t *testing.T) {
		it, p := arrayItem(t, 0, 4, 16, Int)
		got, err := readArray(sample, it, p)
		require.NoError(t, err)
		assert.Equal(t, []any{int64(1), int64(2), int64(3), int64(4)}, got)
	})
	t.Run("ReadEmptyBuffer", func(t *testing.T) {
		it, p := arrayItem(t, 0, 8, 16, Uint)
		got, err := readArray(nil, it, p)
		require.NoError(t, err)
		assert.Equal(t, []any{}, got)
	})
	t.Run("WritePadsWithZero", func(t *testing.T) {
		it, p := arrayItem(t, 0, 8, 24, Uint)
		buf := []byte{7, 7, 7, 7}
		out, err := writeArray(buf, it, p, []any{1, 2})
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 0, 7}, out)
	})
	t.Run("WriteTooMany", func(t *testing.T) {
		it, p := arrayItem(t, 0, 8, 16, Uint)
		_, err := writeArray(make([]byte, 4), it, p, []any{1, 2, 3})
		assert.ErrorIs(t, err, ErrInvalidValue)
	})
	t.Run("WriteFillGrows", func(t *testing.T) {
		it, p := arrayItem(t, 16, 8, 0, Uint)
		out, err := writeArray([]byte{1, 2, 3, 4}, it, p, []any{5, 6, 7, 8, 9})
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 5, 6, 7, 8, 9}, out)
	})
	t.Run("WriteFillKeepsTail", func(t *testing.T) {
		it, p := arrayItem(t, 8, 8, -8, Uint)
		out, err := writeArray([]byte{1, 2, 3, 4, 5}, it, p, []any{9})
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 9, 5}, out)
	})
	t.Run("LittleEndianBitFieldRejected", func(t *testing.T) {
		it, err := NewArrayItem("ARRAY", 4, 4, 16, Uint, LittleEndian, OverflowError)
		require.NoError(t, err)
		_, err = readArray(sample, it, definedPlacement(it))
		assert.ErrorIs(t, err, ErrInvalidItemDefinition)
	})
}
