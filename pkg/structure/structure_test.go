package structure

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openground/records/pkg/log"
)

func define(t *testing.T, s *Structure, name string, bitOffset, bitSize int, dt DataType) *Item {
	t.Helper()
	it, _, err := s.DefineItem(name, bitOffset, bitSize, dt)
	require.NoError(t, err)
	return it
}

func TestDefineComputesLength(t *testing.T) {
	s := New(BigEndian)
	define(t, s, "a", 0, 8, Uint)
	define(t, s, "b", 8, 16, Uint)

	assert.Equal(t, 3, s.DefinedLength())
	assert.Equal(t, 24, s.DefinedLengthBits())
	assert.True(t, s.FixedSize())
	assert.Equal(t, []byte{0, 0, 0}, s.Buffer())

	define(t, s, "tail", -8, 8, Uint)
	assert.Equal(t, 4, s.DefinedLength())
	assert.Equal(t, 4, s.Length(), "existing buffer grows to the defined length")
}

func TestDefineReplacesByName(t *testing.T) {
	s := New(BigEndian)
	define(t, s, "A", 0, 8, Uint)
	define(t, s, "a", 16, 8, Int)

	require.Len(t, s.SortedItems(), 1)
	it, err := s.Item("A")
	require.NoError(t, err)
	assert.Equal(t, 16, it.BitOffset())
	assert.Equal(t, Int, it.DataType())
}

func TestAppend(t *testing.T) {
	s := New(LittleEndian)
	a, _, err := s.AppendItem("A", 8, Uint)
	require.NoError(t, err)
	b, _, err := s.AppendItem("B", 16, Uint)
	require.NoError(t, err)
	d, _, err := s.AppendItem("D", 0, Derived)
	require.NoError(t, err)
	arr, _, err := s.AppendArrayItem("ARR", 8, 32, Uint)
	require.NoError(t, err)

	assert.Equal(t, 0, a.BitOffset())
	assert.Equal(t, 8, b.BitOffset())
	assert.Equal(t, LittleEndian, b.Endianness())
	assert.Equal(t, 0, d.BitOffset())
	assert.Equal(t, 24, arr.BitOffset())
	assert.Equal(t, 7, s.DefinedLength())

	c := MustItem("C", 0, 8, Uint, BigEndian, OverflowError)
	_, err = s.Append(c)
	require.NoError(t, err)
	assert.Equal(t, 56, c.BitOffset())
}

func TestSetBuffer(t *testing.T) {
	newFixed := func(cfg Config) *Structure {
		s := NewWithConfig(cfg)
		define(t, s, "A", 0, 16, Uint)
		define(t, s, "B", 16, 16, Uint)
		return s
	}

	t.Run("Exact", func(t *testing.T) {
		s := newFixed(Config{})
		require.NoError(t, s.SetBuffer([]byte{0, 1, 0, 2}))
		v, err := s.Read("b")
		require.NoError(t, err)
		assert.Equal(t, uint64(2), v)
	})

	t.Run("CopiesInput", func(t *testing.T) {
		s := newFixed(Config{})
		in := []byte{0, 1, 0, 2}
		require.NoError(t, s.SetBuffer(in))
		in[3] = 9
		v, _ := s.Read("B")
		assert.Equal(t, uint64(2), v)
	})

	t.Run("ShortFails", func(t *testing.T) {
		s := NewWithConfig(Config{Target: "INST", Packet: "PKT"})
		define(t, s, "A", 0, 32, Uint)
		err := s.SetBuffer([]byte{1, 2})
		var ble *BufferLengthError
		require.ErrorAs(t, err, &ble)
		assert.ErrorIs(t, err, ErrBufferLength)
		assert.Equal(t, 4, ble.Expected)
		assert.Equal(t, 2, ble.Actual)
		assert.Equal(t, "INST PKT: buffer length 2 less than defined length 4", err.Error())
		assert.Equal(t, []byte{1, 2, 0, 0}, s.Buffer(), "short buffer is zero-extended")
	})

	t.Run("ShortAccepted", func(t *testing.T) {
		s := newFixed(Config{AcceptShortBuffer: true})
		require.NoError(t, s.SetBuffer([]byte{0, 7}))
		assert.Equal(t, 4, s.Length())
		v, _ := s.Read("A")
		assert.Equal(t, uint64(7), v)
	})

	t.Run("LongFails", func(t *testing.T) {
		s := newFixed(Config{})
		err := s.SetBuffer(make([]byte, 6))
		assert.ErrorIs(t, err, ErrBufferLength)
		assert.Contains(t, err.Error(), "greater than defined length 4")
	})

	t.Run("LongAcceptedWhenVariable", func(t *testing.T) {
		s := newFixed(Config{})
		define(t, s, "REST", 32, 0, Block)
		require.NoError(t, s.SetBuffer(make([]byte, 10)))
		v, _ := s.Read("REST")
		assert.Len(t, v, 6)
	})
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		bitOffset int
		bitSize   int
		dataType  DataType
		end       Endianness
		value     any
		want      any
	}{
		{"Int8", 0, 8, Int, BigEndian, -5, int64(-5)},
		{"Uint16LE", 8, 16, Uint, LittleEndian, 0xBEEF, uint64(0xBEEF)},
		{"Int32BE", 16, 32, Int, BigEndian, int32(-70000), int64(-70000)},
		{"Uint64LE", 0, 64, Uint, LittleEndian, uint64(0xFEDCBA9876543210), uint64(0xFEDCBA9876543210)},
		{"Int12LEBitField", 12, 12, Int, LittleEndian, -100, int64(-100)},
		{"Uint5BE", 3, 5, Uint, BigEndian, 17, uint64(17)},
		{"Uint3LEBitField", 21, 3, Uint, LittleEndian, 5, uint64(5)},
		{"Int20BE", 9, 20, Int, BigEndian, -300000, int64(-300000)},
		{"Float32", 32, 32, Float, BigEndian, 3.25, 3.25},
		{"Float64LE", 64, 64, Float, LittleEndian, -1e10, -1e10},
		{"String", 16, 32, String, BigEndian, "hi", "hi"},
		{"Block", 8, 24, Block, BigEndian, []byte{1, 2, 3}, []byte{1, 2, 3}},
		{"NegativeUint", -24, 8, Uint, BigEndian, 200, uint64(200)},
		{"NegativeInt16LE", -16, 16, Int, LittleEndian, -2, int64(-2)},
		{"NegativeBlock", -32, 16, Block, BigEndian, []byte{0xCA, 0xFE}, []byte{0xCA, 0xFE}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(BigEndian)
			it, err := NewItem("ITEM", tt.bitOffset, tt.bitSize, tt.dataType, tt.end, OverflowError)
			require.NoError(t, err)
			s.Define(it)
			s.Resize(16)

			require.NoError(t, s.Write("item", tt.value))
			got, err := s.Read("item")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSortedItemsOrder(t *testing.T) {
	s := New(BigEndian)
	define(t, s, "D1", 0, 0, Derived)
	define(t, s, "TAIL", -8, 8, Uint)
	define(t, s, "C", 16, 8, Uint)
	define(t, s, "A", 0, 8, Uint)
	define(t, s, "D2", 0, 0, Derived)
	define(t, s, "B", 8, 8, Uint)

	sorted := s.SortedItems()
	for i := 1; i < len(sorted); i++ {
		assert.Negative(t, Compare(sorted[i-1], sorted[i]), "%s before %s", sorted[i-1].Name(), sorted[i].Name())
	}
	var names []string
	for _, it := range sorted {
		names = append(names, it.Name())
	}
	assert.Equal(t, []string{"A", "B", "C", "TAIL", "D1", "D2"}, names)
}

func TestOverlapWarnings(t *testing.T) {
	rec := &log.Recorder{}
	s := NewWithConfig(Config{Logger: rec, Target: "INST", Packet: "PKT"})
	define(t, s, "A", 0, 16, Uint)
	_, warnings, err := s.DefineItem("B", 8, 8, Uint)
	require.NoError(t, err)

	require.Len(t, warnings, 1)
	assert.Equal(t, "Bit definition overlap at bit offset 8 for packet INST PKT items B and A", warnings[0])
	events := rec.ByCategory(log.CategoryOverlap)
	require.Len(t, events, 1)
	assert.Equal(t, log.LevelWarn, events[0].Level)
	assert.Equal(t, "B", events[0].Overlap.Item)
	assert.Equal(t, "A", events[0].Overlap.Previous)
	assert.Equal(t, 8, events[0].Overlap.BitOffset)

	assert.Equal(t, warnings, s.CheckBitOffsets())
	assert.False(t, s.Packed())

	t.Run("ItemAllowsOverlap", func(t *testing.T) {
		it := MustItem("C", 4, 4, Uint, BigEndian, OverflowError)
		it.Overlap = true
		assert.Empty(t, s.Define(it))
	})

	t.Run("StructureIgnoresOverlap", func(t *testing.T) {
		quiet := NewWithConfig(Config{IgnoreOverlap: true})
		define(t, quiet, "A", 0, 16, Uint)
		_, warnings, _ := quiet.DefineItem("B", 0, 8, Uint)
		assert.Empty(t, warnings)
		assert.Empty(t, quiet.CheckBitOffsets())
	})

	t.Run("EndAnchoredDoesNotOverlapHead", func(t *testing.T) {
		s := New(BigEndian)
		define(t, s, "HEAD", 0, 32, Uint)
		_, warnings, _ := s.DefineItem("TAIL", -16, 16, Uint)
		assert.Empty(t, warnings)
	})
}

func TestPacked(t *testing.T) {
	s := New(BigEndian)
	define(t, s, "A", 0, 8, Uint)
	define(t, s, "B", 8, 4, Uint)
	define(t, s, "C", 12, 4, Uint)
	define(t, s, "D", 0, 0, Derived)
	assert.True(t, s.Packed())

	define(t, s, "E", 24, 8, Uint)
	assert.False(t, s.Packed())
}

func TestNextBitOffset(t *testing.T) {
	assert.Equal(t, 16, NextBitOffset(MustItem("X", 8, 8, Uint, BigEndian, OverflowError)))
	assert.Equal(t, 16, NextBitOffset(MustItem("X", 12, 8, Uint, LittleEndian, OverflowError)))
	assert.Equal(t, -16, NextBitOffset(MustItem("X", 8, -16, Block, BigEndian, OverflowError)))
	arr, _ := NewArrayItem("X", 8, 8, 32, Uint, BigEndian, OverflowError)
	assert.Equal(t, 40, NextBitOffset(arr))
}

func TestEndAnchoredTracksBufferLength(t *testing.T) {
	s := New(BigEndian)
	define(t, s, "HDR", 0, 8, Uint)
	define(t, s, "DATA", 8, -16, Block)
	define(t, s, "TAIL", -16, 16, Uint)
	assert.False(t, s.FixedSize())
	assert.Equal(t, 3, s.DefinedLength())

	require.NoError(t, s.SetBuffer([]byte{1, 2, 3, 4, 0xAB, 0xCD}))
	tail, err := Get[uint64](s, "TAIL")
	require.NoError(t, err)
	assert.Equal(t, uint64(0xABCD), tail)
	data, err := Get[[]byte](s, "DATA")
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3, 4}, data)

	require.NoError(t, s.SetBuffer([]byte{1, 2, 0xAB, 0xCD}))
	data, _ = Get[[]byte](s, "DATA")
	assert.Equal(t, []byte{2}, data)

	require.NoError(t, Set(s, "DATA", []byte{9, 9, 9, 9, 9}))
	assert.Equal(t, 8, s.Length())
	tail, _ = Get[uint64](s, "TAIL")
	assert.Equal(t, uint64(0xABCD), tail)
	assert.Equal(t, Resolved{BitOffset: -16, BitSize: 16}, s.Resolve(s.layout.items["TAIL"]))
}

func newVariableString(t *testing.T) *Structure {
	t.Helper()
	s := New(BigEndian)
	define(t, s, "LEN", 0, 8, Uint)
	str := MustItem("STR", 8, 0, String, BigEndian, OverflowError)
	require.NoError(t, str.SetVariableBitSize(&VariableBitSize{LengthItemName: "LEN", LengthBitsPerCount: 8}))
	assert.Empty(t, s.Define(str))
	define(t, s, "AFTER", 8, 16, Uint)
	return s
}

func TestVariableLengthString(t *testing.T) {
	s := newVariableString(t)
	assert.False(t, s.FixedSize())
	assert.Equal(t, 3, s.DefinedLength())

	require.NoError(t, s.SetBuffer([]byte{3, 'a', 'b', 'c', 0x12, 0x34}))
	str, err := Get[string](s, "STR")
	require.NoError(t, err)
	assert.Equal(t, "abc", str)
	after, _ := Get[uint64](s, "AFTER")
	assert.Equal(t, uint64(0x1234), after)

	require.NoError(t, s.Write("STR", "hello"))
	assert.Equal(t, []byte{5, 'h', 'e', 'l', 'l', 'o', 0x12, 0x34}, s.Buffer())
	after, _ = Get[uint64](s, "AFTER")
	assert.Equal(t, uint64(0x1234), after)

	require.NoError(t, s.Write("STR", ""))
	assert.Equal(t, []byte{0, 0x12, 0x34}, s.Buffer())
	str, _ = Get[string](s, "STR")
	assert.Equal(t, "", str)
}

func TestVariableLengthWithLeadingItems(t *testing.T) {
	s := New(BigEndian)
	define(t, s, "SYNC", 0, 16, Uint)
	define(t, s, "LEN", 16, 8, Uint)
	data := MustItem("DATA", 24, 0, Block, BigEndian, OverflowError)
	require.NoError(t, data.SetVariableBitSize(&VariableBitSize{LengthItemName: "LEN", LengthBitsPerCount: 16, LengthValueBitOffset: 8}))
	s.Define(data)
	define(t, s, "CRC", 32, 8, Uint)
	define(t, s, "TAIL", -8, 8, Uint)

	require.NoError(t, s.SetBuffer([]byte{0xAA, 0x55, 2, 1, 2, 3, 4, 5, 0x77, 0xEE}))
	v, err := s.Read("DATA")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, v)
	crc, _ := s.Read("CRC")
	assert.Equal(t, uint64(0x77), crc)
	tail, _ := s.Read("TAIL")
	assert.Equal(t, uint64(0xEE), tail)
}

func TestVariableQUICInteger(t *testing.T) {
	s := New(BigEndian)
	define(t, s, "QLEN", 0, 8, Uint)
	q := MustItem("Q", 8, 6, Uint, BigEndian, OverflowError)
	require.NoError(t, q.SetVariableBitSize(&VariableBitSize{LengthItemName: "QLEN"}))
	s.Define(q)
	define(t, s, "NEXT", 14, 8, Uint)
	assert.Equal(t, 3, s.DefinedLength())

	require.NoError(t, s.SetBuffer(make([]byte, 3)))
	require.NoError(t, s.Write("NEXT", 0xAB))
	require.NoError(t, s.Write("Q", 100))

	assert.Equal(t, 4, s.Length())
	assert.Equal(t, Resolved{BitOffset: 8, BitSize: 14}, s.Resolve(q))
	qlen, _ := s.Read("QLEN")
	assert.Equal(t, uint64(1), qlen)
	v, _ := s.Read("Q")
	assert.Equal(t, uint64(100), v)
	next, _ := s.Read("NEXT")
	assert.Equal(t, uint64(0xAB), next)

	require.NoError(t, s.Write("Q", 7))
	assert.Equal(t, 3, s.Length())
	next, _ = s.Read("NEXT")
	assert.Equal(t, uint64(0xAB), next)
}

func TestVariableArray(t *testing.T) {
	s := New(BigEndian)
	define(t, s, "COUNT", 0, 8, Uint)
	arr, err := NewArrayItem("VALUES", 8, 16, 0, Uint, BigEndian, OverflowError)
	require.NoError(t, err)
	require.NoError(t, arr.SetVariableBitSize(&VariableBitSize{LengthItemName: "COUNT", LengthBitsPerCount: 16}))
	s.Define(arr)
	define(t, s, "END", 8, 8, Uint)

	require.NoError(t, s.SetBuffer([]byte{0, 0x5A}))
	v, _ := s.Read("VALUES")
	assert.Equal(t, []any{}, v)

	require.NoError(t, s.Write("VALUES", []int{1, 2, 3}))
	assert.Equal(t, []byte{3, 0, 1, 0, 2, 0, 3, 0x5A}, s.Buffer())
	v, _ = s.Read("VALUES")
	assert.Equal(t, []any{uint64(1), uint64(2), uint64(3)}, v)
}

func TestCloneSharesLayoutCopyOnWrite(t *testing.T) {
	s := New(BigEndian)
	define(t, s, "A", 0, 8, Uint)
	require.NoError(t, s.Write("A", 1))

	c := s.Clone()
	require.NoError(t, c.Write("A", 2))
	a, _ := s.Read("A")
	assert.Equal(t, uint64(1), a, "buffers are independent")

	orig, _ := s.Item("A")
	cloned, _ := c.Item("A")
	assert.Same(t, orig, cloned, "items are shared")

	define(t, c, "EXTRA", 8, 8, Uint)
	assert.False(t, s.HasItem("EXTRA"))
	assert.Equal(t, 1, s.DefinedLength())
	assert.Equal(t, 2, c.DefinedLength())
}

func TestDeepCopyIsIndependent(t *testing.T) {
	s := New(BigEndian)
	define(t, s, "X", 0, 8, Uint)
	d := s.DeepCopy()

	dx, err := d.Item("X")
	require.NoError(t, err)
	require.NoError(t, dx.SetOverflow(OverflowSaturate))

	assert.ErrorIs(t, s.Write("X", 300), ErrOverflow)
	require.NoError(t, d.Write("X", 300))
	v, _ := d.Read("X")
	assert.Equal(t, uint64(255), v)
}

func TestDeleteAndRename(t *testing.T) {
	s := New(BigEndian)
	define(t, s, "A", 0, 8, Uint)
	define(t, s, "B", 8, 8, Uint)
	require.NoError(t, s.Write("B", 5))

	require.NoError(t, s.Rename("b", "beta"))
	assert.False(t, s.HasItem("B"))
	v, err := s.Read("BETA")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), v)

	require.NoError(t, s.Delete("A"))
	assert.Equal(t, 2, s.DefinedLength(), "delete does not shrink")
	beta, _ := s.Item("BETA")
	assert.Equal(t, 8, beta.BitOffset())

	err = s.Delete("A")
	var unknown *UnknownItemError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "A", unknown.Item)
	assert.True(t, errors.Is(s.Rename("nope", "x"), ErrUnknownItem))
	_, err = s.Read("nope")
	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestReadAll(t *testing.T) {
	s := New(BigEndian)
	define(t, s, "B", 8, 8, Uint)
	define(t, s, "A", 0, 8, Int)
	define(t, s, "D", 0, 0, Derived)
	require.NoError(t, s.SetBuffer([]byte{0xFF, 7}))

	want := []NamedValue{
		{Name: "A", Value: int64(-1)},
		{Name: "B", Value: uint64(7)},
		{Name: "D", Value: nil},
	}
	got, err := s.ReadAll()
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadAll() mismatch (-want +got):\n%s", diff)
	}
	synced, err := s.ReadAllSynchronized()
	require.NoError(t, err)
	if diff := cmp.Diff(want, synced); diff != "" {
		t.Errorf("ReadAllSynchronized() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadAllSynchronizedWhileReplacing(t *testing.T) {
	s := New(BigEndian)
	define(t, s, "A", 0, 8, Uint)
	define(t, s, "B", 8, 8, Uint)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 200 {
			b := byte(i)
			_ = s.SetBuffer([]byte{b, b})
		}
	}()
	for range 200 {
		values, err := s.ReadAllSynchronized()
		require.NoError(t, err)
		assert.Equal(t, values[0].Value, values[1].Value)
	}
	wg.Wait()
}

func TestGetTypeMismatch(t *testing.T) {
	s := New(BigEndian)
	define(t, s, "A", 0, 8, Uint)
	_, err := Get[string](s, "A")
	assert.ErrorIs(t, err, ErrInvalidValue)
}
