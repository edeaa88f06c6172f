package structure

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
)

// placement is where an item lives in one particular buffer. For fixed size
// structures it equals the item definition; the layout pass produces shifted
// placements for variable sized structures.
type placement struct {
	bitOffset int
	bitSize   int
	arraySize int
	array     bool

	// exact marks sizes resolved from a length item. An exact size of zero
	// means the item is empty rather than "fill the rest of the buffer".
	exact bool
}

func definedPlacement(it *Item) placement {
	return placement{
		bitOffset: it.bitOffset,
		bitSize:   it.bitSize,
		arraySize: it.arraySize,
		array:     it.array,
	}
}

func byteOrder(e Endianness) binary.ByteOrder {
	if e == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func emptyValue(dt DataType) any {
	if dt == String {
		return ""
	}
	return []byte{}
}

// readValue reads an item's raw value from buf using placement p.
func readValue(buf []byte, it *Item, p placement) (any, error) {
	if it.Virtual() {
		return nil, nil
	}
	if p.array {
		return readArray(buf, it, p)
	}
	return readScalar(buf, p.bitOffset, p.bitSize, it.dataType, it.endianness, p.exact)
}

// checkBounds returns the byte range of a field and whether buf is long
// enough. A LITTLE_ENDIAN bit field may extend past the computed upper bound
// because its bit offset names the most significant bit.
func checkBounds(bitOffset, bitSize, bufLen int, end Endianness, dt DataType) (lower, upper int, ok bool) {
	lower = bitOffset / 8
	upper = (bitOffset + bitSize - 1) / 8
	if upper >= bufLen {
		leBitField := end == LittleEndian && dt.Integer() &&
			!(bitOffset%8 == 0 && evenBitSize(bitSize)) && lower < bufLen
		if !leBitField {
			return lower, upper, false
		}
	}
	return lower, upper, true
}

func readScalar(buf []byte, bitOffset, bitSize int, dt DataType, end Endianness, exact bool) (any, error) {
	givenOffset, givenSize := bitOffset, bitSize

	if dt.Bytes() && exact && bitSize == 0 {
		return emptyValue(dt), nil
	}
	if bitSize <= 0 && !dt.Bytes() {
		return nil, fmt.Errorf("%w: bit_size %d must be positive for data types other than STRING and BLOCK", ErrInvalidItemDefinition, bitSize)
	}
	if bitOffset < 0 {
		if bitSize <= 0 {
			return nil, fmt.Errorf("%w: negative or zero bit_sizes (%d) cannot be given with negative bit_offsets (%d)", ErrInvalidItemDefinition, bitSize, bitOffset)
		}
		bitOffset += len(buf) * 8
		if bitOffset < 0 {
			return nil, bufferError("read", len(buf), dt, givenOffset, givenSize)
		}
	}
	if bitSize <= 0 {
		bitSize = len(buf)*8 - bitOffset + bitSize
		if bitSize == 0 {
			return emptyValue(dt), nil
		}
		if bitSize < 0 {
			return nil, bufferError("read", len(buf), dt, givenOffset, givenSize)
		}
	}

	lower, upper, ok := checkBounds(bitOffset, bitSize, len(buf), end, dt)
	if !ok {
		return nil, bufferError("read", len(buf), dt, givenOffset, givenSize)
	}

	switch dt {
	case String, Block:
		if bitOffset%8 != 0 {
			return nil, fmt.Errorf("%w: bit_offset %d is not byte aligned for data_type %s", ErrInvalidItemDefinition, givenOffset, dt)
		}
		data := buf[lower : upper+1]
		if dt == String {
			if i := bytes.IndexByte(data, 0); i >= 0 {
				data = data[:i]
			}
			return string(data), nil
		}
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil

	case Int, Uint:
		var raw uint64
		if bitOffset%8 == 0 && evenBitSize(bitSize) {
			order := byteOrder(end)
			field := buf[lower : upper+1]
			switch bitSize {
			case 8:
				raw = uint64(field[0])
			case 16:
				raw = uint64(order.Uint16(field))
			case 32:
				raw = uint64(order.Uint32(field))
			case 64:
				raw = order.Uint64(field)
			}
		} else {
			var err error
			raw, err = extractBits(buf, bitOffset, bitSize, end)
			if err != nil {
				return nil, fmt.Errorf("%w: LITTLE_ENDIAN bitfield with bit_offset %d and bit_size %d is invalid", ErrInvalidItemDefinition, givenOffset, givenSize)
			}
		}
		if dt == Uint {
			return raw, nil
		}
		return signExtend(raw, bitSize), nil

	case Float:
		if bitOffset%8 != 0 {
			return nil, fmt.Errorf("%w: bit_offset %d is not byte aligned for data_type %s", ErrInvalidItemDefinition, givenOffset, dt)
		}
		order := byteOrder(end)
		switch bitSize {
		case 32:
			return float64(math.Float32frombits(order.Uint32(buf[lower : upper+1]))), nil
		case 64:
			return math.Float64frombits(order.Uint64(buf[lower : upper+1])), nil
		}
		return nil, fmt.Errorf("%w: bit_size is %d but must be 32 or 64 for data_type FLOAT", ErrInvalidItemDefinition, givenSize)
	}
	return nil, fmt.Errorf("%w: data_type %s is not readable", ErrInvalidItemDefinition, dt)
}

// signExtend interprets the low bitSize bits of raw as two's complement.
// A 1-bit field is never negative.
func signExtend(raw uint64, bitSize int) int64 {
	if bitSize > 1 && bitSize < 64 && raw&(1<<(bitSize-1)) != 0 {
		return int64(raw) - int64(1)<<bitSize
	}
	return int64(raw)
}

// fieldBytes returns a function mapping the n-th byte of a bit field, most
// significant first, to its index in buf, plus the starting bit within the
// first byte. LITTLE_ENDIAN fields are walked from the byte holding the most
// significant bit downwards, so the same big-endian bit walk applies to both.
func fieldBytes(bitOffset, bitSize int, end Endianness) (index func(n int) int, startBit int, err error) {
	startBit = bitOffset % 8
	if end == LittleEndian {
		numBytes := (startBit+bitSize-1)/8 + 1
		upper := bitOffset / 8
		if upper-numBytes+1 < 0 {
			return nil, 0, ErrInvalidItemDefinition
		}
		return func(n int) int { return upper - n }, startBit, nil
	}
	lower := bitOffset / 8
	return func(n int) int { return lower + n }, startBit, nil
}

func extractBits(buf []byte, bitOffset, bitSize int, end Endianness) (uint64, error) {
	index, start, err := fieldBytes(bitOffset, bitSize, end)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < bitSize; i++ {
		q := start + i
		bit := (buf[index(q/8)] >> (7 - q%8)) & 1
		v = v<<1 | uint64(bit)
	}
	return v, nil
}

func insertBits(buf []byte, bitOffset, bitSize int, end Endianness, v uint64) error {
	index, start, err := fieldBytes(bitOffset, bitSize, end)
	if err != nil {
		return err
	}
	for i := 0; i < bitSize; i++ {
		q := start + i
		mask := byte(1) << (7 - q%8)
		idx := index(q / 8)
		if (v>>(bitSize-1-i))&1 != 0 {
			buf[idx] |= mask
		} else {
			buf[idx] &^= mask
		}
	}
	return nil
}

func readArray(buf []byte, it *Item, p placement) (any, error) {
	if len(buf) == 0 {
		return []any{}, nil
	}
	bitOffset, bitSize, arraySize := p.bitOffset, p.bitSize, p.arraySize
	givenOffset, givenArraySize := bitOffset, arraySize
	dt := it.dataType

	if bitSize <= 0 {
		return nil, fmt.Errorf("%w: bit_size %d must be positive for arrays", ErrInvalidItemDefinition, bitSize)
	}
	if bitOffset < 0 {
		bitOffset += len(buf) * 8
		if bitOffset < 0 {
			return nil, bufferError("read", len(buf), dt, givenOffset, bitSize)
		}
	}
	if p.exact && arraySize == 0 {
		return []any{}, nil
	}
	if !p.exact && arraySize <= 0 {
		if givenOffset < 0 {
			return nil, fmt.Errorf("%w: negative or zero array_size (%d) cannot be given with negative bit_offset (%d)", ErrInvalidItemDefinition, givenArraySize, givenOffset)
		}
		arraySize = len(buf)*8 - bitOffset + arraySize
		if arraySize == 0 {
			return []any{}, nil
		}
		if arraySize < 0 {
			return nil, bufferError("read", len(buf), dt, givenOffset, bitSize)
		}
	}
	if arraySize%bitSize != 0 {
		return nil, fmt.Errorf("%w: array_size %d not a multiple of bit_size %d", ErrInvalidItemDefinition, givenArraySize, bitSize)
	}
	if bitOffset+arraySize > len(buf)*8 {
		return nil, bufferError("read", len(buf), dt, givenOffset, bitSize)
	}
	if dt.Integer() && it.endianness == LittleEndian && bitSize > 1 && !(bitOffset%8 == 0 && evenBitSize(bitSize)) {
		return nil, fmt.Errorf("%w: arrays do not support little endian bit fields with bit_size greater than 1-bit", ErrInvalidItemDefinition)
	}

	n := arraySize / bitSize
	values := make([]any, n)
	for i := 0; i < n; i++ {
		v, err := readScalar(buf, bitOffset+i*bitSize, bitSize, dt, it.endianness, false)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// writeValue writes v for item it at placement p. It returns the buffer,
// which is a new slice when a fill-the-rest item changed the buffer length.
func writeValue(buf []byte, it *Item, p placement, v any) ([]byte, error) {
	if it.Virtual() {
		return buf, nil
	}
	if p.array {
		values, err := toSlice(v)
		if err != nil {
			return buf, err
		}
		return writeArray(buf, it, p, values)
	}
	return writeScalar(buf, v, p.bitOffset, p.bitSize, it.dataType, it.endianness, it.overflow, p.exact)
}

func splice(buf []byte, at, oldLen int, data []byte) []byte {
	out := make([]byte, 0, len(buf)-oldLen+len(data))
	out = append(out, buf[:at]...)
	out = append(out, data...)
	return append(out, buf[at+oldLen:]...)
}

func writeScalar(buf []byte, v any, bitOffset, bitSize int, dt DataType, end Endianness, overflow Overflow, exact bool) ([]byte, error) {
	givenOffset, givenSize := bitOffset, bitSize

	if bitSize <= 0 && !dt.Bytes() {
		return buf, fmt.Errorf("%w: bit_size %d must be positive for data types other than STRING and BLOCK", ErrInvalidItemDefinition, bitSize)
	}
	if bitOffset < 0 {
		if bitSize <= 0 {
			return buf, fmt.Errorf("%w: negative or zero bit_sizes (%d) cannot be given with negative bit_offsets (%d)", ErrInvalidItemDefinition, bitSize, bitOffset)
		}
		bitOffset += len(buf) * 8
		if bitOffset < 0 {
			return buf, bufferError("write", len(buf), dt, givenOffset, givenSize)
		}
	}

	switch dt {
	case String, Block:
		if bitOffset%8 != 0 {
			return buf, fmt.Errorf("%w: bit_offset %d is not byte aligned for data_type %s", ErrInvalidItemDefinition, givenOffset, dt)
		}
		data, err := toBytes(v)
		if err != nil {
			return buf, err
		}
		lower := bitOffset / 8
		if bitSize <= 0 && !exact {
			// Fill-the-rest: replace everything up to the preserved tail.
			endBytes := -floorDiv(givenSize, 8)
			if lower+endBytes > len(buf) {
				return buf, bufferError("write", len(buf), dt, givenOffset, givenSize)
			}
			oldLen := len(buf) - endBytes - lower
			return splice(buf, lower, oldLen, data), nil
		}
		byteSize := bitSize / 8
		if byteSize == 0 {
			return buf, nil
		}
		if lower+byteSize > len(buf) {
			return buf, bufferError("write", len(buf), dt, givenOffset, givenSize)
		}
		if len(data) > byteSize {
			if overflow != OverflowTruncate {
				return buf, fmt.Errorf("%w: value of %d bytes does not fit into %d bytes for data_type %s", ErrOverflow, len(data), byteSize, dt)
			}
			data = data[:byteSize]
		}
		field := buf[lower : lower+byteSize]
		n := copy(field, data)
		clear(field[n:])
		return buf, nil

	case Int, Uint:
		bi, err := toBigInt(v)
		if err != nil {
			return buf, err
		}
		raw, err := checkOverflow(bi, bitSize, dt, overflow)
		if err != nil {
			return buf, err
		}
		lower, upper, ok := checkBounds(bitOffset, bitSize, len(buf), end, dt)
		if !ok {
			return buf, bufferError("write", len(buf), dt, givenOffset, givenSize)
		}
		if bitOffset%8 == 0 && evenBitSize(bitSize) {
			order := byteOrder(end)
			field := buf[lower : upper+1]
			switch bitSize {
			case 8:
				field[0] = byte(raw)
			case 16:
				order.PutUint16(field, uint16(raw))
			case 32:
				order.PutUint32(field, uint32(raw))
			case 64:
				order.PutUint64(field, raw)
			}
			return buf, nil
		}
		if err := insertBits(buf, bitOffset, bitSize, end, raw); err != nil {
			return buf, fmt.Errorf("%w: LITTLE_ENDIAN bitfield with bit_offset %d and bit_size %d is invalid", ErrInvalidItemDefinition, givenOffset, givenSize)
		}
		return buf, nil

	case Float:
		if bitOffset%8 != 0 {
			return buf, fmt.Errorf("%w: bit_offset %d is not byte aligned for data_type %s", ErrInvalidItemDefinition, givenOffset, dt)
		}
		f, err := ToFloat64(v)
		if err != nil {
			return buf, err
		}
		lower, upper, ok := checkBounds(bitOffset, bitSize, len(buf), end, dt)
		if !ok {
			return buf, bufferError("write", len(buf), dt, givenOffset, givenSize)
		}
		order := byteOrder(end)
		switch bitSize {
		case 32:
			order.PutUint32(buf[lower:upper+1], math.Float32bits(float32(f)))
		case 64:
			order.PutUint64(buf[lower:upper+1], math.Float64bits(f))
		default:
			return buf, fmt.Errorf("%w: bit_size is %d but must be 32 or 64 for data_type FLOAT", ErrInvalidItemDefinition, givenSize)
		}
		return buf, nil
	}
	return buf, fmt.Errorf("%w: data_type %s is not writable", ErrInvalidItemDefinition, dt)
}

// overflowRange returns the accepted value range of an integer field and the
// largest unsigned pattern it can hold.
func overflowRange(bitSize int, dt DataType) (lo, hi, hexMax *big.Int) {
	one := big.NewInt(1)
	hexMax = new(big.Int).Sub(new(big.Int).Lsh(one, uint(bitSize)), one)
	if dt == Uint {
		return big.NewInt(0), hexMax, hexMax
	}
	if bitSize == 1 {
		return big.NewInt(-1), big.NewInt(1), big.NewInt(1)
	}
	half := new(big.Int).Lsh(one, uint(bitSize-1))
	return new(big.Int).Neg(half), new(big.Int).Sub(half, one), hexMax
}

// checkOverflow applies the overflow policy and returns the bit pattern to store.
func checkOverflow(v *big.Int, bitSize int, dt DataType, overflow Overflow) (uint64, error) {
	lo, hi, hexMax := overflowRange(bitSize, dt)
	if overflow != OverflowTruncate {
		switch {
		case v.Cmp(hi) > 0:
			switch {
			case overflow == OverflowSaturate:
				v = hi
			case overflow == OverflowErrorAllowHex && v.Cmp(hexMax) <= 0:
			default:
				return 0, fmt.Errorf("%w: value of %s invalid for %d-bit %s", ErrOverflow, v, bitSize, dt)
			}
		case v.Cmp(lo) < 0:
			if overflow != OverflowSaturate {
				return 0, fmt.Errorf("%w: value of %s invalid for %d-bit %s", ErrOverflow, v, bitSize, dt)
			}
			v = lo
		}
	}
	// And uses two's complement for negative values, which is the stored pattern.
	return new(big.Int).And(v, hexMax).Uint64(), nil
}

func zeroElement(dt DataType) any {
	switch dt {
	case Float:
		return 0.0
	case String, Block:
		return []byte{}
	}
	return 0
}

func writeArray(buf []byte, it *Item, p placement, values []any) ([]byte, error) {
	bitOffset, bitSize, arraySize := p.bitOffset, p.bitSize, p.arraySize
	givenOffset, givenArraySize := bitOffset, arraySize
	dt := it.dataType

	if bitSize <= 0 {
		return buf, fmt.Errorf("%w: bit_size %d must be positive for arrays", ErrInvalidItemDefinition, bitSize)
	}
	if bitOffset < 0 {
		bitOffset += len(buf) * 8
		if bitOffset < 0 {
			return buf, bufferError("write", len(buf), dt, givenOffset, bitSize)
		}
	}

	fill := !p.exact && arraySize <= 0
	if fill {
		if givenOffset < 0 {
			return buf, fmt.Errorf("%w: negative or zero array_size (%d) cannot be given with negative bit_offset (%d)", ErrInvalidItemDefinition, givenArraySize, givenOffset)
		}
		endBytes := -floorDiv(givenArraySize, 8)
		upper := floorDiv(bitOffset+bitSize*len(values)-1, 8)
		oldUpper := len(buf) - 1 - endBytes
		switch {
		case upper < oldUpper:
			buf = splice(buf, upper+1, oldUpper-upper, nil)
		case upper > oldUpper:
			buf = splice(buf, oldUpper+1, 0, make([]byte, upper-oldUpper))
		}
		arraySize = len(buf)*8 - bitOffset + givenArraySize
	}

	numWrites := arraySize / bitSize
	if fill {
		numWrites = len(values)
	}
	if bitOffset+numWrites*bitSize > len(buf)*8 {
		return buf, bufferError("write", len(buf), dt, givenOffset, bitSize)
	}
	if arraySize%bitSize != 0 {
		return buf, fmt.Errorf("%w: array_size %d not a multiple of bit_size %d", ErrInvalidItemDefinition, givenArraySize, bitSize)
	}
	if numWrites < len(values) {
		return buf, fmt.Errorf("%w: too many values %d for given array_size %d and bit_size %d", ErrInvalidValue, len(values), givenArraySize, bitSize)
	}
	if dt.Integer() && it.endianness == LittleEndian && bitSize > 1 && !(bitOffset%8 == 0 && evenBitSize(bitSize)) {
		return buf, fmt.Errorf("%w: arrays do not support little endian bit fields with bit_size greater than 1-bit", ErrInvalidItemDefinition)
	}

	for i := 0; i < numWrites; i++ {
		var v any = zeroElement(dt)
		if i < len(values) {
			v = values[i]
		}
		if dt.Bytes() {
			if n, ok := v.(int); ok {
				v = []byte{byte(n)}
			}
		}
		var err error
		buf, err = writeScalar(buf, v, bitOffset+i*bitSize, bitSize, dt, it.endianness, it.overflow, true)
		if err != nil {
			return buf, err
		}
	}
	return buf, nil
}
