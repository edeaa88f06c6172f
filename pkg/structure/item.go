package structure

import (
	"cmp"
	"strings"
	"sync/atomic"
)

// createCounter orders items defined at the same offset by creation.
var createCounter atomic.Uint64

// VariableBitSize sizes an item from the current value of another item.
// The live size in bits is LengthValue*LengthBitsPerCount + LengthValueBitOffset.
// Scalar INT and UINT items ignore the formula and use the QUIC variable
// length integer sizes (6, 14, 30 or 62 bits for length values 0..3).
type VariableBitSize struct {
	LengthItemName       string `yaml:"length_item_name" cbor:"1,keyasint"`
	LengthBitsPerCount   int    `yaml:"length_bits_per_count" cbor:"2,keyasint"`
	LengthValueBitOffset int    `yaml:"length_value_bit_offset" cbor:"3,keyasint,omitempty"`
}

// Item describes one field of a Structure: where its bits live and how they
// are interpreted. Every setter re-validates the whole definition and leaves
// the item unchanged on error.
//
// An Item is a definition only. Resolving end-anchored and variable sized
// items against a concrete buffer is done by the owning Structure, so the same
// Item may be shared by several structures with different buffers.
type Item struct {
	name       string
	bitOffset  int
	bitSize    int
	dataType   DataType
	endianness Endianness
	arraySize  int
	array      bool
	overflow   Overflow
	variable   *VariableBitSize

	createIndex uint64

	// Key is an alternate lookup string. Defaults to the lower-cased name.
	Key string

	// Parent is the containing item for items nested inside a BLOCK.
	Parent *Item

	// Overlap allows this item to share bits with others without a warning.
	Overlap bool
}

// NewItem creates and validates a scalar item.
func NewItem(name string, bitOffset, bitSize int, dataType DataType, endianness Endianness, overflow Overflow) (*Item, error) {
	it := &Item{
		name:       strings.ToUpper(name),
		bitOffset:  bitOffset,
		bitSize:    bitSize,
		dataType:   dataType,
		endianness: endianness,
		overflow:   overflow,
		Key:        strings.ToLower(name),
	}
	if err := it.validate(); err != nil {
		return nil, err
	}
	it.createIndex = createCounter.Add(1)
	return it, nil
}

// NewArrayItem creates and validates an array item. arraySize is the total
// size of the array in bits; zero or negative means the array fills the rest
// of the buffer minus |arraySize| bits.
func NewArrayItem(name string, bitOffset, bitSize, arraySize int, dataType DataType, endianness Endianness, overflow Overflow) (*Item, error) {
	it := &Item{
		name:       strings.ToUpper(name),
		bitOffset:  bitOffset,
		bitSize:    bitSize,
		dataType:   dataType,
		endianness: endianness,
		arraySize:  arraySize,
		array:      true,
		overflow:   overflow,
		Key:        strings.ToLower(name),
	}
	if err := it.validate(); err != nil {
		return nil, err
	}
	it.createIndex = createCounter.Add(1)
	return it, nil
}

// MustItem is NewItem that panics on error. For static definitions in tests
// and generated code.
func MustItem(name string, bitOffset, bitSize int, dataType DataType, endianness Endianness, overflow Overflow) *Item {
	it, err := NewItem(name, bitOffset, bitSize, dataType, endianness, overflow)
	if err != nil {
		panic(err)
	}
	return it
}

func (it *Item) Name() string           { return it.name }
func (it *Item) BitOffset() int         { return it.bitOffset }
func (it *Item) BitSize() int           { return it.bitSize }
func (it *Item) DataType() DataType     { return it.dataType }
func (it *Item) Endianness() Endianness { return it.endianness }
func (it *Item) Overflow() Overflow     { return it.overflow }
func (it *Item) CreateIndex() uint64    { return it.createIndex }

// IsArray reports whether the item is an array.
func (it *Item) IsArray() bool { return it.array }

// ArraySize returns the array size in bits. Zero for scalar items.
func (it *Item) ArraySize() int { return it.arraySize }

// VariableBitSize returns a copy of the variable size definition, or nil.
func (it *Item) VariableBitSize() *VariableBitSize {
	if it.variable == nil {
		return nil
	}
	v := *it.variable
	return &v
}

// Variable reports whether the item's size comes from another item.
func (it *Item) Variable() bool { return it.variable != nil }

// Virtual reports whether the item has no buffer storage.
func (it *Item) Virtual() bool { return it.dataType.Virtual() }

// update applies fn to a copy of the item and keeps the copy only if it validates.
func (it *Item) update(fn func(c *Item)) error {
	c := *it
	fn(&c)
	if err := c.validate(); err != nil {
		return err
	}
	*it = c
	return nil
}

// SetName renames the item. Use Structure.Rename for items already defined
// in a structure.
func (it *Item) SetName(name string) error {
	return it.update(func(c *Item) { c.name = strings.ToUpper(name) })
}

func (it *Item) SetBitOffset(bitOffset int) error {
	return it.update(func(c *Item) { c.bitOffset = bitOffset })
}

func (it *Item) SetBitSize(bitSize int) error {
	return it.update(func(c *Item) { c.bitSize = bitSize })
}

func (it *Item) SetDataType(dataType DataType) error {
	return it.update(func(c *Item) { c.dataType = dataType })
}

func (it *Item) SetEndianness(endianness Endianness) error {
	return it.update(func(c *Item) { c.endianness = endianness })
}

func (it *Item) SetOverflow(overflow Overflow) error {
	return it.update(func(c *Item) { c.overflow = overflow })
}

// SetArraySize turns the item into an array of arraySize bits.
func (it *Item) SetArraySize(arraySize int) error {
	return it.update(func(c *Item) {
		c.arraySize = arraySize
		c.array = true
	})
}

// ClearArraySize turns the item back into a scalar.
func (it *Item) ClearArraySize() error {
	return it.update(func(c *Item) {
		c.arraySize = 0
		c.array = false
	})
}

// SetVariableBitSize makes the item's size depend on another item.
// Passing nil removes the dependency.
func (it *Item) SetVariableBitSize(v *VariableBitSize) error {
	return it.update(func(c *Item) {
		if v == nil {
			c.variable = nil
			return
		}
		cp := *v
		cp.LengthItemName = strings.ToUpper(cp.LengthItemName)
		c.variable = &cp
	})
}

// Clone returns an independent copy with a new creation index.
// Parent still points at the original container.
func (it *Item) Clone() *Item {
	c := *it
	if it.variable != nil {
		v := *it.variable
		c.variable = &v
	}
	c.createIndex = createCounter.Add(1)
	return &c
}

// duplicate copies the item keeping its creation index, so the copy sorts
// exactly where the original did.
func (it *Item) duplicate() *Item {
	c := *it
	if it.variable != nil {
		v := *it.variable
		c.variable = &v
	}
	return &c
}

// minimumBits is the size a variable sized item occupies when its length
// item reads zero.
func (it *Item) minimumBits() int {
	if it.variable == nil {
		return 0
	}
	if it.dataType.Integer() && !it.array {
		return quicBitSizes[0]
	}
	return it.variable.LengthValueBitOffset
}

// LittleEndianBitField reports whether the item is a LITTLE_ENDIAN integer
// that is not a byte aligned 8, 16, 32 or 64 bit value. The bit offset of
// such an item names its most significant bit.
func (it *Item) LittleEndianBitField() bool {
	if it.endianness != LittleEndian || !it.dataType.Integer() {
		return false
	}
	return !(it.bitOffset%8 == 0 && evenBitSize(it.bitSize))
}

func evenBitSize(bitSize int) bool {
	return bitSize == 8 || bitSize == 16 || bitSize == 32 || bitSize == 64
}

func (it *Item) validate() error {
	name := it.name
	if name == "" {
		return invalidItem("<unnamed>", "name must contain at least one character")
	}
	if int(it.dataType) >= len(dataTypeNames) {
		return invalidItem(name, "unknown data_type %d", it.dataType)
	}
	if it.endianness != BigEndian && it.endianness != LittleEndian {
		return invalidItem(name, "unknown endianness %d, must be BIG_ENDIAN or LITTLE_ENDIAN", it.endianness)
	}
	if int(it.overflow) >= len(overflowNames) {
		return invalidItem(name, "unknown overflow type %d", it.overflow)
	}

	dt := it.dataType
	switch {
	case dt.Virtual():
		if it.bitOffset != 0 {
			return invalidItem(name, "%s items must have bit_offset of zero", dt)
		}
		if it.bitSize != 0 {
			return invalidItem(name, "%s items must have bit_size of zero", dt)
		}
		if it.variable != nil {
			return invalidItem(name, "%s items cannot have a variable bit size", dt)
		}
	case dt == Float || dt.Bytes():
		if it.bitOffset%8 != 0 {
			return invalidItem(name, "bit_offset for FLOAT, STRING, and BLOCK items must be byte aligned")
		}
	}

	switch dt {
	case Int, Uint:
		if it.bitSize <= 0 {
			return invalidItem(name, "bit_size cannot be negative or zero for INT and UINT items: %d", it.bitSize)
		}
		if it.bitSize > 64 {
			return invalidItem(name, "bit_size for INT and UINT items cannot exceed 64: %d", it.bitSize)
		}
	case Float:
		if it.bitSize != 32 && it.bitSize != 64 {
			return invalidItem(name, "bit_size for FLOAT items must be 32 or 64. Given: %d", it.bitSize)
		}
		if it.variable != nil {
			return invalidItem(name, "variable bit size is not supported for FLOAT items")
		}
	case String, Block:
		if it.bitSize%8 != 0 {
			return invalidItem(name, "bit_size for STRING and BLOCK items must be byte multiples")
		}
	}

	if it.array {
		if it.bitSize <= 0 {
			return invalidItem(name, "bit_size cannot be negative or zero for array items")
		}
		if it.arraySize >= 0 && it.arraySize%it.bitSize != 0 {
			return invalidItem(name, "array_size must be a multiple of bit_size")
		}
	}

	if v := it.variable; v != nil {
		if v.LengthItemName == "" {
			return invalidItem(name, "variable_bit_size requires length_item_name")
		}
		if strings.EqualFold(v.LengthItemName, name) {
			return invalidItem(name, "variable_bit_size cannot reference the item itself")
		}
		quic := dt.Integer() && !it.array
		if !quic && v.LengthBitsPerCount <= 0 {
			return invalidItem(name, "variable_bit_size length_bits_per_count must be positive: %d", v.LengthBitsPerCount)
		}
		if it.bitOffset < 0 {
			return invalidItem(name, "variable sized items cannot have a negative bit_offset")
		}
	}

	if it.bitOffset < 0 {
		abs := -it.bitOffset
		if it.bitSize < 0 {
			return invalidItem(name, "can't define an item with negative bit_size %d and negative bit_offset %d", it.bitSize, it.bitOffset)
		}
		if it.bitSize == 0 && !dt.Virtual() {
			return invalidItem(name, "can't define an item with zero bit_size and negative bit_offset %d", it.bitOffset)
		}
		if it.array {
			if it.arraySize <= 0 {
				return invalidItem(name, "can't define an item with array_size %d and negative bit_offset %d", it.arraySize, it.bitOffset)
			}
			if it.arraySize > abs {
				return invalidItem(name, "can't define an item with array_size %d greater than negative bit_offset %d", it.arraySize, it.bitOffset)
			}
		} else if it.bitSize > abs {
			return invalidItem(name, "can't define an item with bit_size %d greater than negative bit_offset %d", it.bitSize, it.bitOffset)
		}
	} else if it.LittleEndianBitField() {
		// Bit offset names the most significant bit of the field
		numBytes := ((it.bitOffset%8)+it.bitSize-1)/8 + 1
		upper := it.bitOffset / 8
		if upper-numBytes+1 < 0 {
			return invalidItem(name, "LITTLE_ENDIAN bitfield with bit_offset %d and bit_size %d is invalid", it.bitOffset, it.bitSize)
		}
	}
	return nil
}

// Compare orders items for Structure.SortedItems. It returns a negative
// number when a sorts before b.
//
// Virtual items sort after every concrete item. Offsets of the same sign
// sort ascending; a non-negative offset sorts before a negative one. At the
// same offset a variable sized item sorts first, then the smaller bit size,
// then the earlier created item.
func Compare(a, b *Item) int {
	av, bv := a.Virtual(), b.Virtual()
	switch {
	case av && !bv:
		return 1
	case bv && !av:
		return -1
	case av && bv:
		return cmp.Compare(a.createIndex, b.createIndex)
	}

	if a.bitOffset != b.bitOffset {
		if (a.bitOffset >= 0) == (b.bitOffset >= 0) {
			return cmp.Compare(a.bitOffset, b.bitOffset)
		}
		if a.bitOffset >= 0 {
			return -1
		}
		return 1
	}
	if a.Variable() != b.Variable() {
		if a.Variable() {
			return -1
		}
		return 1
	}
	if a.bitSize != b.bitSize {
		return cmp.Compare(a.bitSize, b.bitSize)
	}
	return cmp.Compare(a.createIndex, b.createIndex)
}
