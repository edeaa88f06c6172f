package structure

import (
	"fmt"
	"strings"
)

// DataType identifies how an item's bits are interpreted.
type DataType uint8

const (
	// Int is a signed two's complement integer.
	Int DataType = iota
	// Uint is an unsigned integer.
	Uint
	// Float is an IEEE 754 value of 32 or 64 bits.
	Float
	// String is text; reads stop at the first NUL byte.
	String
	// Block is opaque bytes.
	Block
	// Derived has no buffer storage; its value comes from a conversion.
	Derived
	// Bool, Object, Array and Any are structural types used by higher layers.
	// Like Derived they occupy no bits.
	Bool
	Object
	Array
	Any
)

var dataTypeNames = []string{"INT", "UINT", "FLOAT", "STRING", "BLOCK", "DERIVED", "BOOL", "OBJECT", "ARRAY", "ANY"}

// String returns the data type name.
func (d DataType) String() string {
	if int(d) < len(dataTypeNames) {
		return dataTypeNames[d]
	}
	return "UNKNOWN"
}

// Virtual reports whether items of this type occupy no buffer bits.
func (d DataType) Virtual() bool {
	return d >= Derived
}

// Integer reports whether the type is Int or Uint.
func (d DataType) Integer() bool {
	return d == Int || d == Uint
}

// Bytes reports whether the type is String or Block.
func (d DataType) Bytes() bool {
	return d == String || d == Block
}

// ParseDataType parses a data type name (case-insensitive).
func ParseDataType(s string) (DataType, error) {
	for i, name := range dataTypeNames {
		if strings.EqualFold(s, name) {
			return DataType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown data type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d DataType) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DataType) UnmarshalText(b []byte) error {
	v, err := ParseDataType(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Endianness is the byte order of a multi-byte item.
type Endianness uint8

const (
	BigEndian Endianness = iota
	LittleEndian
)

// String returns the endianness name.
func (e Endianness) String() string {
	switch e {
	case BigEndian:
		return "BIG_ENDIAN"
	case LittleEndian:
		return "LITTLE_ENDIAN"
	default:
		return "UNKNOWN"
	}
}

// ParseEndianness parses BIG_ENDIAN or LITTLE_ENDIAN (case-insensitive).
func ParseEndianness(s string) (Endianness, error) {
	switch strings.ToUpper(s) {
	case "BIG_ENDIAN":
		return BigEndian, nil
	case "LITTLE_ENDIAN":
		return LittleEndian, nil
	}
	return 0, fmt.Errorf("unknown endianness %q, must be BIG_ENDIAN or LITTLE_ENDIAN", s)
}

// MarshalText implements encoding.TextMarshaler.
func (e Endianness) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Endianness) UnmarshalText(b []byte) error {
	v, err := ParseEndianness(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// Overflow is the policy applied when a written integer or byte value does not
// fit the item.
type Overflow uint8

const (
	// OverflowError rejects any out of range value.
	OverflowError Overflow = iota
	// OverflowErrorAllowHex accepts values up to the unsigned maximum of the
	// field so signed fields can be written with hex patterns.
	OverflowErrorAllowHex
	// OverflowTruncate keeps the low bits.
	OverflowTruncate
	// OverflowSaturate clamps to the representable range.
	OverflowSaturate
)

var overflowNames = []string{"ERROR", "ERROR_ALLOW_HEX", "TRUNCATE", "SATURATE"}

// String returns the overflow policy name.
func (o Overflow) String() string {
	if int(o) < len(overflowNames) {
		return overflowNames[o]
	}
	return "UNKNOWN"
}

// ParseOverflow parses an overflow policy name (case-insensitive).
func ParseOverflow(s string) (Overflow, error) {
	for i, name := range overflowNames {
		if strings.EqualFold(s, name) {
			return Overflow(i), nil
		}
	}
	return 0, fmt.Errorf("unknown overflow type %q, must be ERROR, ERROR_ALLOW_HEX, TRUNCATE, or SATURATE", s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Overflow) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Overflow) UnmarshalText(b []byte) error {
	v, err := ParseOverflow(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}
