// Package structure maps named, typed fields onto a byte buffer at the bit
// level.
//
// An Item describes a single field: offset and size in bits, data type,
// endianness, overflow policy, and optionally an array size or a size taken
// from another item. A Structure holds a set of items together with the
// buffer they describe and provides RAW reads and writes.
//
// Offsets may be negative to anchor a field to the end of the buffer.
// STRING and BLOCK items with a zero or negative size fill the rest of the
// buffer, as do arrays with a zero or negative array size. Items with a
// variable bit size grow and shrink the buffer when written; the following
// items move with them.
//
// Bit offsets of LITTLE_ENDIAN bit fields name the most significant bit of
// the field.
package structure
