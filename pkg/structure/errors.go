package structure

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is to test for them; the concrete error types
// below carry the offending names.
var (
	ErrInvalidItemDefinition = errors.New("invalid item definition")
	ErrBufferLength          = errors.New("buffer length error")
	ErrUnknownItem           = errors.New("unknown item")
	ErrBufferTooSmall        = errors.New("buffer too small")
	ErrOverflow              = errors.New("value out of range")
	ErrInvalidValue          = errors.New("invalid value")
	ErrNoWriteConversion     = errors.New("no write conversion")
)

// ItemError describes a rejected item definition.
type ItemError struct {
	Item string
	Rule string
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s: %s", e.Item, e.Rule)
}

// Unwrap returns ErrInvalidItemDefinition.
func (e *ItemError) Unwrap() error { return ErrInvalidItemDefinition }

func invalidItem(name, format string, args ...any) error {
	return &ItemError{Item: name, Rule: fmt.Sprintf(format, args...)}
}

// BufferLengthError reports a buffer whose length violates the fixed-size
// contract of a structure.
type BufferLengthError struct {
	Name     string
	Expected int
	Actual   int
}

func (e *BufferLengthError) Error() string {
	rel := "less"
	if e.Actual > e.Expected {
		rel = "greater"
	}
	prefix := ""
	if e.Name != "" {
		prefix = e.Name + ": "
	}
	return fmt.Sprintf("%sbuffer length %d %s than defined length %d", prefix, e.Actual, rel, e.Expected)
}

// Unwrap returns ErrBufferLength.
func (e *BufferLengthError) Unwrap() error { return ErrBufferLength }

// UnknownItemError reports a lookup of an item name that is not defined.
type UnknownItemError struct {
	Name string
	Item string
}

func (e *UnknownItemError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("unknown item: %s %s", e.Name, e.Item)
	}
	return fmt.Sprintf("unknown item: %s", e.Item)
}

// Unwrap returns ErrUnknownItem.
func (e *UnknownItemError) Unwrap() error { return ErrUnknownItem }

// bufferError reports an access past the end of the buffer.
func bufferError(op string, bufLen int, dt DataType, bitOffset, bitSize int) error {
	return fmt.Errorf("%w: %d byte buffer insufficient to %s %s at bit_offset %d with bit_size %d",
		ErrBufferTooSmall, bufLen, op, dt, bitOffset, bitSize)
}
