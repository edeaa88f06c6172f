package conversion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/openground/records/pkg/structure"
)

var (
	ErrNotNumeric      = errors.New("value is not numeric")
	ErrNoCoefficients  = errors.New("at least one coefficient is required")
	ErrNoSegments      = errors.New("at least one segment is required")
	ErrMissingFunction = errors.New("conversion function is nil")
)

// Source is the packet a conversion runs against. Read returns RAW values.
type Source interface {
	Read(name string) (any, error)
}

// Conversion turns a value read from a buffer into an engineering value,
// or the reverse for write conversions. Conversions never modify buf.
type Conversion interface {
	Call(value any, src Source, buf []byte) (any, error)

	// ConvertedType and ConvertedBitSize describe the result for
	// documentation and definition export.
	ConvertedType() structure.DataType
	ConvertedBitSize() int

	String() string
}

// Func adapts a plain function.
type Func struct {
	Name    string
	Type    structure.DataType
	BitSize int
	Fn      func(value any, src Source, buf []byte) (any, error)
}

func (f *Func) Call(value any, src Source, buf []byte) (any, error) {
	if f.Fn == nil {
		return nil, ErrMissingFunction
	}
	return f.Fn(value, src, buf)
}

func (f *Func) ConvertedType() structure.DataType { return f.Type }
func (f *Func) ConvertedBitSize() int             { return f.BitSize }

func (f *Func) String() string {
	if f.Name == "" {
		return "Func"
	}
	return f.Name
}

// Identity returns the value unchanged.
type Identity struct {
	Type    structure.DataType
	BitSize int
}

func (Identity) Call(value any, _ Source, _ []byte) (any, error) { return value, nil }
func (i Identity) ConvertedType() structure.DataType           { return i.Type }
func (i Identity) ConvertedBitSize() int                       { return i.BitSize }
func (Identity) String() string                                { return "Identity" }

// Chain runs conversions in order, feeding each result to the next.
type Chain []Conversion

func (c Chain) Call(value any, src Source, buf []byte) (any, error) {
	var err error
	for _, conv := range c {
		value, err = conv.Call(value, src, buf)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", conv, err)
		}
	}
	return value, nil
}

// ConvertedType is the type of the last conversion.
func (c Chain) ConvertedType() structure.DataType {
	if len(c) == 0 {
		return structure.Any
	}
	return c[len(c)-1].ConvertedType()
}

func (c Chain) ConvertedBitSize() int {
	if len(c) == 0 {
		return 0
	}
	return c[len(c)-1].ConvertedBitSize()
}

func (c Chain) String() string {
	names := make([]string, len(c))
	for i, conv := range c {
		names[i] = conv.String()
	}
	return "Chain(" + strings.Join(names, ", ") + ")"
}

// mapNumeric applies fn to a number, or to every element of an array.
func mapNumeric(value any, fn func(float64) float64) (any, error) {
	if elems, ok := value.([]any); ok {
		out := make([]any, len(elems))
		for i, e := range elems {
			v, err := mapNumeric(e, fn)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	if !structure.IsNumeric(value) {
		return nil, fmt.Errorf("%w: %T", ErrNotNumeric, value)
	}
	x, err := structure.ToFloat64(value)
	if err != nil {
		return nil, err
	}
	return fn(x), nil
}
