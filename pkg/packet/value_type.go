package packet

import (
	"fmt"
	"strings"
)

// ValueType selects how much processing a read applies.
type ValueType uint8

const (
	Raw ValueType = iota
	Converted
	Formatted
	WithUnits
)

var valueTypeNames = [...]string{"RAW", "CONVERTED", "FORMATTED", "WITH_UNITS"}

func (v ValueType) String() string {
	if int(v) < len(valueTypeNames) {
		return valueTypeNames[v]
	}
	return fmt.Sprintf("VALUE_TYPE(%d)", uint8(v))
}

// ParseValueType parses RAW, CONVERTED, FORMATTED or WITH_UNITS.
func ParseValueType(s string) (ValueType, error) {
	for i, n := range valueTypeNames {
		if strings.EqualFold(s, n) {
			return ValueType(i), nil
		}
	}
	if len(s) > 10 {
		s = s[:10] + "..."
	}
	return Raw, fmt.Errorf("%w '%s', must be RAW, CONVERTED, FORMATTED, or WITH_UNITS", ErrUnknownValueType, s)
}

// MarshalText implements encoding.TextMarshaler.
func (v ValueType) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *ValueType) UnmarshalText(b []byte) error {
	t, err := ParseValueType(string(b))
	if err != nil {
		return err
	}
	*v = t
	return nil
}
