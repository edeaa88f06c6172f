package packet

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/openground/records/pkg/log"
	"github.com/openground/records/pkg/structure"
)

// ReadValue reads the named item as vt.
func (p *Packet) ReadValue(name string, vt ValueType) (any, error) {
	it, err := p.Item(name)
	if err != nil {
		return nil, err
	}
	return p.ReadItemValue(it, vt)
}

// WriteValue writes the named item as vt. Only RAW and CONVERTED values
// can be written.
func (p *Packet) WriteValue(name string, v any, vt ValueType) error {
	it, err := p.Item(name)
	if err != nil {
		return err
	}
	return p.WriteItemValue(it, v, vt)
}

// ReadItemValue reads it as vt. A RAW read of a DERIVED item runs the read
// conversion, since the item has no stored bits.
func (p *Packet) ReadItemValue(it *Item, vt ValueType) (any, error) {
	if vt > WithUnits {
		return nil, fmt.Errorf("%w %d", ErrUnknownValueType, vt)
	}
	value, err := p.Structure.ReadItem(it.Item)
	if err != nil {
		return nil, err
	}

	derivedRaw := false
	if it.DataType() == structure.Derived && vt == Raw {
		vt = Converted
		derivedRaw = true
	}
	if vt == Raw {
		return value, nil
	}

	if it.ReadConversion != nil {
		buf := p.BufferNoCopy()
		if elems, ok := value.([]any); ok && it.IsArray() {
			out := make([]any, len(elems))
			for i, e := range elems {
				if out[i], err = it.ReadConversion.Call(e, p, buf); err != nil {
					return nil, fmt.Errorf("%s read conversion %s: %w", it.Name(), it.ReadConversion, err)
				}
			}
			value = out
		} else if value, err = it.ReadConversion.Call(value, p, buf); err != nil {
			return nil, fmt.Errorf("%s read conversion %s: %w", it.Name(), it.ReadConversion, err)
		}
	}
	if derivedRaw {
		return value, nil
	}

	if elems, ok := value.([]any); ok {
		out := make([]any, len(elems))
		for i, e := range elems {
			out[i] = present(it, e, vt)
		}
		return out, nil
	}
	return present(it, value, vt), nil
}

// present substitutes a state name for v or applies formatting.
func present(it *Item, v any, vt ValueType) any {
	if len(it.States) > 0 {
		if name, ok := it.StateName(v); ok {
			return name
		}
	}
	if vt == Converted {
		return v
	}
	s := formatValue(it.FormatString, v)
	if vt == WithUnits && it.Units != "" {
		s += " " + it.Units
	}
	return s
}

func formatValue(format string, v any) string {
	if format != "" && v != nil {
		if f, ok := v.(float64); ok && integerVerb(format) {
			v = int64(f)
		}
		return fmt.Sprintf(format, v)
	}
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return fmt.Sprintf("0x%X", x)
	}
	return fmt.Sprint(v)
}

var verbPattern = regexp.MustCompile(`%[-+# 0]*\d*(?:\.\d+)?([a-zA-Z])`)

// integerVerb reports whether format's first verb takes an integer.
func integerVerb(format string) bool {
	m := verbPattern.FindStringSubmatch(format)
	return m != nil && strings.Contains("dxXobc", m[1])
}

// WriteItemValue writes v into it. CONVERTED writes resolve state names and
// run the write conversion first.
func (p *Packet) WriteItemValue(it *Item, v any, vt ValueType) error {
	switch vt {
	case Raw:
		return p.Structure.WriteItem(it.Item, v)
	case Converted:
	case Formatted, WithUnits:
		return fmt.Errorf("%w: %s", ErrInvalidValueType, vt)
	default:
		return fmt.Errorf("%w %d", ErrUnknownValueType, vt)
	}

	if len(it.States) > 0 {
		if name, ok := v.(string); ok {
			if sv, ok := it.StateValue(name); ok {
				v = sv
			}
		}
	}
	if it.WriteConversion != nil {
		var err error
		if v, err = it.WriteConversion.Call(v, p, p.BufferNoCopy()); err != nil {
			return fmt.Errorf("%s write conversion %s: %w", it.Name(), it.WriteConversion, err)
		}
	} else if it.DataType() == structure.Derived {
		return fmt.Errorf("%w: cannot write DERIVED item %s", structure.ErrNoWriteConversion, it.Name())
	}

	err := p.Structure.WriteItem(it.Item, v)
	if err != nil && len(it.States) > 0 && errors.Is(err, structure.ErrInvalidValue) {
		if name, ok := v.(string); ok {
			return &StateError{Item: it.Name(), State: name, States: it.StateNames()}
		}
	}
	return err
}

// ReadAllValues reads every item as vt in buffer order.
func (p *Packet) ReadAllValues(vt ValueType) ([]structure.NamedValue, error) {
	items := p.SortedItems()
	out := make([]structure.NamedValue, 0, len(items))
	for _, it := range items {
		v, err := p.ReadItemValue(it, vt)
		if err != nil {
			return nil, err
		}
		out = append(out, structure.NamedValue{Name: it.Name(), Value: v})
	}
	return out, nil
}

// ItemState is one entry of ReadAllWithLimitsStates.
type ItemState struct {
	Name  string
	Value any
	// State is the item's limits state; None when it has no limits.
	State string
}

// ReadAllWithLimitsStates is ReadAllValues with each item's limits state.
func (p *Packet) ReadAllWithLimitsStates(vt ValueType) ([]ItemState, error) {
	items := p.SortedItems()
	out := make([]ItemState, 0, len(items))
	for _, it := range items {
		v, err := p.ReadItemValue(it, vt)
		if err != nil {
			return nil, err
		}
		st := ItemState{Name: it.Name(), Value: v}
		if it.Limits != nil {
			st.State = it.Limits.State.String()
		}
		out = append(out, st)
	}
	return out, nil
}

// Formatted renders one "NAME: value" line per item, skipping ignored
// names. RAW blocks are shown as a hex dump.
func (p *Packet) Formatted(vt ValueType, indent int, ignored ...string) (string, error) {
	pad := strings.Repeat(" ", indent)
	var b strings.Builder
	for _, it := range p.SortedItems() {
		if containsFold(ignored, it.Name()) {
			continue
		}
		v, err := p.ReadItemValue(it, vt)
		if err != nil {
			return "", err
		}
		if raw, ok := v.([]byte); ok && it.DataType() == structure.Block {
			fmt.Fprintf(&b, "%s%s:\n", pad, it.Name())
			for _, line := range strings.SplitAfter(hex.Dump(raw), "\n") {
				if line != "" {
					b.WriteString(pad + "  " + line)
				}
			}
			continue
		}
		fmt.Fprintf(&b, "%s%s: %s\n", pad, it.Name(), formatValue("", v))
	}
	return b.String(), nil
}

func containsFold(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// RestoreDefaults writes every item's default value, skipping the named
// items and items without a default.
func (p *Packet) RestoreDefaults(skip ...string) error {
	for _, it := range p.SortedItems() {
		if it.Default == nil || containsFold(skip, it.Name()) {
			continue
		}
		if err := p.WriteItemValue(it, it.Default, Converted); err != nil {
			return fmt.Errorf("%s default: %w", it.Name(), err)
		}
	}
	return nil
}

// Obfuscate zeroes the bits of every item flagged Obfuscate, keeping the
// size of strings, blocks and arrays. Failures are logged and skipped.
func (p *Packet) Obfuscate() {
	for _, it := range p.SortedItems() {
		if !it.Obfuscate || it.Virtual() {
			continue
		}
		if err := p.obfuscate(it); err != nil {
			p.Logger().Log(log.NewEvent(log.LevelError, log.CategoryGeneral, p.TargetName(), p.PacketName(),
				fmt.Sprintf("%s obfuscation failed with error: %v", it.Name(), err)))
		}
	}
}

func (p *Packet) obfuscate(it *Item) error {
	v, err := p.Structure.ReadItem(it.Item)
	if err != nil {
		return err
	}
	return p.Structure.WriteItem(it.Item, blank(it.DataType(), v))
}

func blank(dt structure.DataType, v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = blank(dt, e)
		}
		return out
	case []byte:
		return make([]byte, len(x))
	case string:
		return make([]byte, len(x))
	}
	if dt == structure.Float {
		return 0.0
	}
	return 0
}
