package packet

import (
	"maps"
	"slices"
	"strings"

	"github.com/openground/records/pkg/conversion"
	"github.com/openground/records/pkg/limits"
	"github.com/openground/records/pkg/structure"
)

// AnyState is a state value that matches every value without a state of
// its own.
const AnyState = "ANY"

// State names one value of an item.
type State struct {
	Name  string
	Value any
}

// Item is a structure item with packet metadata.
type Item struct {
	*structure.Item

	Description  string
	FormatString string
	Units        string
	UnitsFull    string

	// States map values to names, in definition order.
	States []State

	// StateColors gives the limits colour (RED, YELLOW or GREEN) of a state.
	StateColors map[string]string

	// Hazardous maps a state name to the reason writing it is hazardous.
	Hazardous map[string]string

	Default  any
	Minimum  any
	Maximum  any
	Required bool

	ReadConversion  conversion.Conversion
	WriteConversion conversion.Conversion

	Limits *limits.ItemLimits

	Obfuscate        bool
	MessagesDisabled bool

	idValue any
}

// IDValue returns the value that identifies the packet, or nil.
func (it *Item) IDValue() any { return it.idValue }

// AddState appends a state. A state with the same name is replaced.
func (it *Item) AddState(name string, value any) {
	name = strings.ToUpper(name)
	for i, s := range it.States {
		if s.Name == name {
			it.States[i].Value = value
			return
		}
	}
	it.States = append(it.States, State{Name: name, Value: value})
}

// StateNames returns the state names in definition order.
func (it *Item) StateNames() []string {
	names := make([]string, len(it.States))
	for i, s := range it.States {
		names[i] = s.Name
	}
	return names
}

// StateValue returns the value of a state, case-insensitively.
func (it *Item) StateValue(name string) (any, bool) {
	for _, s := range it.States {
		if strings.EqualFold(s.Name, name) {
			return s.Value, true
		}
	}
	return nil, false
}

// StateName returns the state whose value equals v. A state with the value
// AnyState matches when nothing else does.
func (it *Item) StateName(v any) (string, bool) {
	anyName := ""
	for _, s := range it.States {
		if s.Value == AnyState {
			if anyName == "" {
				anyName = s.Name
			}
			continue
		}
		if structure.Equal(s.Value, v) {
			return s.Name, true
		}
	}
	return anyName, anyName != ""
}

// SetStateColor gives a state a limits colour, enabling state monitoring.
func (it *Item) SetStateColor(state, color string) error {
	if _, err := limits.ColorState(color); err != nil {
		return err
	}
	if it.StateColors == nil {
		it.StateColors = make(map[string]string)
	}
	it.StateColors[strings.ToUpper(state)] = color
	it.EnsureLimits()
	return nil
}

// EnsureLimits returns the item's limits, creating them if needed.
func (it *Item) EnsureLimits() *limits.ItemLimits {
	if it.Limits == nil {
		it.Limits = limits.NewItemLimits()
	}
	return it.Limits
}

// monitored reports whether CheckLimits looks at the item.
func (it *Item) monitored() bool {
	if it.Limits == nil {
		return false
	}
	return it.Limits.Defined() || (len(it.StateColors) > 0 && len(it.States) > 0)
}

func (it *Item) clone(sit *structure.Item) *Item {
	c := *it
	c.Item = sit
	c.States = slices.Clone(it.States)
	c.StateColors = maps.Clone(it.StateColors)
	c.Hazardous = maps.Clone(it.Hazardous)
	if it.Limits != nil {
		c.Limits = it.Limits.Clone()
	}
	return &c
}
