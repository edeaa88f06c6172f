package catalog

import (
	"fmt"
	"strings"

	"github.com/openground/records/pkg/packet"
	"github.com/openground/records/pkg/structure"
)

// Commands is the registry of command packets.
type Commands struct {
	registry
}

// NewCommands creates an empty command registry.
func NewCommands() *Commands {
	return NewCommandsWithConfig(Config{})
}

// NewCommandsWithConfig creates an empty command registry.
func NewCommandsWithConfig(cfg Config) *Commands {
	return &Commands{registry: newRegistry("Command", cfg)}
}

// BuildResult describes a built command.
type BuildResult struct {
	Hazardous            bool
	HazardousDescription string
}

// BuildCmd builds a command from its defaults and the given parameters.
//
// Parameter names are case-insensitive. With rangeCheck, numeric values
// outside an item's Minimum and Maximum fail with a *RangeError; without
// it they are written as given, subject to the item's overflow policy.
// With raw, values are written RAW; otherwise state names are resolved
// and write conversions run.
func (c *Commands) BuildCmd(target, name string, params map[string]any, rangeCheck, raw bool) (*packet.Packet, BuildResult, error) {
	def, err := c.Packet(target, name)
	if err != nil {
		return nil, BuildResult{}, err
	}

	given := make(map[string]any, len(params))
	for k, v := range params {
		given[strings.ToUpper(k)] = v
	}
	for k := range given {
		if _, err := c.item(def, k); err != nil {
			return nil, BuildResult{}, err
		}
	}
	items := def.SortedItems()
	for _, it := range items {
		if _, ok := given[it.Name()]; it.Required && !ok {
			return nil, BuildResult{}, &MissingRequiredParameterError{Target: def.TargetName(), Packet: def.PacketName(), Item: it.Name()}
		}
	}

	cmd := def.Clone()
	cmd.Reset()
	if err := cmd.SetBuffer(make([]byte, cmd.DefinedLength())); err != nil {
		return nil, BuildResult{}, err
	}
	if err := cmd.RestoreDefaults(); err != nil {
		return nil, BuildResult{}, err
	}
	for _, it := range cmd.IDItems() {
		if it.Default == nil {
			if err := cmd.WriteItemValue(it, it.IDValue(), packet.Raw); err != nil {
				return nil, BuildResult{}, err
			}
		}
	}

	var written []string
	for _, it := range items {
		v, ok := given[it.Name()]
		if !ok {
			continue
		}
		if err := c.checkParameter(cmd, it, v, rangeCheck, raw); err != nil {
			return nil, BuildResult{}, err
		}
		vt := packet.Converted
		if raw {
			vt = packet.Raw
		}
		if err := cmd.WriteItemValue(it, v, vt); err != nil {
			return nil, BuildResult{}, fmt.Errorf("%s %s %s: %w", cmd.TargetName(), cmd.PacketName(), it.Name(), err)
		}
		written = append(written, it.Name())
	}

	res := BuildResult{Hazardous: def.Hazardous, HazardousDescription: def.HazardousDescription}
	if !res.Hazardous && len(written) > 0 {
		hz, desc, err := cmd.EvaluateHazard(written...)
		if err != nil {
			return nil, BuildResult{}, err
		}
		res = BuildResult{Hazardous: hz, HazardousDescription: desc}
	}
	return cmd, res, nil
}

// checkParameter validates a parameter's state name and, with rangeCheck,
// its range.
func (c *Commands) checkParameter(cmd *packet.Packet, it *packet.Item, v any, rangeCheck, raw bool) error {
	check := v
	if !raw && len(it.States) > 0 {
		if s, ok := v.(string); ok {
			sv, ok := it.StateValue(s)
			if !ok && it.DataType() != structure.String {
				return &packet.StateError{Item: it.Name(), State: s, States: it.StateNames()}
			}
			if ok {
				check = sv
			}
		}
	}
	if !rangeCheck || it.Minimum == nil || it.Maximum == nil {
		return nil
	}
	if it.DataType().Bytes() || it.DataType() == structure.Derived {
		return nil
	}
	f, err := structure.ToFloat64(check)
	if err != nil {
		return nil
	}
	lo, err := structure.ToFloat64(it.Minimum)
	if err != nil {
		return nil
	}
	hi, err := structure.ToFloat64(it.Maximum)
	if err != nil {
		return nil
	}
	if f < lo || f > hi {
		return &RangeError{Target: cmd.TargetName(), Packet: cmd.PacketName(), Item: it.Name(), Value: v, Minimum: it.Minimum, Maximum: it.Maximum}
	}
	return nil
}

// Hazardous reports whether an existing command packet is hazardous as it
// currently stands.
func (c *Commands) Hazardous(cmd *packet.Packet) (bool, string, error) {
	return cmd.EvaluateHazard()
}
