package definition

import (
	"fmt"
	"strings"

	"github.com/openground/records/pkg/catalog"
	"github.com/openground/records/pkg/conversion"
	"github.com/openground/records/pkg/limits"
	"github.com/openground/records/pkg/log"
	"github.com/openground/records/pkg/packet"
	"github.com/openground/records/pkg/structure"
)

// Options configures building packets from a document.
type Options struct {
	// Logger is given to every built packet. Nil means no logging.
	Logger log.Logger
}

// Build creates the command and telemetry packets of the document.
func (d *Document) Build(opts Options) (commands, telemetry []*packet.Packet, err error) {
	if err := d.Validate(); err != nil {
		return nil, nil, err
	}
	end, err := endianness(d.Endianness, structure.BigEndian)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", d.Target, err)
	}
	for _, pd := range d.Commands {
		p, err := BuildPacket(d.Target, end, pd, opts)
		if err != nil {
			return nil, nil, err
		}
		commands = append(commands, p)
	}
	for _, pd := range d.Telemetry {
		p, err := BuildPacket(d.Target, end, pd, opts)
		if err != nil {
			return nil, nil, err
		}
		telemetry = append(telemetry, p)
	}
	return commands, telemetry, nil
}

// Register builds the document and adds its packets to the registries.
// Either registry may be nil to skip that side. Nothing is added when
// building fails.
func (d *Document) Register(cmds *catalog.Commands, tlm *catalog.Telemetry, opts Options) error {
	commands, telemetry, err := d.Build(opts)
	if err != nil {
		return err
	}
	if cmds != nil {
		for _, p := range commands {
			cmds.Add(p)
		}
	}
	if tlm != nil {
		for _, p := range telemetry {
			tlm.Add(p)
		}
	}
	return nil
}

// BuildPacket creates one packet of target. end is the endianness used when
// neither the packet nor an item names one.
func BuildPacket(target string, end structure.Endianness, pd PacketDef, opts Options) (*packet.Packet, error) {
	end, err := endianness(pd.Endianness, end)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", target, pd.Name, err)
	}
	p := packet.NewWithConfig(packet.Config{
		Target:            target,
		Packet:            pd.Name,
		Description:       pd.Description,
		DefaultEndianness: end,
		AcceptShortBuffer: pd.AcceptShortBuffer,
		Logger:            opts.Logger,
	})
	p.Hazardous = pd.Hazardous
	p.HazardousDescription = pd.HazardousDescription
	p.Hidden = pd.Hidden
	p.Disabled = pd.Disabled
	p.Virtual = pd.Virtual
	p.MessagesDisabled = pd.MessagesDisabled
	p.Response = normalizeRef(pd.Response)
	p.ErrorResponse = normalizeRef(pd.ErrorResponse)

	for _, id := range pd.Items {
		if err := defineItem(p, id); err != nil {
			return nil, fmt.Errorf("%s %s %s: %w", p.TargetName(), p.PacketName(), strings.ToUpper(id.Name), err)
		}
	}
	return p, nil
}

func normalizeRef(r *packet.Ref) *packet.Ref {
	if r == nil {
		return nil
	}
	return &packet.Ref{Target: strings.ToUpper(r.Target), Packet: strings.ToUpper(r.Packet)}
}

func endianness(s string, fallback structure.Endianness) (structure.Endianness, error) {
	if s == "" {
		return fallback, nil
	}
	return structure.ParseEndianness(s)
}

func defineItem(p *packet.Packet, id ItemDef) error {
	dt, err := structure.ParseDataType(id.Type)
	if err != nil {
		return err
	}
	end, err := endianness(id.Endianness, p.DefaultEndianness())
	if err != nil {
		return err
	}
	overflow := structure.OverflowError
	if id.Overflow != "" {
		if overflow, err = structure.ParseOverflow(id.Overflow); err != nil {
			return err
		}
	}

	offset := p.DefinedLengthBits()
	if dt.Virtual() {
		offset = 0
	}
	if id.BitOffset != nil {
		offset = *id.BitOffset
	}

	var sit *structure.Item
	if id.ArraySize != nil {
		sit, err = structure.NewArrayItem(id.Name, offset, id.BitSize, *id.ArraySize, dt, end, overflow)
	} else {
		sit, err = structure.NewItem(id.Name, offset, id.BitSize, dt, end, overflow)
	}
	if err != nil {
		return err
	}
	if id.Variable != nil {
		if err := sit.SetVariableBitSize(id.Variable); err != nil {
			return err
		}
	}

	it, _ := p.Define(sit)
	it.Description = id.Description
	it.FormatString = id.Format
	it.Units = id.Units
	it.UnitsFull = id.UnitsFull
	it.Default = id.Default
	it.Minimum = id.Minimum
	it.Maximum = id.Maximum
	it.Required = id.Required
	it.Obfuscate = id.Obfuscate
	it.MessagesDisabled = id.MessagesDisabled

	for _, s := range id.States {
		it.AddState(s.Name, stateValue(s.Value))
		if s.Hazardous {
			if it.Hazardous == nil {
				it.Hazardous = make(map[string]string)
			}
			it.Hazardous[strings.ToUpper(s.Name)] = s.HazardousDescription
		}
		if s.Color != "" {
			if err := it.SetStateColor(s.Name, strings.ToUpper(s.Color)); err != nil {
				return fmt.Errorf("state %s: %w", s.Name, err)
			}
		}
	}

	if id.ReadConversion != nil {
		if it.ReadConversion, err = id.ReadConversion.Conversion(); err != nil {
			return fmt.Errorf("read conversion: %w", err)
		}
	}
	if id.WriteConversion != nil {
		if it.WriteConversion, err = id.WriteConversion.Conversion(); err != nil {
			return fmt.Errorf("write conversion: %w", err)
		}
	}

	if id.Limits != nil {
		if err := applyLimits(p, it, id.Limits); err != nil {
			return err
		}
	}

	if id.ID != nil {
		if err := p.SetIDValue(it.Name(), id.ID); err != nil {
			return err
		}
	}
	return nil
}

// stateValue upper-cases the ANY wildcard so documents may spell it freely.
func stateValue(v any) any {
	if s, ok := v.(string); ok && strings.EqualFold(s, packet.AnyState) {
		return packet.AnyState
	}
	return v
}

func applyLimits(p *packet.Packet, it *packet.Item, ld *LimitsDef) error {
	sets := make(map[string]limits.Thresholds, len(ld.Sets))
	for name, t := range ld.Sets {
		sets[strings.ToUpper(name)] = t
	}
	def, ok := sets[limits.DefaultSet]
	if !ok {
		return fmt.Errorf("%w: %s", limits.ErrMissingDefaultLimits, p.ItemRef(it))
	}
	// DEFAULT must exist before any other set.
	if err := p.SetLimits(it.Name(), limits.DefaultSet, def); err != nil {
		return err
	}
	for set, t := range sets {
		if set == limits.DefaultSet {
			continue
		}
		if err := p.SetLimits(it.Name(), set, t); err != nil {
			return err
		}
	}
	if ld.Persistence > 0 {
		it.Limits.PersistenceSetting = ld.Persistence
	}
	it.Limits.Enabled = !ld.Disabled
	return nil
}

// Conversion creates the conversion the definition describes.
func (c *ConversionDef) Conversion() (conversion.Conversion, error) {
	switch strings.ToLower(c.Kind) {
	case KindPolynomial:
		poly, err := conversion.NewPolynomial(c.Coefficients...)
		if err != nil {
			return nil, err
		}
		return poly, nil
	case KindSegmentedPolynomial:
		seg, err := conversion.NewSegmentedPolynomial(c.Segments...)
		if err != nil {
			return nil, err
		}
		return seg, nil
	case KindIdentity:
		dt, err := structure.ParseDataType(c.Type)
		if err != nil {
			return nil, err
		}
		return conversion.Identity{Type: dt, BitSize: c.BitSize}, nil
	case KindUnixTime:
		if c.Seconds == "" {
			return nil, fmt.Errorf("%w: unix_time requires seconds", ErrInvalidDocument)
		}
		return &conversion.UnixTime{
			SecondsItem:      strings.ToUpper(c.Seconds),
			MicrosecondsItem: strings.ToUpper(c.Microseconds),
		}, nil
	}
	return nil, fmt.Errorf("%w: kind %q", ErrUnsupportedConversion, c.Kind)
}
