package definition

import (
	"fmt"

	"github.com/openground/records/pkg/conversion"
	"github.com/openground/records/pkg/limits"
	"github.com/openground/records/pkg/packet"
)

// FromPackets describes the given packets as a document of target. Every
// packet and item carries its resolved endianness, so the document
// endianness is left empty.
func FromPackets(target string, commands, telemetry []*packet.Packet) (*Document, error) {
	doc := &Document{Target: target}
	for _, p := range commands {
		pd, err := FromPacket(p)
		if err != nil {
			return nil, err
		}
		doc.Commands = append(doc.Commands, pd)
	}
	for _, p := range telemetry {
		pd, err := FromPacket(p)
		if err != nil {
			return nil, err
		}
		doc.Telemetry = append(doc.Telemetry, pd)
	}
	return doc, nil
}

// FromPacket describes a packet. Items are listed in buffer order with
// explicit bit offsets. Conversions without a declarative form, such as
// conversion.Func, fail with ErrUnsupportedConversion.
func FromPacket(p *packet.Packet) (PacketDef, error) {
	pd := PacketDef{
		Name:                 p.PacketName(),
		Description:          p.Description,
		Endianness:           p.DefaultEndianness().String(),
		AcceptShortBuffer:    p.AcceptShortBuffer(),
		Hazardous:            p.Hazardous,
		HazardousDescription: p.HazardousDescription,
		Hidden:               p.Hidden,
		Disabled:             p.Disabled,
		Virtual:              p.Virtual,
		MessagesDisabled:     p.MessagesDisabled,
		Response:             copyRef(p.Response),
		ErrorResponse:        copyRef(p.ErrorResponse),
	}
	for _, it := range p.SortedItems() {
		id, err := fromItem(it)
		if err != nil {
			return PacketDef{}, fmt.Errorf("%s %s %s: %w", p.TargetName(), p.PacketName(), it.Name(), err)
		}
		pd.Items = append(pd.Items, id)
	}
	return pd, nil
}

func copyRef(r *packet.Ref) *packet.Ref {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

func fromItem(it *packet.Item) (ItemDef, error) {
	offset := it.BitOffset()
	id := ItemDef{
		Name:             it.Name(),
		BitOffset:        &offset,
		BitSize:          it.BitSize(),
		Type:             it.DataType().String(),
		Endianness:       it.Endianness().String(),
		Overflow:         it.Overflow().String(),
		Variable:         it.VariableBitSize(),
		ID:               it.IDValue(),
		Description:      it.Description,
		Format:           it.FormatString,
		Units:            it.Units,
		UnitsFull:        it.UnitsFull,
		Default:          it.Default,
		Minimum:          it.Minimum,
		Maximum:          it.Maximum,
		Required:         it.Required,
		Obfuscate:        it.Obfuscate,
		MessagesDisabled: it.MessagesDisabled,
	}
	if it.IsArray() {
		size := it.ArraySize()
		id.ArraySize = &size
	}
	for _, s := range it.States {
		sd := StateDef{Name: s.Name, Value: s.Value, Color: it.StateColors[s.Name]}
		if desc, ok := it.Hazardous[s.Name]; ok {
			sd.Hazardous = true
			sd.HazardousDescription = desc
		}
		id.States = append(id.States, sd)
	}
	if l := it.Limits; l != nil && l.Defined() {
		ld := &LimitsDef{Disabled: !l.Enabled, Sets: make(map[string]limits.Thresholds)}
		if l.PersistenceSetting != 1 {
			ld.Persistence = l.PersistenceSetting
		}
		for _, set := range l.Sets() {
			t, _ := l.Get(set)
			ld.Sets[set] = t
		}
		id.Limits = ld
	}

	var err error
	if it.ReadConversion != nil {
		if id.ReadConversion, err = fromConversion(it.ReadConversion); err != nil {
			return ItemDef{}, fmt.Errorf("read conversion: %w", err)
		}
	}
	if it.WriteConversion != nil {
		if id.WriteConversion, err = fromConversion(it.WriteConversion); err != nil {
			return ItemDef{}, fmt.Errorf("write conversion: %w", err)
		}
	}
	return id, nil
}

func fromConversion(c conversion.Conversion) (*ConversionDef, error) {
	switch x := c.(type) {
	case *conversion.Polynomial:
		return &ConversionDef{Kind: KindPolynomial, Coefficients: x.Coefficients}, nil
	case *conversion.SegmentedPolynomial:
		return &ConversionDef{Kind: KindSegmentedPolynomial, Segments: x.Segments()}, nil
	case conversion.Identity:
		return &ConversionDef{Kind: KindIdentity, Type: x.Type.String(), BitSize: x.BitSize}, nil
	case *conversion.UnixTime:
		return &ConversionDef{Kind: KindUnixTime, Seconds: x.SecondsItem, Microseconds: x.MicrosecondsItem}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedConversion, c)
}
