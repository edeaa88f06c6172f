package packet

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openground/records/pkg/limits"
	"github.com/openground/records/pkg/log"
	"github.com/openground/records/pkg/structure"
)

// Config configures a Packet.
type Config struct {
	Target      string
	Packet      string
	Description string

	DefaultEndianness structure.Endianness
	AcceptShortBuffer bool
	IgnoreOverlap     bool

	// Logger receives overlap and limits events. Nil means no logging.
	Logger log.Logger
}

// Ref names a packet of a target.
type Ref struct {
	Target string `yaml:"target" cbor:"1,keyasint"`
	Packet string `yaml:"packet" cbor:"2,keyasint"`
}

// LimitsChangeFunc is called when an item changes limits state. logChange is
// false when the new state is not worth reporting, such as a cleared state.
type LimitsChangeFunc func(p *Packet, it *Item, old limits.State, value any, logChange bool)

// Packet is a command or telemetry packet definition bound to a buffer.
type Packet struct {
	*structure.Structure

	Description          string
	Hazardous            bool
	HazardousDescription string

	Hidden           bool
	Disabled         bool
	Virtual          bool
	MessagesDisabled bool

	Response      *Ref
	ErrorResponse *Ref
	RelatedItems  []limits.ItemRef

	ReceivedTime  time.Time
	ReceivedCount uint64

	items map[string]*Item

	onLimitsChange LimitsChangeFunc
	instanceID     uuid.UUID
}

// New creates an empty packet.
func New(target, name string, defaultEndianness structure.Endianness) *Packet {
	return NewWithConfig(Config{Target: target, Packet: name, DefaultEndianness: defaultEndianness})
}

// NewWithConfig creates an empty packet.
func NewWithConfig(cfg Config) *Packet {
	s := structure.NewWithConfig(structure.Config{
		DefaultEndianness: cfg.DefaultEndianness,
		AcceptShortBuffer: cfg.AcceptShortBuffer,
		IgnoreOverlap:     cfg.IgnoreOverlap,
		Logger:            cfg.Logger,
	})
	s.SetNames(cfg.Target, cfg.Packet)
	return &Packet{
		Structure:   s,
		Description: cfg.Description,
		items:       make(map[string]*Item),
		instanceID:  uuid.New(),
	}
}

// InstanceID identifies this packet value. Clones get a new ID.
func (p *Packet) InstanceID() uuid.UUID { return p.instanceID }

// Ref returns the packet's target and packet names.
func (p *Packet) Ref() Ref { return Ref{Target: p.TargetName(), Packet: p.PacketName()} }

// ItemRef returns the full reference of one of the packet's items.
func (p *Packet) ItemRef(it *Item) limits.ItemRef {
	return limits.ItemRef{Target: p.TargetName(), Packet: p.PacketName(), Item: it.Name()}
}

func (p *Packet) wrap(sit *structure.Item) *Item {
	if it, ok := p.items[sit.Name()]; ok && it.Item == sit {
		return it
	}
	it := &Item{Item: sit}
	p.items[sit.Name()] = it
	return it
}

// Define adds a structure item, replacing any item of the same name along
// with its metadata.
func (p *Packet) Define(sit *structure.Item) (*Item, []string) {
	warnings := p.Structure.Define(sit)
	it := &Item{Item: sit}
	p.items[sit.Name()] = it
	return it, warnings
}

// DefineItem creates and defines a scalar item.
func (p *Packet) DefineItem(name string, bitOffset, bitSize int, dataType structure.DataType) (*Item, []string, error) {
	sit, err := structure.NewItem(name, bitOffset, bitSize, dataType, p.DefaultEndianness(), structure.OverflowError)
	if err != nil {
		return nil, nil, err
	}
	it, warnings := p.Define(sit)
	return it, warnings, nil
}

// DefineArrayItem creates and defines an array item.
func (p *Packet) DefineArrayItem(name string, bitOffset, bitSize, arraySize int, dataType structure.DataType) (*Item, []string, error) {
	sit, err := structure.NewArrayItem(name, bitOffset, bitSize, arraySize, dataType, p.DefaultEndianness(), structure.OverflowError)
	if err != nil {
		return nil, nil, err
	}
	it, warnings := p.Define(sit)
	return it, warnings, nil
}

// Append places a structure item at the current defined length.
func (p *Packet) Append(sit *structure.Item) (*Item, []string, error) {
	if !sit.Virtual() {
		if err := sit.SetBitOffset(p.DefinedLengthBits()); err != nil {
			return nil, nil, err
		}
	}
	it, warnings := p.Define(sit)
	return it, warnings, nil
}

// AppendItem creates a scalar item at the current defined length.
func (p *Packet) AppendItem(name string, bitSize int, dataType structure.DataType) (*Item, []string, error) {
	off := p.DefinedLengthBits()
	if dataType.Virtual() {
		off = 0
	}
	return p.DefineItem(name, off, bitSize, dataType)
}

// AppendArrayItem creates an array item at the current defined length.
func (p *Packet) AppendArrayItem(name string, bitSize, arraySize int, dataType structure.DataType) (*Item, []string, error) {
	return p.DefineArrayItem(name, p.DefinedLengthBits(), bitSize, arraySize, dataType)
}

// Item looks up an item by name, case-insensitively.
func (p *Packet) Item(name string) (*Item, error) {
	sit, err := p.Structure.Item(name)
	if err != nil {
		return nil, err
	}
	return p.wrap(sit), nil
}

// Items returns the items keyed by name.
func (p *Packet) Items() map[string]*Item {
	out := make(map[string]*Item)
	for _, sit := range p.Structure.SortedItems() {
		out[sit.Name()] = p.wrap(sit)
	}
	return out
}

// SortedItems returns the items in buffer order.
func (p *Packet) SortedItems() []*Item {
	sorted := p.Structure.SortedItems()
	out := make([]*Item, len(sorted))
	for i, sit := range sorted {
		out[i] = p.wrap(sit)
	}
	return out
}

// ItemNames returns the item names in buffer order.
func (p *Packet) ItemNames() []string {
	sorted := p.Structure.SortedItems()
	out := make([]string, len(sorted))
	for i, sit := range sorted {
		out[i] = sit.Name()
	}
	return out
}

// Delete removes an item and its metadata.
func (p *Packet) Delete(name string) error {
	if err := p.Structure.Delete(name); err != nil {
		return err
	}
	delete(p.items, strings.ToUpper(name))
	return nil
}

// Rename changes an item's name, keeping its metadata.
func (p *Packet) Rename(name, newName string) error {
	old, err := p.Item(name)
	if err != nil {
		return err
	}
	if err := p.Structure.Rename(name, newName); err != nil {
		return err
	}
	sit, err := p.Structure.Item(newName)
	if err != nil {
		return err
	}
	renamed := *old
	renamed.Item = sit
	delete(p.items, old.Name())
	p.items[sit.Name()] = &renamed
	return nil
}

// SetLimitsChangeCallback sets the function called on limits transitions.
func (p *Packet) SetLimitsChangeCallback(fn LimitsChangeFunc) { p.onLimitsChange = fn }

// Clone returns a packet sharing item definitions and metadata with p and
// holding its own copy of the buffer.
func (p *Packet) Clone() *Packet {
	c := *p
	c.Structure = p.Structure.Clone()
	c.items = maps.Clone(p.items)
	c.RelatedItems = slices.Clone(p.RelatedItems)
	c.instanceID = uuid.New()
	return &c
}

// DeepCopy returns a packet with its own copies of every item, all item
// metadata and the buffer.
func (p *Packet) DeepCopy() *Packet {
	c := *p
	c.Structure = p.Structure.DeepCopy()
	c.items = make(map[string]*Item, len(p.items))
	for _, it := range p.SortedItems() {
		sit, err := c.Structure.Item(it.Name())
		if err != nil {
			continue
		}
		c.items[sit.Name()] = it.clone(sit)
	}
	c.RelatedItems = slices.Clone(p.RelatedItems)
	if p.Response != nil {
		r := *p.Response
		c.Response = &r
	}
	if p.ErrorResponse != nil {
		r := *p.ErrorResponse
		c.ErrorResponse = &r
	}
	c.instanceID = uuid.New()
	return &c
}

// Reset clears the reception bookkeeping.
func (p *Packet) Reset() {
	p.ReceivedTime = time.Time{}
	p.ReceivedCount = 0
}
