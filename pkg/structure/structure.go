package structure

import (
	"slices"
	"strings"
	"sync"

	"github.com/openground/records/pkg/log"
)

// Config configures a Structure.
type Config struct {
	// DefaultEndianness is used by DefineItem and AppendItem.
	DefaultEndianness Endianness

	// AcceptShortBuffer lets SetBuffer take a buffer shorter than the
	// defined length. The buffer is zero-extended either way.
	AcceptShortBuffer bool

	// IgnoreOverlap suppresses overlap warnings for every item.
	IgnoreOverlap bool

	// Logger receives overlap warnings. Nil means no logging.
	Logger log.Logger

	// Target and Packet name the structure in errors and log events.
	Target string
	Packet string
}

// NamedValue is one entry of ReadAll.
type NamedValue struct {
	Name  string
	Value any
}

// Structure binds a set of items to a byte buffer.
//
// A Structure is meant to be owned by one goroutine at a time. The internal
// lock only makes buffer replacement atomic with respect to
// ReadAllSynchronized.
type Structure struct {
	mu sync.RWMutex

	config Config
	logger log.Logger

	layout       *Layout
	layoutShared bool

	buffer     []byte
	placements map[*Item]placement
}

// New creates an empty structure with the given default endianness.
func New(defaultEndianness Endianness) *Structure {
	return NewWithConfig(Config{DefaultEndianness: defaultEndianness})
}

// NewWithConfig creates an empty structure.
func NewWithConfig(cfg Config) *Structure {
	return &Structure{
		config: cfg,
		logger: log.OrNoop(cfg.Logger),
		layout: newLayout(),
	}
}

// SetNames sets the target and packet names used in errors and log events.
func (s *Structure) SetNames(target, packet string) {
	s.config.Target = strings.ToUpper(target)
	s.config.Packet = strings.ToUpper(packet)
}

// TargetName returns the target name set by SetNames.
func (s *Structure) TargetName() string { return s.config.Target }

// PacketName returns the packet name set by SetNames.
func (s *Structure) PacketName() string { return s.config.Packet }

// SetLogger replaces the logger. Nil disables logging.
func (s *Structure) SetLogger(l log.Logger) {
	s.config.Logger = l
	s.logger = log.OrNoop(l)
}

// Logger returns the structure's logger, never nil.
func (s *Structure) Logger() log.Logger { return s.logger }

// DefaultEndianness returns the endianness used by DefineItem and AppendItem.
func (s *Structure) DefaultEndianness() Endianness { return s.config.DefaultEndianness }

// AcceptShortBuffer reports whether short buffers are accepted.
func (s *Structure) AcceptShortBuffer() bool { return s.config.AcceptShortBuffer }

// SetAcceptShortBuffer changes whether short buffers are accepted.
func (s *Structure) SetAcceptShortBuffer(accept bool) { s.config.AcceptShortBuffer = accept }

// IgnoreOverlap reports whether overlap warnings are suppressed.
func (s *Structure) IgnoreOverlap() bool { return s.config.IgnoreOverlap }

// SetIgnoreOverlap changes whether overlap warnings are suppressed.
func (s *Structure) SetIgnoreOverlap(ignore bool) { s.config.IgnoreOverlap = ignore }

func (s *Structure) qualifiedName() string {
	return strings.TrimSpace(s.config.Target + " " + s.config.Packet)
}

// ownLayout makes the layout private to this structure before a mutation.
func (s *Structure) ownLayout() {
	if s.layoutShared {
		s.layout = s.layout.copy()
		s.layoutShared = false
	}
}

// DefinedLength returns the statically defined length in bytes.
func (s *Structure) DefinedLength() int { return s.layout.definedLength() }

// DefinedLengthBits returns the statically defined length in bits.
func (s *Structure) DefinedLengthBits() int { return s.layout.definedBits() }

// FixedSize reports whether every item has a static size and offset.
func (s *Structure) FixedSize() bool { return s.layout.fixedSize }

// Defined reports whether any item is defined.
func (s *Structure) Defined() bool { return len(s.layout.items) > 0 }

// Define adds item, replacing any item of the same name. It returns the
// overlap warnings the new item caused.
func (s *Structure) Define(item *Item) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ownLayout()
	s.layout.insert(item)
	s.growToDefined()
	s.relayout()
	return s.checkNeighbours(item)
}

// DefineItem creates and defines a scalar item using the default endianness.
func (s *Structure) DefineItem(name string, bitOffset, bitSize int, dataType DataType) (*Item, []string, error) {
	it, err := NewItem(name, bitOffset, bitSize, dataType, s.config.DefaultEndianness, OverflowError)
	if err != nil {
		return nil, nil, err
	}
	return it, s.Define(it), nil
}

// DefineArrayItem creates and defines an array item using the default endianness.
func (s *Structure) DefineArrayItem(name string, bitOffset, bitSize, arraySize int, dataType DataType) (*Item, []string, error) {
	it, err := NewArrayItem(name, bitOffset, bitSize, arraySize, dataType, s.config.DefaultEndianness, OverflowError)
	if err != nil {
		return nil, nil, err
	}
	return it, s.Define(it), nil
}

// Append places item at the current defined length and defines it.
// Virtual items are placed at offset zero.
func (s *Structure) Append(item *Item) ([]string, error) {
	if !item.Virtual() {
		if err := item.SetBitOffset(s.layout.definedBits()); err != nil {
			return nil, err
		}
	}
	return s.Define(item), nil
}

// AppendItem creates a scalar item at the current defined length.
func (s *Structure) AppendItem(name string, bitSize int, dataType DataType) (*Item, []string, error) {
	off := s.layout.definedBits()
	if dataType.Virtual() {
		off = 0
	}
	return s.DefineItem(name, off, bitSize, dataType)
}

// AppendArrayItem creates an array item at the current defined length.
func (s *Structure) AppendArrayItem(name string, bitSize, arraySize int, dataType DataType) (*Item, []string, error) {
	return s.DefineArrayItem(name, s.layout.definedBits(), bitSize, arraySize, dataType)
}

// Item looks up an item by name, case-insensitively.
func (s *Structure) Item(name string) (*Item, error) {
	it, ok := s.layout.items[strings.ToUpper(name)]
	if !ok {
		return nil, &UnknownItemError{Name: s.qualifiedName(), Item: strings.ToUpper(name)}
	}
	return it, nil
}

// HasItem reports whether name is defined.
func (s *Structure) HasItem(name string) bool {
	_, ok := s.layout.items[strings.ToUpper(name)]
	return ok
}

// Items returns the items keyed by name.
func (s *Structure) Items() map[string]*Item {
	out := make(map[string]*Item, len(s.layout.items))
	for k, v := range s.layout.items {
		out[k] = v
	}
	return out
}

// SortedItems returns the items in buffer order.
func (s *Structure) SortedItems() []*Item {
	return slices.Clone(s.layout.sorted)
}

// Delete removes an item. Other items keep their offsets.
func (s *Structure) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.layout.items[strings.ToUpper(name)]
	if !ok {
		return &UnknownItemError{Name: s.qualifiedName(), Item: strings.ToUpper(name)}
	}
	s.ownLayout()
	s.layout.remove(it)
	s.relayout()
	return nil
}

// Rename changes an item's name. The item keeps its position.
func (s *Structure) Rename(name, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.layout.items[strings.ToUpper(name)]
	if !ok {
		return &UnknownItemError{Name: s.qualifiedName(), Item: strings.ToUpper(name)}
	}
	renamed := it.duplicate()
	if err := renamed.SetName(newName); err != nil {
		return err
	}
	s.ownLayout()
	l := s.layout
	delete(l.items, it.name)
	l.items[renamed.name] = renamed
	l.sorted[slices.Index(l.sorted, it)] = renamed
	if _, ok := l.controllers[it.name]; ok {
		delete(l.controllers, it.name)
		l.controllers[renamed.name] = struct{}{}
	}
	if p, ok := s.placements[it]; ok {
		delete(s.placements, it)
		s.placements[renamed] = p
	}
	return nil
}

// Length returns the current buffer length in bytes.
func (s *Structure) Length() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buffer)
}

// Buffer returns a copy of the buffer, allocating it if needed.
func (s *Structure) Buffer() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allocate()
	return slices.Clone(s.buffer)
}

// BufferNoCopy returns the buffer itself. Callers must not modify it.
func (s *Structure) BufferNoCopy() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allocate()
	return s.buffer
}

// SetBuffer replaces the buffer with a copy of buf.
//
// A buffer shorter than the defined length is zero-extended; unless short
// buffers are accepted that is also reported as a *BufferLengthError. A
// fixed size structure rejects longer buffers, keeping them as given.
func (s *Structure) SetBuffer(buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setBuffer(buf)
}

func (s *Structure) setBuffer(buf []byte) error {
	s.buffer = slices.Clone(buf)
	if s.buffer == nil {
		s.buffer = []byte{}
	}
	defined := s.layout.definedLength()
	var err error
	switch {
	case len(s.buffer) < defined:
		actual := len(s.buffer)
		s.buffer = append(s.buffer, make([]byte, defined-actual)...)
		if !s.config.AcceptShortBuffer {
			err = &BufferLengthError{Name: s.qualifiedName(), Expected: defined, Actual: actual}
		}
	case len(s.buffer) > defined && s.layout.fixedSize && defined != 0:
		err = &BufferLengthError{Name: s.qualifiedName(), Expected: defined, Actual: len(s.buffer)}
	}
	s.relayout()
	return err
}

// Resize sets the buffer length to n bytes, truncating or zero-extending.
func (s *Structure) Resize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allocate()
	if n < len(s.buffer) {
		s.buffer = s.buffer[:n:n]
	} else {
		s.buffer = append(s.buffer, make([]byte, n-len(s.buffer))...)
	}
	s.relayout()
}

func (s *Structure) allocate() {
	if s.buffer == nil {
		s.buffer = make([]byte, s.layout.definedLength())
		s.relayout()
	}
}

// growToDefined zero-extends an existing buffer to the defined length.
func (s *Structure) growToDefined() {
	if s.buffer != nil && len(s.buffer) < s.layout.definedLength() {
		s.buffer = append(s.buffer, make([]byte, s.layout.definedLength()-len(s.buffer))...)
	}
}

// Clone returns a structure sharing this one's items with its own copy of
// the buffer. Defining or deleting items on either side afterwards does not
// affect the other.
func (s *Structure) Clone() *Structure {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layoutShared = true
	c := &Structure{
		config:       s.config,
		logger:       s.logger,
		layout:       s.layout,
		layoutShared: true,
		buffer:       slices.Clone(s.buffer),
	}
	if s.placements != nil {
		c.placements = make(map[*Item]placement, len(s.placements))
		for k, v := range s.placements {
			c.placements[k] = v
		}
	}
	return c
}

// DeepCopy returns a structure with copies of every item and the buffer.
func (s *Structure) DeepCopy() *Structure {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := &Structure{
		config: s.config,
		logger: s.logger,
		layout: newLayout(),
		buffer: slices.Clone(s.buffer),
	}
	mapping := make(map[*Item]*Item, len(s.layout.sorted))
	for _, it := range s.layout.sorted {
		mapping[it] = it.duplicate()
	}
	for _, it := range s.layout.sorted {
		d := mapping[it]
		if it.Parent != nil {
			if p, ok := s.layout.items[it.Parent.name]; ok && p == it.Parent {
				d.Parent = mapping[p]
			}
		}
		c.layout.insert(d)
	}
	c.layout.posBits = s.layout.posBits
	c.layout.negBits = s.layout.negBits
	if c.buffer != nil {
		c.relayout()
	}
	return c
}
