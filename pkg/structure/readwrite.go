package structure

import (
	"fmt"
	"slices"
	"strings"
)

// ReadItem reads the RAW value of it from the buffer. DERIVED and other
// virtual items read as nil.
func (s *Structure) ReadItem(it *Item) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allocate()
	return readValue(s.buffer, it, s.placementOf(it))
}

// ReadItemFrom reads it from buf instead of the structure's own buffer,
// resolving variable sizes against buf.
func (s *Structure) ReadItemFrom(it *Item, buf []byte) (any, error) {
	tmp := &Structure{config: s.config, logger: s.logger, layout: s.layout, buffer: buf}
	tmp.relayout()
	return readValue(buf, it, tmp.placementOf(it))
}

// WriteItem writes a RAW value for it into the buffer.
func (s *Structure) WriteItem(it *Item, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allocate()
	return s.writeItem(it, v)
}

func (s *Structure) writeItem(it *Item, v any) error {
	if it.Virtual() {
		return nil
	}
	if it.variable != nil && it.bitOffset >= 0 && !s.layout.fixedSize {
		return s.writeVariable(it, v)
	}
	before := len(s.buffer)
	buf, err := writeValue(s.buffer, it, s.placementOf(it), v)
	s.buffer = buf
	if err != nil {
		return err
	}
	if _, ok := s.layout.controllers[it.name]; ok || len(buf) != before {
		s.relayout()
	}
	return nil
}

// Read reads the RAW value of the named item.
func (s *Structure) Read(name string) (any, error) {
	it, err := s.Item(name)
	if err != nil {
		return nil, err
	}
	return s.ReadItem(it)
}

// Write writes a RAW value to the named item.
func (s *Structure) Write(name string, v any) error {
	it, err := s.Item(name)
	if err != nil {
		return err
	}
	return s.WriteItem(it, v)
}

// ReadAll reads every item in buffer order.
func (s *Structure) ReadAll() ([]NamedValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allocate()
	return readAll(s.layout.sorted, s.buffer, s.placementOf)
}

// ReadAllSynchronized copies the buffer under the lock and reads every item
// from the copy, so the result is consistent even if another goroutine
// replaces the buffer meanwhile.
func (s *Structure) ReadAllSynchronized() ([]NamedValue, error) {
	s.mu.RLock()
	items := slices.Clone(s.layout.sorted)
	buf := slices.Clone(s.buffer)
	var placements map[*Item]placement
	if s.placements != nil {
		placements = make(map[*Item]placement, len(s.placements))
		for k, v := range s.placements {
			placements[k] = v
		}
	}
	definedLen := s.layout.definedLength()
	s.mu.RUnlock()

	if buf == nil {
		buf = make([]byte, definedLen)
	}
	lookup := func(it *Item) placement {
		if p, ok := placements[it]; ok {
			return p
		}
		return definedPlacement(it)
	}
	return readAll(items, buf, lookup)
}

func readAll(items []*Item, buf []byte, lookup func(*Item) placement) ([]NamedValue, error) {
	out := make([]NamedValue, 0, len(items))
	for _, it := range items {
		v, err := readValue(buf, it, lookup(it))
		if err != nil {
			return out, fmt.Errorf("%s: %w", it.name, err)
		}
		out = append(out, NamedValue{Name: it.name, Value: v})
	}
	return out, nil
}

// Get reads the named item and asserts its RAW value to T.
func Get[T any](s *Structure, name string) (T, error) {
	var zero T
	v, err := s.Read(name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T, not %T", ErrInvalidValue, strings.ToUpper(name), v, zero)
	}
	return t, nil
}

// Set writes a RAW value to the named item.
func Set[T any](s *Structure, name string, v T) error {
	return s.Write(name, v)
}

// Resolved is the offset and size an item has in the current buffer.
type Resolved struct {
	BitOffset int
	BitSize   int
	ArraySize int
}

// Resolve returns where it currently lives in the buffer. Negative offsets
// are returned as defined.
func (s *Structure) Resolve(it *Item) Resolved {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.placementOf(it)
	return Resolved{BitOffset: p.bitOffset, BitSize: p.bitSize, ArraySize: p.arraySize}
}
