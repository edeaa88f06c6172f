package structure

import (
	"fmt"
	"slices"
)

// quicBitSizes are the value sizes of a QUIC variable length integer for
// length codes 0 through 3.
var quicBitSizes = [4]int{6, 14, 30, 62}

// Layout is the item set of a Structure: the name index, the sorted order
// and the statically defined length. Clones share a Layout until one of
// them redefines an item.
type Layout struct {
	items       map[string]*Item
	sorted      []*Item
	posBits     int
	negBits     int
	fixedSize   bool
	controllers map[string]struct{}
}

func newLayout() *Layout {
	return &Layout{
		items:       make(map[string]*Item),
		fixedSize:   true,
		controllers: make(map[string]struct{}),
	}
}

func (l *Layout) copy() *Layout {
	c := &Layout{
		items:       make(map[string]*Item, len(l.items)),
		sorted:      slices.Clone(l.sorted),
		posBits:     l.posBits,
		negBits:     l.negBits,
		fixedSize:   l.fixedSize,
		controllers: make(map[string]struct{}, len(l.controllers)),
	}
	for k, v := range l.items {
		c.items[k] = v
	}
	for k := range l.controllers {
		c.controllers[k] = struct{}{}
	}
	return c
}

func (l *Layout) definedBits() int { return l.posBits + l.negBits }

func (l *Layout) definedLength() int { return (l.definedBits() + 7) / 8 }

// insert adds or replaces it and updates the derived state.
func (l *Layout) insert(it *Item) {
	if old, ok := l.items[it.name]; ok {
		l.sorted = slices.DeleteFunc(l.sorted, func(x *Item) bool { return x == old })
	}
	pos, _ := slices.BinarySearchFunc(l.sorted, it, Compare)
	l.sorted = slices.Insert(l.sorted, pos, it)
	l.items[it.name] = it

	if !it.Virtual() && (it.bitSize <= 0 || (it.array && it.arraySize <= 0) || it.variable != nil) {
		l.fixedSize = false
	}
	if it.variable != nil {
		l.controllers[it.variable.LengthItemName] = struct{}{}
	}

	switch {
	case it.Virtual():
	case it.bitOffset < 0:
		l.negBits = max(l.negBits, -it.bitOffset)
	case it.variable != nil:
		l.posBits = max(l.posBits, it.bitOffset+it.minimumBits())
	case it.bitSize > 0 && it.array && it.arraySize >= 0:
		l.posBits = max(l.posBits, it.bitOffset+it.arraySize)
	case it.bitSize > 0 && !it.array:
		l.posBits = max(l.posBits, it.bitOffset+it.bitSize)
	default:
		l.posBits = max(l.posBits, it.bitOffset)
	}
}

// remove drops the named item. Defined lengths are not reduced.
func (l *Layout) remove(it *Item) {
	l.sorted = slices.DeleteFunc(l.sorted, func(x *Item) bool { return x == it })
	delete(l.items, it.name)
	l.controllers = make(map[string]struct{})
	for _, x := range l.sorted {
		if x.variable != nil {
			l.controllers[x.variable.LengthItemName] = struct{}{}
		}
	}
}

// placementOf returns the resolved placement for it in the current buffer.
func (s *Structure) placementOf(it *Item) placement {
	if p, ok := s.placements[it]; ok {
		return p
	}
	return definedPlacement(it)
}

// relayout resolves every item against the current buffer. Offsets shift
// by the growth of each variable sized item that precedes them.
func (s *Structure) relayout() {
	if s.layout.fixedSize {
		s.placements = nil
		return
	}
	placements := make(map[*Item]placement, len(s.layout.sorted))
	s.placements = placements
	adjustment := 0
	for _, it := range s.layout.sorted {
		if it.Virtual() {
			continue
		}
		p := definedPlacement(it)
		if it.bitOffset >= 0 {
			p.bitOffset = it.bitOffset + adjustment
			if it.variable != nil {
				bits := s.variableBits(it)
				if it.array {
					p.arraySize = bits
				} else {
					p.bitSize = bits
				}
				p.exact = true
				adjustment += bits - it.minimumBits()
			}
		}
		placements[it] = p
	}
}

// lengthValue reads the RAW value of the item controlling its size.
func (s *Structure) lengthValue(it *Item) (int64, error) {
	li, ok := s.layout.items[it.variable.LengthItemName]
	if !ok {
		return 0, &UnknownItemError{Name: s.qualifiedName(), Item: it.variable.LengthItemName}
	}
	v, err := readValue(s.buffer, li, s.placementOf(li))
	if err != nil {
		return 0, err
	}
	return ToInt64(v)
}

func (s *Structure) variableBits(it *Item) int {
	n, err := s.lengthValue(it)
	if err != nil {
		return it.minimumBits()
	}
	if it.dataType.Integer() && !it.array {
		if n >= 0 && n < int64(len(quicBitSizes)) {
			return quicBitSizes[n]
		}
		return quicBitSizes[3]
	}
	bits := int(n)*it.variable.LengthBitsPerCount + it.variable.LengthValueBitOffset
	return max(bits, 0)
}

// quicSize picks the smallest QUIC size holding v and returns its bit size
// and length code.
func quicSize(dt DataType, v any) (int, int, error) {
	b, err := toBigInt(v)
	if err != nil {
		return 0, 0, err
	}
	for code, bits := range quicBitSizes {
		lo, hi, _ := overflowRange(bits, dt)
		if b.Cmp(lo) >= 0 && b.Cmp(hi) <= 0 {
			return bits, code, nil
		}
	}
	return quicBitSizes[3], 3, nil
}

// writeVariable resizes the buffer region of a variable sized item to fit v,
// updates its length item and writes the value.
func (s *Structure) writeVariable(it *Item, v any) error {
	cur := s.placementOf(it)
	oldBits := cur.bitSize
	if it.array {
		oldBits = cur.arraySize
	}

	var newBits int
	var lengthValue any
	switch {
	case it.dataType.Integer() && !it.array:
		bits, code, err := quicSize(it.dataType, v)
		if err != nil {
			return err
		}
		newBits, lengthValue = bits, code
	case it.array:
		values, err := toSlice(v)
		if err != nil {
			return err
		}
		newBits = len(values) * it.bitSize
	default:
		data, err := toBytes(v)
		if err != nil {
			return err
		}
		newBits = len(data) * 8
	}
	if lengthValue == nil {
		vb := it.variable
		lengthValue = (newBits - vb.LengthValueBitOffset) / vb.LengthBitsPerCount
	}

	delta := newBits - oldBits
	if delta%8 != 0 {
		return fmt.Errorf("%w: %s size change of %d bits is not a whole number of bytes", ErrInvalidValue, it.name, delta)
	}
	li := s.layout.items[it.variable.LengthItemName]
	if li == nil {
		return &UnknownItemError{Name: s.qualifiedName(), Item: it.variable.LengthItemName}
	}
	buf, err := writeValue(s.buffer, li, s.placementOf(li), lengthValue)
	if err != nil {
		return err
	}

	// Resize at the first byte wholly inside the item so bits sharing a byte
	// with the item on either side stay with their owners.
	at := (cur.bitOffset + 7) / 8
	if at > len(buf) {
		return bufferError("write", len(buf), it.dataType, cur.bitOffset, newBits)
	}
	switch {
	case delta > 0:
		buf = splice(buf, at, 0, make([]byte, delta/8))
	case delta < 0:
		n := -delta / 8
		if at+n > len(buf) {
			return bufferError("write", len(buf), it.dataType, cur.bitOffset, oldBits)
		}
		buf = splice(buf, at, n, nil)
	}
	s.buffer = buf
	s.relayout()

	buf, err = writeValue(s.buffer, it, s.placementOf(it), v)
	s.buffer = buf
	return err
}
