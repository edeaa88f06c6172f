package packet

import (
	"fmt"

	"github.com/openground/records/pkg/structure"
)

// SetIDValue marks the named item as an ID item with value v, converted to
// the item's RAW type. A nil v clears it.
func (p *Packet) SetIDValue(name string, v any) error {
	it, err := p.Item(name)
	if err != nil {
		return err
	}
	if v == nil {
		it.idValue = nil
		return nil
	}
	if it.Virtual() {
		return fmt.Errorf("%w: %s %s: ID item cannot be %s", structure.ErrInvalidValue, p.PacketName(), it.Name(), it.DataType())
	}
	nv, err := structure.Normalize(it.DataType(), it.IsArray(), v)
	if err != nil {
		return fmt.Errorf("%s %s ID value: %w", p.PacketName(), it.Name(), err)
	}
	it.idValue = nv
	return nil
}

// IDItems returns the ID items in buffer order.
func (p *Packet) IDItems() []*Item {
	var ids []*Item
	for _, it := range p.SortedItems() {
		if it.idValue != nil {
			ids = append(ids, it)
		}
	}
	return ids
}

// Identify reports whether buf holds this packet: every ID item read from
// buf equals its ID value. A packet without ID items matches any buffer;
// a virtual packet matches none. The buffer length is not checked, so a
// truncated or padded buffer still matches when its ID bits are present.
func (p *Packet) Identify(buf []byte) bool {
	if buf == nil || p.Virtual {
		return false
	}
	for _, it := range p.IDItems() {
		v, err := p.ReadItemFrom(it.Item, buf)
		if err != nil || !structure.Equal(v, it.idValue) {
			return false
		}
	}
	return true
}

// ReadIDValues reads each ID item from buf, in buffer order. Items that
// cannot be read give nil.
func (p *Packet) ReadIDValues(buf []byte) []any {
	if buf == nil {
		return nil
	}
	ids := p.IDItems()
	values := make([]any, len(ids))
	for i, it := range ids {
		if v, err := p.ReadItemFrom(it.Item, buf); err == nil {
			values[i] = v
		}
	}
	return values
}

// IDValues returns the ID values of the ID items, in buffer order.
func (p *Packet) IDValues() []any {
	ids := p.IDItems()
	values := make([]any, len(ids))
	for i, it := range ids {
		values[i] = it.idValue
	}
	return values
}

// EvaluateHazard reports whether writing the packet is hazardous: the
// packet itself is, or one of the named items (every item when none are
// named) currently holds a hazardous state.
func (p *Packet) EvaluateHazard(names ...string) (bool, string, error) {
	if p.Hazardous {
		return true, p.HazardousDescription, nil
	}
	items := p.SortedItems()
	if len(names) > 0 {
		items = items[:0:0]
		for _, n := range names {
			it, err := p.Item(n)
			if err != nil {
				return false, "", err
			}
			items = append(items, it)
		}
	}
	for _, it := range items {
		if len(it.Hazardous) == 0 {
			continue
		}
		v, err := p.ReadItemValue(it, Converted)
		if err != nil {
			return false, "", err
		}
		if s, ok := v.(string); ok {
			if desc, ok := it.Hazardous[s]; ok {
				return true, desc, nil
			}
		}
	}
	return false, "", nil
}
