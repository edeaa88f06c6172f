package catalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/openground/records/pkg/packet"
	"github.com/openground/records/pkg/structure"
)

// idSlot is the position and type of one ID item.
type idSlot struct {
	bitOffset  int
	bitSize    int
	arraySize  int
	array      bool
	dataType   structure.DataType
	endianness structure.Endianness
}

func slotsOf(p *packet.Packet) []idSlot {
	ids := p.IDItems()
	slots := make([]idSlot, len(ids))
	for i, it := range ids {
		slots[i] = idSlot{
			bitOffset:  it.BitOffset(),
			bitSize:    it.BitSize(),
			arraySize:  it.ArraySize(),
			array:      it.IsArray(),
			dataType:   it.DataType(),
			endianness: it.Endianness(),
		}
	}
	return slots
}

// idIndex identifies buffers for one target.
type idIndex struct {
	unique bool

	// reader is any packet of the target with ID items; in unique ID mode
	// it reads the ID values of every buffer.
	reader *packet.Packet
	byKey  map[string]*packet.Packet

	// scan holds the packets with ID items in insertion order.
	scan     []*packet.Packet
	catchall *packet.Packet
}

func buildIndex(packets []*packet.Packet) *idIndex {
	idx := &idIndex{unique: true}
	var slots []idSlot
	for _, p := range packets {
		if p.Virtual {
			continue
		}
		s := slotsOf(p)
		if len(s) == 0 {
			if idx.catchall == nil {
				idx.catchall = p
			}
			continue
		}
		if idx.reader == nil {
			idx.reader = p
			slots = s
		} else if !slices.Equal(slots, s) {
			idx.unique = false
		}
		idx.scan = append(idx.scan, p)
	}
	if idx.reader == nil {
		idx.unique = false
	}
	if idx.unique {
		idx.byKey = make(map[string]*packet.Packet, len(idx.scan))
		for _, p := range idx.scan {
			key := idKey(p.IDValues())
			if _, ok := idx.byKey[key]; !ok {
				idx.byKey[key] = p
			}
		}
	}
	return idx
}

func (idx *idIndex) match(buf []byte) *packet.Packet {
	if idx.unique {
		if p, ok := idx.byKey[idKey(idx.reader.ReadIDValues(buf))]; ok {
			return p
		}
		return idx.catchall
	}
	for _, p := range idx.scan {
		if p.Identify(buf) {
			return p
		}
	}
	return idx.catchall
}

// idKey renders a tuple of ID values as a map key. Values come from
// structure.Normalize or a RAW read, so equal values have equal types.
func idKey(values []any) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(0)
		}
		fmt.Fprintf(&b, "%T:%v", v, v)
	}
	return b.String()
}
