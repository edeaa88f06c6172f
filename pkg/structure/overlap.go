package structure

import (
	"fmt"
	"slices"

	"github.com/openground/records/pkg/log"
)

// NextBitOffset returns the offset the following item would have if items
// were packed after it. Fill-the-rest items return their non-positive size,
// meaning "relative to the end of the buffer". Variable sized items count
// with their minimum size.
func NextBitOffset(it *Item) int {
	if it.variable != nil {
		return it.bitOffset + it.minimumBits()
	}
	if it.array {
		if it.arraySize > 0 {
			return it.bitOffset + it.arraySize
		}
		return it.arraySize
	}
	if it.bitOffset > 0 && it.LittleEndianBitField() {
		// The offset names the most significant bit, so the field ends at
		// the byte boundary after it.
		remaining := 8 - it.bitOffset%8
		if it.bitSize > remaining {
			return it.bitOffset + remaining
		}
	}
	if it.bitSize > 0 {
		return it.bitOffset + it.bitSize
	}
	return it.bitSize
}

func overlaps(prev, it *Item) bool {
	if prev == nil || it.Virtual() || prev.Virtual() || it.Overlap {
		return false
	}
	expected := NextBitOffset(prev)
	if it.bitOffset < 0 && expected > 0 {
		return false
	}
	return it.bitOffset < expected
}

func (s *Structure) overlapWarning(prev, it *Item) string {
	msg := fmt.Sprintf("Bit definition overlap at bit offset %d for packet %s %s items %s and %s",
		it.bitOffset, s.config.Target, s.config.Packet, it.name, prev.name)
	ev := log.NewEvent(log.LevelWarn, log.CategoryOverlap, s.config.Target, s.config.Packet, msg)
	ev.Overlap = &log.OverlapEvent{BitOffset: it.bitOffset, Item: it.name, Previous: prev.name}
	s.logger.Log(ev)
	return msg
}

// checkNeighbours reports overlaps between it and the items on either side.
func (s *Structure) checkNeighbours(it *Item) []string {
	if s.config.IgnoreOverlap {
		return nil
	}
	sorted := s.layout.sorted
	i := slices.Index(sorted, it)
	if i < 0 {
		return nil
	}
	var warnings []string
	if i > 0 && overlaps(sorted[i-1], it) {
		warnings = append(warnings, s.overlapWarning(sorted[i-1], it))
	}
	if i+1 < len(sorted) && overlaps(it, sorted[i+1]) {
		warnings = append(warnings, s.overlapWarning(it, sorted[i+1]))
	}
	return warnings
}

// CheckBitOffsets scans every item and returns a warning for each item that
// starts before the previous one ends.
func (s *Structure) CheckBitOffsets() []string {
	if s.config.IgnoreOverlap {
		return nil
	}
	var warnings []string
	var prev *Item
	for _, it := range s.layout.sorted {
		if overlaps(prev, it) {
			warnings = append(warnings, s.overlapWarning(prev, it))
		}
		if !it.Virtual() {
			prev = it
		}
	}
	return warnings
}

// Packed reports whether the items leave no gaps and do not overlap.
func (s *Structure) Packed() bool {
	var prev *Item
	for _, it := range s.layout.sorted {
		if it.Virtual() {
			continue
		}
		if prev != nil && it.bitOffset != NextBitOffset(prev) {
			return false
		}
		prev = it
	}
	return true
}
