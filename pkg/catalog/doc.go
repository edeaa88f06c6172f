// Package catalog holds the command and telemetry packet definitions of
// every target and recognizes raw buffers as packets.
//
// # Identification
//
// Each target has an ID index, built on first use and rebuilt after Add,
// Remove or Invalidate. When every non-virtual packet of a target places
// its ID items at the same offsets with the same sizes and types, the
// target is in unique ID mode: the ID bits of a buffer are read once and
// the packet is found by its tuple of ID values. Otherwise each packet's
// ID items are tested in turn. In both modes a non-virtual packet without
// ID items is the CATCHALL for its target and matches when nothing else
// does.
//
// Identify returns a clone bound to a copy of the buffer. A buffer whose
// length differs from the packet's defined length is logged as a
// CategoryLength event and decoded as far as it goes, never rejected.
//
// # Commands
//
// BuildCmd starts from the packet's defaults, writes the given parameters
// with optional range and state checks, and reports whether the result is
// hazardous. Format renders a built command as cmd("TARGET PACKET with ...").
package catalog
