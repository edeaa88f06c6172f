// Package packet adds command and telemetry semantics to a structure: ID
// items used for identification, read and write conversions, states,
// formatting, limits monitoring and hazard metadata.
//
// A Packet embeds *structure.Structure, so RAW access (Read, Write,
// ReadAll, SetBuffer) is the structure's. The value-typed accessors
// ReadValue and WriteValue layer conversions, states and formatting on top:
//
//	RAW         the bits as stored
//	CONVERTED   after the read conversion, with states substituted
//	FORMATTED   CONVERTED rendered with the item's format string
//	WITH_UNITS  FORMATTED followed by the item's units
//
// Clone shares item definitions and metadata with the original and copies
// the buffer. DeepCopy copies everything, including limits state.
package packet
