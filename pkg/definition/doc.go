// Package definition reads and writes packet definitions as documents.
//
// A Document lists the command and telemetry packets of one target with
// their items, states, limits and conversions. Documents are decoded from
// YAML or CBOR and built into *packet.Packet values, or produced from
// existing packets with FromPackets for export:
//
//	doc, err := definition.ParseYAML(data)
//	if err != nil {
//		return err
//	}
//	cmds, tlm := catalog.NewCommands(), catalog.NewTelemetry()
//	if err := doc.Register(cmds, tlm, definition.Options{}); err != nil {
//		return err
//	}
//
// Items without a bit_offset are appended after the previous item. Values
// such as ids, defaults and state values are converted to the item's type
// when used, so documents may write them in any numeric form.
package definition
