// Package log provides structured event logging for the record layer.
//
// The packet codec never fails on conditions that are tolerable during
// telemetry ingestion (a buffer that is shorter or longer than its
// definition, two items sharing bits). Those conditions are reported as
// Events through a Logger supplied by the application instead.
//
// This is separate from operational logging (slog). Events are
// machine-readable and can be captured to a CBOR stream for later analysis.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.Logger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to a size-rotated capture file
//	cfg.Logger = log.NewFileLogger(log.FileConfig{Path: "/var/log/records/events.rlog"})
//
//	// Both: use MultiLogger
//	cfg.Logger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger(log.FileConfig{Path: "/var/log/records/events.rlog"}),
//	)
//
// # Event Types
//
//   - Length: a buffer length did not match the packet definition (LengthEvent)
//   - Overlap: two items occupy the same bits (OverlapEvent)
//   - Limits: an item changed limits state (LimitsEvent)
//
// # Stream Format
//
// Captures are a concatenation of CBOR-encoded Events with integer keys.
// Reader iterates a capture with an optional Filter.
package log
