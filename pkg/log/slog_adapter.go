package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes events to an slog.Logger.
// Useful for development when you want to see codec warnings in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at the level matching event.Level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("event_id", event.ID),
		slog.String("category", event.Category.String()),
	}

	if event.Target != "" {
		attrs = append(attrs, slog.String("target", event.Target))
	}
	if event.Packet != "" {
		attrs = append(attrs, slog.String("packet", event.Packet))
	}

	// Add type-specific attributes
	switch {
	case event.Length != nil:
		attrs = append(attrs,
			slog.Int("expected_len", event.Length.Expected),
			slog.Int("actual_len", event.Length.Actual),
		)
	case event.Overlap != nil:
		attrs = append(attrs,
			slog.Int("bit_offset", event.Overlap.BitOffset),
			slog.String("item", event.Overlap.Item),
			slog.String("previous", event.Overlap.Previous),
		)
	case event.Limits != nil:
		attrs = append(attrs,
			slog.String("item", event.Limits.Item),
			slog.String("old_state", event.Limits.OldState),
			slog.String("new_state", event.Limits.NewState),
		)
		if event.Limits.Value != "" {
			attrs = append(attrs, slog.String("value", event.Limits.Value))
		}
	}

	msg := event.Message
	if msg == "" {
		msg = "records"
	}
	a.logger.LogAttrs(context.Background(), slogLevel(event.Level), msg, attrs...)
}

func slogLevel(l Level) slog.Level {
	switch l {
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
