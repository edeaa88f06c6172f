package log

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a record-layer log event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// ID uniquely identifies the event (UUID).
	ID string `cbor:"1,keyasint"`

	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"2,keyasint"`

	// Level is the severity of the event.
	Level Level `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Target and Packet name the packet definition involved, if any.
	Target string `cbor:"5,keyasint,omitempty"`
	Packet string `cbor:"6,keyasint,omitempty"`

	// Message is a human readable summary.
	Message string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (at most one of these will be set).
	Length  *LengthEvent  `cbor:"10,keyasint,omitempty"`
	Overlap *OverlapEvent `cbor:"11,keyasint,omitempty"`
	Limits  *LimitsEvent  `cbor:"12,keyasint,omitempty"`
}

// NewEvent returns an event stamped with a fresh ID and the current time.
func NewEvent(level Level, category Category, target, packet, message string) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Level:     level,
		Category:  category,
		Target:    target,
		Packet:    packet,
		Message:   message,
	}
}

// Level indicates event severity.
type Level uint8

const (
	LevelDebug Level = 0
	LevelInfo  Level = 1
	LevelWarn  Level = 2
	LevelError Level = 3
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryGeneral is a free-form message.
	CategoryGeneral Category = 0
	// CategoryLength indicates a buffer whose length differs from the definition.
	CategoryLength Category = 1
	// CategoryOverlap indicates two items sharing bits.
	CategoryOverlap Category = 2
	// CategoryLimits indicates an item changing limits state.
	CategoryLimits Category = 3
	// CategoryIdentify indicates an identification result.
	CategoryIdentify Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryGeneral:
		return "GENERAL"
	case CategoryLength:
		return "LENGTH"
	case CategoryOverlap:
		return "OVERLAP"
	case CategoryLimits:
		return "LIMITS"
	case CategoryIdentify:
		return "IDENTIFY"
	default:
		return "UNKNOWN"
	}
}

// LengthEvent captures a buffer length mismatch.
type LengthEvent struct {
	// Expected is the defined length in bytes.
	Expected int `cbor:"1,keyasint"`

	// Actual is the received buffer length in bytes.
	Actual int `cbor:"2,keyasint"`
}

// OverlapEvent captures two items whose bit ranges intersect.
type OverlapEvent struct {
	BitOffset int    `cbor:"1,keyasint"`
	Item      string `cbor:"2,keyasint"`
	Previous  string `cbor:"3,keyasint"`
}

// LimitsEvent captures an item limits state transition.
type LimitsEvent struct {
	Item     string `cbor:"1,keyasint"`
	OldState string `cbor:"2,keyasint,omitempty"`
	NewState string `cbor:"3,keyasint"`

	// Value is the converted value that caused the transition, rendered as text.
	Value string `cbor:"4,keyasint,omitempty"`
}
