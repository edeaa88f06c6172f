package log

import (
	"errors"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter specifies criteria for filtering log events.
// Empty/nil fields match all events for that criterion.
type Filter struct {
	// MinLevel drops events below this level.
	MinLevel Level

	// Category filters by event category.
	Category *Category

	// Target filters by exact target name.
	Target string

	// Packet filters by exact packet name.
	Packet string

	// TimeStart filters events at or after this time.
	TimeStart *time.Time

	// TimeEnd filters events before this time.
	TimeEnd *time.Time
}

// matches returns true if the event matches all filter criteria.
func (f *Filter) matches(event Event) bool {
	if event.Level < f.MinLevel {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.Target != "" && event.Target != f.Target {
		return false
	}
	if f.Packet != "" && event.Packet != f.Packet {
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	return true
}

// Reader reads events from a CBOR-encoded capture.
// It provides an iterator interface for streaming large captures.
type Reader struct {
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader creates a Reader that reads all events from r.
func NewReader(r io.Reader) *Reader {
	return NewFilteredReader(r, Filter{})
}

// NewFilteredReader creates a Reader that reads events matching the filter.
func NewFilteredReader(r io.Reader, filter Filter) *Reader {
	return &Reader{
		decoder: NewDecoder(r),
		filter:  filter,
	}
}

// Next returns the next event that matches the filter.
// Returns io.EOF when no more events are available.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}

		if r.filter.matches(event) {
			return event, nil
		}
	}
}

// ReadAll drains the reader and returns every matching event.
func (r *Reader) ReadAll() ([]Event, error) {
	var events []Event
	for {
		event, err := r.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}
}
