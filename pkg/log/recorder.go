package log

import "sync"

// Recorder keeps every event in memory.
// Intended for tests and for callers that want to inspect warnings after a call.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Log appends the event.
func (r *Recorder) Log(event Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByCategory returns the recorded events of one category.
func (r *Recorder) ByCategory(c Category) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Category == c {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// Compile-time interface satisfaction check.
var _ Logger = (*Recorder)(nil)
