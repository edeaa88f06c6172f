package log

import (
	"io"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// StreamLogger writes events to an io.Writer in CBOR format.
// It is safe for concurrent use from multiple goroutines.
type StreamLogger struct {
	w       io.Writer
	encoder *cbor.Encoder
	mu      sync.Mutex
	closed  bool
}

// NewStreamLogger creates a StreamLogger that encodes events to w.
func NewStreamLogger(w io.Writer) *StreamLogger {
	return &StreamLogger{
		w:       w,
		encoder: NewEncoder(w),
	}
}

// Log writes an event to the stream.
// This method is safe for concurrent use.
func (l *StreamLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	// Ignore encoding errors - logging should not disrupt decoding
	_ = l.encoder.Encode(event)
}

// Close stops the logger and closes the underlying writer if it is an io.Closer.
// It is safe to call Close multiple times.
// After Close is called, subsequent Log calls are silently ignored.
func (l *StreamLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true
	if c, ok := l.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Compile-time interface satisfaction check.
var _ Logger = (*StreamLogger)(nil)
