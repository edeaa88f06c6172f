package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/openground/records/pkg/log"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// RunView prints the events of the capture at path that match filter.
func RunView(path string, filter log.Filter, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	reader := log.NewFilteredReader(f, filter)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp LEVEL CATEGORY TARGET PACKET
	ts := event.Timestamp.UTC().Format(timestampLayout)
	fmt.Fprintf(w, "%s %-5s %-8s %s\n", ts, event.Level, event.Category, packetName(event))

	if event.Message != "" {
		fmt.Fprintf(w, "  %s\n", event.Message)
	}

	switch {
	case event.Length != nil:
		fmt.Fprintf(w, "  Expected: %d bytes  Actual: %d bytes\n", event.Length.Expected, event.Length.Actual)
	case event.Overlap != nil:
		fmt.Fprintf(w, "  Bit offset: %d  Items: %s, %s\n", event.Overlap.BitOffset, event.Overlap.Previous, event.Overlap.Item)
	case event.Limits != nil:
		formatLimitsDetails(w, event.Limits)
	}

	fmt.Fprintln(w) // Blank line between events
}

func formatLimitsDetails(w io.Writer, l *log.LimitsEvent) {
	fmt.Fprintf(w, "  Item: %s", l.Item)
	if l.Value != "" {
		fmt.Fprintf(w, " = %s", l.Value)
	}
	fmt.Fprintln(w)
	if l.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", l.OldState, l.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", l.NewState)
	}
}

func packetName(event log.Event) string {
	switch {
	case event.Target != "" && event.Packet != "":
		return event.Target + " " + event.Packet
	case event.Target != "":
		return event.Target
	default:
		return "-"
	}
}
