package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/openground/records/pkg/log"
)

// RunExport exports the capture to the specified format.
func RunExport(path, format, output string) error {
	if format != "jsonl" && format != "csv" {
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()
	reader := log.NewReader(f)

	// Determine output writer
	var w io.Writer = os.Stdout
	if output != "" {
		out, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer out.Close()
		w = out
	}

	if format == "csv" {
		return exportCSV(reader, w)
	}
	return exportJSONL(reader, w)
}

// jsonEvent is the JSONL form of an event with names instead of codes.
type jsonEvent struct {
	ID        string            `json:"id"`
	Timestamp string            `json:"timestamp"`
	Level     string            `json:"level"`
	Category  string            `json:"category"`
	Target    string            `json:"target,omitempty"`
	Packet    string            `json:"packet,omitempty"`
	Message   string            `json:"message,omitempty"`
	Length    *log.LengthEvent  `json:"length,omitempty"`
	Overlap   *log.OverlapEvent `json:"overlap,omitempty"`
	Limits    *log.LimitsEvent  `json:"limits,omitempty"`
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		je := jsonEvent{
			ID:        event.ID,
			Timestamp: event.Timestamp.UTC().Format(timestampLayout),
			Level:     event.Level.String(),
			Category:  event.Category.String(),
			Target:    event.Target,
			Packet:    event.Packet,
			Message:   event.Message,
			Length:    event.Length,
			Overlap:   event.Overlap,
			Limits:    event.Limits,
		}
		if err := encoder.Encode(je); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "level", "category", "target", "packet", "item", "old_state", "new_state", "value", "message"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		var item, oldState, newState, value string
		switch {
		case event.Limits != nil:
			item, oldState, newState, value = event.Limits.Item, event.Limits.OldState, event.Limits.NewState, event.Limits.Value
		case event.Overlap != nil:
			item = event.Overlap.Item
		}

		row := []string{
			event.Timestamp.UTC().Format(timestampLayout),
			event.Level.String(),
			event.Category.String(),
			event.Target,
			event.Packet,
			item,
			oldState,
			newState,
			value,
			event.Message,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
}
