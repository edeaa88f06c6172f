package commands

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/openground/records/pkg/log"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.rlog")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("failed to create capture: %v", err)
	}

	logger := log.NewFileLogger(log.FileConfig{Path: path})
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}

	return path
}

func readTestLogFile(t *testing.T, path string) []log.Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open capture: %v", err)
	}
	defer f.Close()

	var events []log.Event
	reader := log.NewReader(f)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("failed to read event: %v", err)
		}
		events = append(events, event)
	}
}
