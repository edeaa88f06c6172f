package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/openground/records/pkg/log"
)

func TestFilterByPacket(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Target: "INST", Packet: "HEALTH", Category: log.CategoryLimits},
		{Timestamp: ts, Target: "INST", Packet: "ADCS", Category: log.CategoryLimits},
		{Timestamp: ts, Target: "INST", Packet: "HEALTH", Category: log.CategoryLength},
		{Timestamp: ts, Target: "INST2", Packet: "HEALTH", Category: log.CategoryLength},
	}

	path := createTestLogFile(t, events)
	outPath := filepath.Join(t.TempDir(), "filtered.rlog")

	var out bytes.Buffer
	err := RunFilter(path, FilterOptions{
		Output: outPath,
		Target: "inst",
		Packet: "health",
	}, &out)
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	got := readTestLogFile(t, outPath)
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	for _, e := range got {
		if e.Target != "INST" || e.Packet != "HEALTH" {
			t.Errorf("expected INST HEALTH, got %s %s", e.Target, e.Packet)
		}
	}
	if !strings.Contains(out.String(), "Filtered 2 events") {
		t.Errorf("unexpected summary: %s", out.String())
	}
}

func TestFilterByTimeRange(t *testing.T) {
	base := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: base, Message: "before"},
		{Timestamp: base.Add(30 * time.Minute), Message: "inside"},
		{Timestamp: base.Add(time.Hour), Message: "at end"},
	}

	path := createTestLogFile(t, events)
	outPath := filepath.Join(t.TempDir(), "filtered.rlog")

	err := RunFilter(path, FilterOptions{
		Output:    outPath,
		TimeStart: "2026-01-28T10:15:00Z",
		TimeEnd:   "2026-01-28T11:00:00Z",
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	got := readTestLogFile(t, outPath)
	if len(got) != 1 || got[0].Message != "inside" {
		t.Errorf("expected only the event inside the range, got %+v", got)
	}
}

func TestFilterByLevelAndCategory(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Level: log.LevelDebug, Category: log.CategoryLimits},
		{Timestamp: ts, Level: log.LevelWarn, Category: log.CategoryLimits},
		{Timestamp: ts, Level: log.LevelError, Category: log.CategoryLimits},
		{Timestamp: ts, Level: log.LevelError, Category: log.CategoryOverlap},
	}

	path := createTestLogFile(t, events)
	outPath := filepath.Join(t.TempDir(), "filtered.rlog")

	err := RunFilter(path, FilterOptions{
		Output:   outPath,
		Level:    "warn",
		Category: "limits",
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	got := readTestLogFile(t, outPath)
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	for _, e := range got {
		if e.Level < log.LevelWarn || e.Category != log.CategoryLimits {
			t.Errorf("unexpected event %s %s", e.Level, e.Category)
		}
	}
}

func TestFilterRejectsBadOptions(t *testing.T) {
	path := createTestLogFile(t, nil)
	outPath := filepath.Join(t.TempDir(), "filtered.rlog")

	tests := []struct {
		name string
		opts FilterOptions
		want string
	}{
		{"level", FilterOptions{Output: outPath, Level: "loud"}, "invalid level"},
		{"category", FilterOptions{Output: outPath, Category: "frames"}, "invalid category"},
		{"time-start", FilterOptions{Output: outPath, TimeStart: "yesterday"}, "invalid time-start"},
		{"time-end", FilterOptions{Output: outPath, TimeEnd: "tomorrow"}, "invalid time-end"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RunFilter(path, tt.opts, &bytes.Buffer{})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q error, got: %v", tt.want, err)
			}
		})
	}
}

func TestParseCategoryFlag(t *testing.T) {
	tests := []struct {
		input string
		want  log.Category
	}{
		{"general", log.CategoryGeneral},
		{"LENGTH", log.CategoryLength},
		{"Overlap", log.CategoryOverlap},
		{"limits", log.CategoryLimits},
		{"identify", log.CategoryIdentify},
	}
	for _, tt := range tests {
		got, err := ParseCategoryFlag(tt.input)
		if err != nil {
			t.Errorf("ParseCategoryFlag(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCategoryFlag(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseLevelFlag(t *testing.T) {
	tests := []struct {
		input string
		want  log.Level
	}{
		{"debug", log.LevelDebug},
		{"INFO", log.LevelInfo},
		{"Warn", log.LevelWarn},
		{"error", log.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevelFlag(tt.input)
		if err != nil {
			t.Errorf("ParseLevelFlag(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevelFlag(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}

	if _, err := ParseLevelFlag("unknown"); err == nil {
		t.Error("expected error for unknown level")
	}
}
