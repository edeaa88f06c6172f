package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/openground/records/pkg/log"
)

func TestStatsCounts(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Level: log.LevelWarn, Category: log.CategoryLength, Target: "INST", Packet: "HEALTH",
			Length: &log.LengthEvent{Expected: 9, Actual: 7}},
		{Timestamp: ts.Add(time.Second), Level: log.LevelInfo, Category: log.CategoryLimits, Target: "INST", Packet: "HEALTH",
			Limits: &log.LimitsEvent{Item: "TEMP", OldState: "GREEN", NewState: "YELLOW_HIGH"}},
		{Timestamp: ts.Add(2 * time.Second), Level: log.LevelError, Category: log.CategoryLimits, Target: "INST", Packet: "HEALTH",
			Limits: &log.LimitsEvent{Item: "TEMP", OldState: "YELLOW_HIGH", NewState: "RED_HIGH"}},
		{Timestamp: ts.Add(3 * time.Second), Level: log.LevelDebug, Category: log.CategoryGeneral, Message: "loaded"},
	}
	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"=== Record Event Statistics ===",
		"Total Events: 4",
		"Duration:   3s",
		"WARN:",
		"LIMITS:      2",
		"Packets: 1",
		"[INST HEALTH] 3 events",
		"Length mismatches: 1",
		"Limits transitions: 2",
		"TEMP: RED_HIGH",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestStatsTimeRange(t *testing.T) {
	start := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: start.Add(time.Minute)},
		{Timestamp: start},
		{Timestamp: start.Add(5 * time.Minute)},
	}
	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	if !strings.Contains(buf.String(), "2026-01-28T10:00:00Z to 2026-01-28T10:05:00Z") {
		t.Errorf("expected time range, got:\n%s", buf.String())
	}
}

func TestStatsEmptyCapture(t *testing.T) {
	path := createTestLogFile(t, nil)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	if strings.Contains(buf.String(), "Time Range") {
		t.Errorf("unexpected time range for empty capture:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "Total Events: 0") {
		t.Errorf("expected zero events:\n%s", buf.String())
	}
}
