package commands

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/openground/records/pkg/log"
)

// Stats holds aggregate statistics about a capture.
type Stats struct {
	TotalEvents      int
	EventsByLevel    map[log.Level]int
	EventsByCategory map[log.Category]int
	Packets          map[string]*PacketStats
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// PacketStats holds statistics for a single packet.
type PacketStats struct {
	Events            int
	LengthMismatches  int
	LimitsTransitions int

	// LastState is the latest limits state of each item.
	LastState map[string]string
}

// RunStats analyzes the capture and prints statistics.
func RunStats(path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()
	reader := log.NewReader(f)

	stats := &Stats{
		EventsByLevel:    make(map[log.Level]int),
		EventsByCategory: make(map[log.Category]int),
		Packets:          make(map[string]*PacketStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLevel[event.Level]++
	s.EventsByCategory[event.Category]++

	// Track time range
	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	if event.Target == "" {
		return
	}
	name := packetName(event)
	ps, ok := s.Packets[name]
	if !ok {
		ps = &PacketStats{LastState: make(map[string]string)}
		s.Packets[name] = ps
	}
	ps.Events++
	if event.Length != nil {
		ps.LengthMismatches++
	}
	if event.Limits != nil {
		ps.LimitsTransitions++
		ps.LastState[event.Limits.Item] = event.Limits.NewState
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Record Event Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Level:")
	for _, l := range []log.Level{log.LevelDebug, log.LevelInfo, log.LevelWarn, log.LevelError} {
		if count := stats.EventsByLevel[l]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", l.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, c := range categories {
		if count := stats.EventsByCategory[c]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", c.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Packets: %d\n", len(stats.Packets))
	names := make([]string, 0, len(stats.Packets))
	for name := range stats.Packets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ps := stats.Packets[name]
		fmt.Fprintf(w, "  [%s] %d events\n", name, ps.Events)
		if ps.LengthMismatches > 0 {
			fmt.Fprintf(w, "           Length mismatches: %d\n", ps.LengthMismatches)
		}
		if ps.LimitsTransitions > 0 {
			fmt.Fprintf(w, "           Limits transitions: %d\n", ps.LimitsTransitions)
			items := make([]string, 0, len(ps.LastState))
			for item := range ps.LastState {
				items = append(items, item)
			}
			sort.Strings(items)
			for _, item := range items {
				fmt.Fprintf(w, "             %s: %s\n", item, ps.LastState[item])
			}
		}
	}
}
