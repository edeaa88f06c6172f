// Package commands implements the records-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/openground/records/pkg/log"
)

// FilterOptions specifies filtering criteria given on the command line.
type FilterOptions struct {
	Output    string
	Level     string
	Category  string
	Target    string
	Packet    string
	TimeStart string
	TimeEnd   string
}

// BuildFilter converts command-line options into a log.Filter.
func BuildFilter(opts FilterOptions) (log.Filter, error) {
	filter := log.Filter{
		Target: strings.ToUpper(opts.Target),
		Packet: strings.ToUpper(opts.Packet),
	}

	if opts.Level != "" {
		l, err := ParseLevelFlag(opts.Level)
		if err != nil {
			return log.Filter{}, err
		}
		filter.MinLevel = l
	}

	if opts.Category != "" {
		c, err := ParseCategoryFlag(opts.Category)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Category = &c
	}

	if opts.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeStart)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}

	if opts.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeEnd)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}

	return filter, nil
}

// RunFilter copies the events of the capture at path that match opts into
// a new capture at opts.Output.
func RunFilter(path string, opts FilterOptions, w io.Writer) error {
	filter, err := BuildFilter(opts)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()
	reader := log.NewFilteredReader(f, filter)

	logger := log.NewFileLogger(log.FileConfig{Path: opts.Output})
	defer logger.Close()

	count := 0
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		logger.Log(event)
		count++
	}

	fmt.Fprintf(w, "Filtered %d events to %s\n", count, opts.Output)
	return nil
}

// ParseLevelFlag parses a level name (case-insensitive).
func ParseLevelFlag(s string) (log.Level, error) {
	for _, l := range []log.Level{log.LevelDebug, log.LevelInfo, log.LevelWarn, log.LevelError} {
		if strings.EqualFold(s, l.String()) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("invalid level: %s (valid: debug, info, warn, error)", s)
}

// ParseCategoryFlag parses a category name (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	for _, c := range categories {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("invalid category: %s (valid: general, length, overlap, limits, identify)", s)
}

var categories = []log.Category{
	log.CategoryGeneral,
	log.CategoryLength,
	log.CategoryOverlap,
	log.CategoryLimits,
	log.CategoryIdentify,
}
