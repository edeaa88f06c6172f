// Command records-log views and analyzes record event captures.
//
// Captures are CBOR event streams written by log.FileLogger or
// log.StreamLogger: length mismatches seen while identifying packets,
// overlapping item definitions and limits state transitions.
//
// Usage:
//
//	records-log <command> [flags] <file.rlog>
//
// Commands:
//
//	view     View a capture in human-readable format
//	export   Export a capture to JSONL or CSV
//	filter   Filter a capture and write to a new file
//	stats    Show statistics about a capture
//
// Examples:
//
//	# View all events
//	records-log view events.rlog
//
//	# View only limits transitions of one target
//	records-log view --category limits --target INST events.rlog
//
//	# Export to CSV
//	records-log export --format csv -o events.csv events.rlog
//
//	# Keep warnings and errors of one hour
//	records-log filter --level warn --time-start 2026-01-28T10:00:00Z \
//	    --time-end 2026-01-28T11:00:00Z -o hour.rlog events.rlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/openground/records/cmd/records-log/commands"
)

const usage = `records-log - Record Event Capture Analyzer

Usage:
  records-log <command> [flags] <file.rlog>

Commands:
  view     View a capture in human-readable format
  export   Export a capture to JSONL or CSV
  filter   Filter a capture and write to a new file
  stats    Show statistics about a capture

Use "records-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// capturePath returns the single positional argument.
func capturePath(fs *flag.FlagSet) string {
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: capture file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `records-log view - View a capture in human-readable format

Usage:
  records-log view [flags] <file.rlog>

Flags:
`)
		fs.PrintDefaults()
	}

	level := fs.String("level", "", "Minimum level (debug, info, warn, error)")
	category := fs.String("category", "", "Filter by category (general, length, overlap, limits, identify)")
	target := fs.String("target", "", "Filter by target name")
	pkt := fs.String("packet", "", "Filter by packet name")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := capturePath(fs)

	filter, err := commands.BuildFilter(commands.FilterOptions{
		Level:    *level,
		Category: *category,
		Target:   *target,
		Packet:   *pkt,
	})
	if err != nil {
		fail(err)
	}
	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `records-log export - Export a capture to JSONL or CSV

Usage:
  records-log export [flags] <file.rlog>

Flags:
`)
		fs.PrintDefaults()
	}

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := capturePath(fs)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `records-log filter - Filter a capture and write to a new file

Usage:
  records-log filter [flags] <file.rlog>

Flags:
`)
		fs.PrintDefaults()
	}

	output := fs.String("o", "", "Output file (required)")
	level := fs.String("level", "", "Minimum level (debug, info, warn, error)")
	category := fs.String("category", "", "Filter by category (general, length, overlap, limits, identify)")
	target := fs.String("target", "", "Filter by target name")
	pkt := fs.String("packet", "", "Filter by packet name")
	timeStart := fs.String("time-start", "", "Filter by start time (RFC3339)")
	timeEnd := fs.String("time-end", "", "Filter by end time (RFC3339)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := capturePath(fs)
	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	opts := commands.FilterOptions{
		Output:    *output,
		Level:     *level,
		Category:  *category,
		Target:    *target,
		Packet:    *pkt,
		TimeStart: *timeStart,
		TimeEnd:   *timeEnd,
	}
	if err := commands.RunFilter(path, opts, os.Stdout); err != nil {
		fail(err)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `records-log stats - Show statistics about a capture

Usage:
  records-log stats <file.rlog>

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := capturePath(fs)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
