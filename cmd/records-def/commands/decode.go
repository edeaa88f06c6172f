package commands

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/openground/records/pkg/catalog"
	"github.com/openground/records/pkg/packet"
)

// DecodeOptions configures the decode command.
type DecodeOptions struct {
	Hex    string
	Target string
	Values string
	Limits bool
	Files  []string
}

// RunDecode runs the decode command.
func RunDecode(args []string, stdout, stderr io.Writer) int {
	opts, err := parseDecodeArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}

	if len(opts.Files) == 0 || opts.Hex == "" {
		fmt.Fprintln(stderr, "Error: definition files and --hex are required")
		printDecodeUsage(stderr)
		return exitCommandError
	}

	vt, err := packet.ParseValueType(opts.Values)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}
	buf, err := parseHex(opts.Hex)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}

	_, tlm, err := loadCatalog(opts.Files, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading definitions: %v\n", err)
		return exitCommandError
	}

	var targets []string
	if opts.Target != "" {
		targets = []string{strings.ToUpper(opts.Target)}
	}
	if err := decodeBuffer(stdout, tlm, buf, targets, vt, opts.Limits); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, errNoMatch) {
			return exitValidation
		}
		return exitCommandError
	}
	return exitSuccess
}

var errNoMatch = errors.New("buffer matches no telemetry packet")

// decodeBuffer identifies buf, stores it as the packet's current value and
// prints the packet's items. With checkLimits the out-of-limits items are
// listed after the values.
func decodeBuffer(w io.Writer, tlm *catalog.Telemetry, buf []byte, targets []string, vt packet.ValueType, checkLimits bool) error {
	p, ok := tlm.IdentifyAndUpdate(buf, targets...)
	if !ok {
		return errNoMatch
	}

	text, err := p.Formatted(vt, 2)
	if err != nil {
		return fmt.Errorf("reading values: %w", err)
	}
	fmt.Fprintf(w, "%s %s\n%s", p.TargetName(), p.PacketName(), text)

	if checkLimits {
		if err := tlm.CheckLimits(p.TargetName(), p.PacketName()); err != nil {
			return fmt.Errorf("checking limits: %w", err)
		}
		for _, o := range p.OutOfLimits() {
			fmt.Fprintf(w, "LIMITS %s %s\n", o.Ref.Item, o.State)
		}
	}
	return nil
}

// parseHex decodes hex digits, ignoring spaces and colons.
func parseHex(s string) ([]byte, error) {
	buf, err := hex.DecodeString(strings.NewReplacer(" ", "", ":", "").Replace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return buf, nil
}

func parseDecodeArgs(args []string) (DecodeOptions, error) {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	opts := DecodeOptions{}

	fs.StringVar(&opts.Hex, "hex", "", "Buffer as hex digits")
	fs.StringVar(&opts.Target, "target", "", "Only identify against this target")
	fs.StringVar(&opts.Values, "values", "WITH_UNITS", "RAW, CONVERTED, FORMATTED or WITH_UNITS")
	fs.BoolVar(&opts.Limits, "limits", false, "Check limits and list out-of-limits items")

	fs.Usage = func() {}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	opts.Files = fs.Args()
	return opts, nil
}

func printDecodeUsage(w io.Writer) {
	fmt.Fprintln(w, `
Usage: records-def decode [options] --hex <bytes> <files...>

Options:
  --hex      Buffer as hex digits (spaces and colons are ignored)
  --target   Only identify against this target
  --values   RAW, CONVERTED, FORMATTED or WITH_UNITS [default: WITH_UNITS]
  --limits   Check limits and list out-of-limits items`)
}
