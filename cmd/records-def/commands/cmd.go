package commands

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openground/records/pkg/catalog"
)

// CmdOptions configures the cmd command.
type CmdOptions struct {
	Target       string
	Packet       string
	NoRangeCheck bool
	Raw          bool
	Files        []string
	Params       map[string]any
}

// RunCmd runs the cmd command.
func RunCmd(args []string, stdout, stderr io.Writer) int {
	opts, err := parseCmdArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCommandError
	}

	if len(opts.Files) == 0 || opts.Target == "" || opts.Packet == "" {
		fmt.Fprintln(stderr, "Error: definition files, --target and --packet are required")
		printCmdUsage(stderr)
		return exitCommandError
	}

	cmds, _, err := loadCatalog(opts.Files, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading definitions: %v\n", err)
		return exitCommandError
	}

	if err := buildCommand(stdout, cmds, opts.Target, opts.Packet, opts.Params, !opts.NoRangeCheck, opts.Raw); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitValidation
	}
	return exitSuccess
}

// buildCommand builds a command and prints its textual form, its buffer in
// hex and, when hazardous, the hazard description.
func buildCommand(w io.Writer, cmds *catalog.Commands, target, name string, params map[string]any, rangeCheck, raw bool) error {
	cmd, res, err := cmds.BuildCmd(target, name, params, rangeCheck, raw)
	if err != nil {
		return err
	}
	text, err := cmds.Format(cmd)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, text)
	fmt.Fprintln(w, hex.EncodeToString(cmd.Buffer()))
	if res.Hazardous {
		fmt.Fprintf(w, "HAZARDOUS: %s\n", res.HazardousDescription)
	}
	return nil
}

// parseParams splits NAME=VALUE arguments from the rest.
func parseParams(args []string) (map[string]any, []string, error) {
	params := make(map[string]any)
	var rest []string
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			rest = append(rest, arg)
			continue
		}
		v, err := parseParamValue(value)
		if err != nil {
			return nil, nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		params[name] = v
	}
	return params, rest, nil
}

func parseCmdArgs(args []string) (CmdOptions, error) {
	fs := flag.NewFlagSet("cmd", flag.ContinueOnError)
	opts := CmdOptions{}

	fs.StringVar(&opts.Target, "target", "", "Target name")
	fs.StringVar(&opts.Packet, "packet", "", "Command name")
	fs.BoolVar(&opts.NoRangeCheck, "no-range-check", false, "Write values outside minimum and maximum")
	fs.BoolVar(&opts.Raw, "raw", false, "Write values without state lookup or conversion")

	fs.Usage = func() {}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	params, files, err := parseParams(fs.Args())
	if err != nil {
		return opts, err
	}
	opts.Params = params
	opts.Files = files
	return opts, nil
}

// parseParamValue reads a parameter as a YAML scalar, so 10, 0x0A, 2.5 and
// 'text' take their natural types.
func parseParamValue(s string) (any, error) {
	if s == "" {
		return "", nil
	}
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	switch v.(type) {
	case int, float64, string:
		return v, nil
	}
	return s, nil
}

func printCmdUsage(w io.Writer) {
	fmt.Fprintln(w, `
Usage: records-def cmd [options] --target <T> --packet <P> <files...> [NAME=VALUE...]

Options:
  --target           Target name
  --packet           Command name
  --no-range-check   Write values outside minimum and maximum
  --raw              Write values without state lookup or conversion

Values are read as YAML scalars: 10, 0x0A, 2.5, ARM, 'quoted text'.`)
}
