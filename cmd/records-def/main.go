// records-def is a CLI tool for checking record definition files and using
// them to decode telemetry and build commands.
package main

import (
	"fmt"
	"os"

	"github.com/openground/records/cmd/records-def/commands"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var exitCode int
	switch cmd {
	case "validate":
		exitCode = commands.RunValidate(args, os.Stdout, os.Stderr)
	case "show":
		exitCode = commands.RunShow(args, os.Stdout, os.Stderr)
	case "convert":
		exitCode = commands.RunConvert(args, os.Stdout, os.Stderr)
	case "decode":
		exitCode = commands.RunDecode(args, os.Stdout, os.Stderr)
	case "cmd":
		exitCode = commands.RunCmd(args, os.Stdout, os.Stderr)
	case "console":
		exitCode = commands.RunConsole(args, os.Stdout, os.Stderr)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		exitCode = 1
	}

	os.Exit(exitCode)
}

func printUsage() {
	fmt.Println(`records-def - record definition tool

Usage:
  records-def <command> [options] [files...]

Commands:
  validate   Check that definition files build
  show       Display the packet layouts of a definition file
  convert    Convert a definition between YAML and CBOR
  decode     Identify a telemetry buffer and print its values
  cmd        Build a command and print its buffer
  console    Interactive session over definition files

Examples:
  records-def validate inst.yaml inst2.yaml
  records-def show --packet HEALTH inst.yaml
  records-def convert -o inst.cbor inst.yaml
  records-def decode --hex 0164002d02 --limits inst.yaml
  records-def cmd --target INST --packet COLLECT inst.yaml DURATION=5 MODE=ARM
  records-def console inst.yaml

For command-specific help, run:
  records-def <command> --help`)
}
