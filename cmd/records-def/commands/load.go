// Package commands implements the records-def CLI commands.
package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/openground/records/pkg/catalog"
	"github.com/openground/records/pkg/definition"
	"github.com/openground/records/pkg/log"
)

const (
	exitSuccess      = 0
	exitCommandError = 1
	exitValidation   = 2
)

// loadDocument reads a definition file. Files ending in .cbor are decoded
// as CBOR, anything else as YAML.
func loadDocument(path string) (*definition.Document, error) {
	if isCBOR(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return definition.ParseCBOR(data)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return definition.DecodeYAML(f)
}

func isCBOR(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".cbor")
}

// loadCatalog registers the packets of every file. Length mismatches seen
// while identifying are reported to stderr.
func loadCatalog(paths []string, stderr io.Writer) (*catalog.Commands, *catalog.Telemetry, error) {
	logger := log.NewSlogAdapter(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	cfg := catalog.Config{Logger: logger}
	cmds := catalog.NewCommandsWithConfig(cfg)
	tlm := catalog.NewTelemetryWithConfig(cfg)

	for _, path := range paths {
		doc, err := loadDocument(path)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		if err := doc.Register(cmds, tlm, definition.Options{Logger: logger}); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return cmds, tlm, nil
}
