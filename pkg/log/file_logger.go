package log

import (
	"gopkg.in/natefinch/lumberjack.v2"
)

// Defaults for FileConfig.
const (
	DefaultMaxSizeMB  = 64
	DefaultMaxBackups = 4
)

// FileConfig configures a rotating capture file.
type FileConfig struct {
	// Path of the active capture file. Rotated files are kept beside it.
	Path string

	// MaxSizeMB is the size at which the file is rotated (default 64).
	MaxSizeMB int

	// MaxBackups is the number of rotated files to keep (default 4).
	MaxBackups int

	// MaxAgeDays removes rotated files older than this many days (0 = keep).
	MaxAgeDays int

	// Compress gzips rotated files.
	Compress bool
}

// FileLogger writes events to a size-rotated file in CBOR format.
// The file is opened lazily on the first event.
type FileLogger struct {
	*StreamLogger
	rotator *lumberjack.Logger
}

// NewFileLogger creates a FileLogger from cfg.
func NewFileLogger(cfg FileConfig) *FileLogger {
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = DefaultMaxSizeMB
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = DefaultMaxBackups
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return &FileLogger{
		StreamLogger: NewStreamLogger(rotator),
		rotator:      rotator,
	}
}

// Rotate closes the current file and starts a new one.
func (l *FileLogger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rotator.Rotate()
}

// Compile-time interface satisfaction check.
var _ Logger = (*FileLogger)(nil)
