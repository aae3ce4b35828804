package logger

import (
	"sync"
)

// Log levels used across the application. Silent, Quiet, Normal and Verbose are the
// daemon's command-line verbosity names and map onto the zap levels below.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"

	SilentLevel  = "silent"
	QuietLevel   = "quiet"
	NormalLevel  = "normal"
	VerboseLevel = "verbose"
)

// Options configure the process logger.
type Options struct {
	Level string
	// File, when set, receives a copy of every entry through a rotating writer.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

var (
	// globalLogger holds the singleton logger instance.
	globalLogger *Logger
	once         sync.Once
)

// Get returns a singleton logger configured with opts.
// The first call initializes the logger; subsequent calls ignore opts
// and return the already initialized instance.
func Get(opts Options) *Logger {
	once.Do(func() {
		globalLogger = newZapLogger(opts)
	})
	return globalLogger
}
