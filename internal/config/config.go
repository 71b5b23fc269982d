// Package config handles application configuration and setup
package config

import (
	"io"

	"github.com/retroenv/retrochip8/internal/options"
	"github.com/retroenv/retrogolib/log"
)

// CreateLogger creates a logger with appropriate settings. Instruction
// tracing is logged at debug level and therefore enables it.
func CreateLogger(opts options.Program) *log.Logger {
	return CreateLoggerWithOutput(opts, nil)
}

// CreateLoggerWithOutput creates a logger like CreateLogger that writes to
// the given writer. A nil writer selects the default output.
func CreateLoggerWithOutput(opts options.Program, output io.Writer) *log.Logger {
	cfg := log.DefaultConfig()
	switch {
	case opts.Debug, opts.Trace:
		cfg.Level = log.DebugLevel
	case opts.Quiet:
		cfg.Level = log.ErrorLevel
	}
	if output != nil {
		cfg.Output = output
	}
	return log.NewWithConfig(cfg)
}
