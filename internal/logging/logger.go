// Package logging wraps zerolog for the two ways ipdata runs: an interactive
// CLI that writes human-readable lines, and a server that writes JSON.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Mode selects the output format.
type Mode string

const (
	ModeCLI    Mode = "cli"
	ModeServer Mode = "server"
)

const consoleTimeFormat = "15:04:05"

// Logger is a zerolog.Logger that remembers which mode built it.
type Logger struct {
	zlog zerolog.Logger
	mode Mode
}

// NewLogger returns a logger writing to stdout. Stderr belongs to progress
// bars in CLI mode.
func NewLogger(mode Mode) *Logger {
	return newLogger(mode, os.Stdout)
}

func newLogger(mode Mode, w io.Writer) *Logger {
	if mode != ModeServer {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat}
	}
	return &Logger{
		zlog: zerolog.New(w).With().Timestamp().Logger(),
		mode: mode,
	}
}

// NewDefaultCLILogger is NewLogger(ModeCLI).
func NewDefaultCLILogger() *Logger {
	return NewLogger(ModeCLI)
}

// NewNopLogger discards everything.
func NewNopLogger() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// Mode reports how the logger formats output. Empty for a nop logger.
func (l *Logger) Mode() Mode { return l.mode }

func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zlog.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zlog.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }

// With starts a child logger carrying extra fields.
func (l *Logger) With() zerolog.Context {
	return l.zlog.With()
}

// SetGlobalLevel applies to every logger in the process.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: consoleTimeFormat})
}
