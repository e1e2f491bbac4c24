// Package logging wraps zerolog for the CLI and the interactive session.
// Human-readable output goes to the console writer; an optional rotating
// file receives the same events as JSON lines.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const consoleTimeFormat = "15:04:05"

// Logger is a zerolog logger whose sinks can be swapped at runtime.
type Logger struct {
	zlog   zerolog.Logger
	nop    bool
	output io.Writer
	file   io.WriteCloser
}

// New returns a logger printing to w.
func New(w io.Writer) *Logger {
	l := &Logger{}
	l.SetOutput(w)
	return l
}

// NewDefaultCLILogger logs to stderr; stdout is reserved for command output.
func NewDefaultCLILogger() *Logger {
	return New(os.Stderr)
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{zlog: zerolog.Nop(), nop: true, output: io.Discard}
}

func (l *Logger) Info() *zerolog.Event  { return l.zlog.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zlog.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }
func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }

// With creates a child logger context.
func (l *Logger) With() zerolog.Context {
	return l.zlog.With()
}

// SetOutput redirects console output to w.
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
	if l.nop {
		return
	}
	var sink io.Writer = zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat}
	if l.file != nil {
		// The file keeps raw JSON lines; only the console is pretty-printed.
		sink = zerolog.MultiLevelWriter(sink, l.file)
	}
	l.zlog = zerolog.New(sink).With().Timestamp().Logger()
}

// Output returns the console writer.
func (l *Logger) Output() io.Writer {
	return l.output
}

// SetGlobalLevel sets the minimum level for every logger.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

// LevelFor maps the CLI verbosity flags to a level. Verbose wins over quiet.
func LevelFor(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: consoleTimeFormat})
}
