// Package logging provides the structured Logger used across every echo
// subsystem. The interface is carried over from the orchestrator package
// this module grew out of; the concrete implementation is backed by
// zerolog instead of the stdlib log package.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the narrow logging surface every subsystem takes a dependency
// on. args are alternating key/value pairs, as zerolog's event-builder style
// encourages.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NoOpLogger discards everything; used in tests and as a safe zero value.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...any) {}
func (NoOpLogger) Info(string, ...any)  {}
func (NoOpLogger) Warn(string, ...any)  {}
func (NoOpLogger) Error(string, ...any) {}

// ZerologLogger adapts zerolog.Logger to the Logger interface.
type ZerologLogger struct {
	z zerolog.Logger
}

// New builds a ZerologLogger. When pretty is true, output is a
// human-readable console writer (development); otherwise it's newline JSON
// (production).
func New(w io.Writer, pretty bool) *ZerologLogger {
	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	z := zerolog.New(w).With().Timestamp().Logger()
	return &ZerologLogger{z: z}
}

func (l *ZerologLogger) Debug(msg string, args ...any) { l.event(l.z.Debug(), msg, args) }
func (l *ZerologLogger) Info(msg string, args ...any)  { l.event(l.z.Info(), msg, args) }
func (l *ZerologLogger) Warn(msg string, args ...any)  { l.event(l.z.Warn(), msg, args) }
func (l *ZerologLogger) Error(msg string, args ...any) { l.event(l.z.Error(), msg, args) }

func (l *ZerologLogger) event(e *zerolog.Event, msg string, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, args[i+1])
	}
	e.Msg(msg)
}
