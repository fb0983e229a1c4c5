package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a zerolog.Logger that can be narrowed with dashboard fields.
type Logger struct {
	zerolog.Logger
}

// New builds the service logger for environment: console output at debug
// level in development, nothing under test, JSON at info level otherwise.
func New(service, environment string) *Logger {
	var (
		out   io.Writer = os.Stdout
		level           = zerolog.InfoLevel
	)
	switch environment {
	case "development":
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly}
		level = zerolog.DebugLevel
	case "test":
		out = io.Discard
	}

	return &Logger{
		Logger: zerolog.New(out).Level(level).With().Timestamp().Str("service", service).Logger(),
	}
}

func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

func (l *Logger) with(key, value string) *Logger {
	return &Logger{Logger: l.Logger.With().Str(key, value).Logger()}
}

func (l *Logger) WithComponent(name string) *Logger { return l.with("component", name) }

func (l *Logger) WithRequestID(id string) *Logger { return l.with("request_id", id) }

// WithUnit scopes a logger to one health unit.
func (l *Logger) WithUnit(unitID string) *Logger { return l.with("unit_id", unitID) }
