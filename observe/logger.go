package observe

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents a logging level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLogLevel parses a string log level. Unknown levels map to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Log output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// zerologLogger implements Logger on top of zerolog.
type zerologLogger struct {
	zl zerolog.Logger
}

// NewLogger creates a JSON logger on stderr with the given level.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a JSON logger writing to w.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	return newZerologLogger(level, FormatJSON, w)
}

// NewConsoleLogger creates a human-readable logger writing to w.
func NewConsoleLogger(level string, w io.Writer) Logger {
	return newZerologLogger(level, FormatConsole, w)
}

func newZerologLogger(level, format string, w io.Writer) *zerologLogger {
	if format == FormatConsole {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: "15:04:05",
			NoColor:    true,
		}
	}

	zl := zerolog.New(w).
		Level(ParseLogLevel(level).zerolog()).
		With().
		Timestamp().
		Logger()

	return &zerologLogger{zl: zl}
}

// WithOperation returns a logger with operation context attached.
func (l *zerologLogger) WithOperation(meta OperationMeta) Logger {
	c := l.zl.With().
		Str("operation.id", meta.OperationID()).
		Str("operation.name", meta.Name)
	if meta.Client != "" {
		c = c.Str("operation.client", meta.Client)
	}
	if meta.Version != "" {
		c = c.Str("operation.version", meta.Version)
	}
	return &zerologLogger{zl: c.Logger()}
}

// Zerolog returns the underlying zerolog logger.
func (l *zerologLogger) Zerolog() *zerolog.Logger {
	return &l.zl
}

func (l *zerologLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(l.zl.Info(), msg, fields)
}

func (l *zerologLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(l.zl.Warn(), msg, fields)
}

func (l *zerologLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(l.zl.Error(), msg, fields)
}

func (l *zerologLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(l.zl.Debug(), msg, fields)
}

func (l *zerologLogger) log(event *zerolog.Event, msg string, fields []Field) {
	// Disabled level
	if event == nil {
		return
	}

	for _, f := range fields {
		if isRedactedField(f.Key) {
			event = event.Str(f.Key, "[REDACTED]")
			continue
		}
		switch v := f.Value.(type) {
		case string:
			event = event.Str(f.Key, v)
		case int:
			event = event.Int(f.Key, v)
		case int64:
			event = event.Int64(f.Key, v)
		case float64:
			event = event.Float64(f.Key, v)
		case bool:
			event = event.Bool(f.Key, v)
		case time.Duration:
			event = event.Dur(f.Key, v)
		case error:
			event = event.AnErr(f.Key, v)
		default:
			event = event.Interface(f.Key, v)
		}
	}
	event.Msg(msg)
}

var redactedKeys = func() map[string]bool {
	m := make(map[string]bool, len(RedactedFields))
	for _, k := range RedactedFields {
		m[k] = true
	}
	return m
}()

func isRedactedField(key string) bool {
	return redactedKeys[key]
}

// ExtendedLogger is a Logger backed by zerolog.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Ownership: Zerolog returns a logger sharing the writer and level.
type ExtendedLogger interface {
	Logger
	Zerolog() *zerolog.Logger
}

var _ ExtendedLogger = (*zerologLogger)(nil)

// Zerolog returns the zerolog logger behind l, or a disabled logger when l
// is not zerolog-backed. Resilience configs take the result as their Logger.
func Zerolog(l Logger) *zerolog.Logger {
	if el, ok := l.(ExtendedLogger); ok {
		return el.Zerolog()
	}
	nop := zerolog.Nop()
	return &nop
}
