package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var (
	isDebug atomic.Bool
	std     atomic.Pointer[Logger]
)

func init() {
	std.Store(NewLogger())
}

// Field is a single structured key/value attached to an event.
type Field struct {
	Key   string
	Value interface{}
}

// F builds a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger emits structured events through logrus.
type Logger struct {
	entry *logrus.Entry
	debug bool
}

// Option configures a Logger.
type Option func(*Logger)

// WithOutput sends events to w instead of stderr.
func WithOutput(w io.Writer) Option {
	return func(l *Logger) {
		l.entry.Logger.SetOutput(w)
	}
}

// WithJSON switches the formatter to one JSON object per line.
func WithJSON() Option {
	return func(l *Logger) {
		l.entry.Logger.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	}
}

// WithDebug enables debug events for this logger regardless of SetDebug.
func WithDebug() Option {
	return func(l *Logger) {
		l.debug = true
	}
}

// NewLogger creates a logger writing text events to stderr.
func NewLogger(opts ...Option) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetLevel(logrus.DebugLevel)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	l := &Logger{entry: logrus.NewEntry(base)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Logrus exposes the underlying logger, mainly so tests can attach hooks.
func (l *Logger) Logrus() *logrus.Logger {
	return l.entry.Logger
}

// With returns a child logger carrying the given fields on every event.
func (l *Logger) With(fields ...Field) *Logger {
	data := make(logrus.Fields, len(fields))
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	return &Logger{entry: l.entry.WithFields(data), debug: l.debug}
}

func (l *Logger) debugEnabled() bool {
	return l.debug || isDebug.Load()
}

func (l *Logger) Info(msg string) { l.entry.Info(msg) }

func (l *Logger) Warn(msg string) { l.entry.Warn(msg) }

func (l *Logger) Error(msg string) { l.entry.Error(msg) }

// Debug logs only when debug output is enabled.
func (l *Logger) Debug(msg string) {
	if l.debugEnabled() {
		l.entry.Debug(msg)
	}
}

// SetDebug toggles debug events for every logger.
func SetDebug(debug bool) {
	isDebug.Store(debug)
}

// Default returns the process-wide logger.
func Default() *Logger {
	return std.Load()
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	if l != nil {
		std.Store(l)
	}
}

// Configure builds the process-wide logger from the format name used in config.
func Configure(format string, out io.Writer) (*Logger, error) {
	opts := []Option{WithOutput(out)}
	switch strings.ToLower(format) {
	case "", "text":
	case "json":
		opts = append(opts, WithJSON())
	default:
		return nil, fmt.Errorf("unknown log format: %s", format)
	}
	l := NewLogger(opts...)
	SetDefault(l)
	return l, nil
}

// With returns a child of the default logger.
func With(fields ...Field) *Logger {
	return Default().With(fields...)
}
