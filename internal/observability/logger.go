package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type LoggerOptions struct {
	Path       string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger writes key/value records to stdout and, when Path is set, to a
// rotating file.
type Logger struct {
	log    *slog.Logger
	closer io.Closer
}

func NewLogger(opts LoggerOptions) *Logger {
	var out io.Writer = os.Stdout
	var closer io.Closer

	if opts.Path != "" {
		file := &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, file)
		closer = file
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: ParseLevel(opts.Level)})
	return &Logger{log: slog.New(handler), closer: closer}
}

// NewWriterLogger logs to w only. Used by tests and the scrape command.
func NewWriterLogger(w io.Writer, level string) *Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return &Logger{log: slog.New(handler)}
}

// Nop discards everything.
func Nop() *Logger {
	return NewWriterLogger(io.Discard, "error")
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) Debug(msg string, fields ...any) {
	l.log.Debug(msg, fields...)
}

func (l *Logger) Info(msg string, fields ...any) {
	l.log.Info(msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...any) {
	l.log.Warn(msg, fields...)
}

func (l *Logger) Error(msg string, fields ...any) {
	l.log.Error(msg, fields...)
}

// With returns a logger that adds fields to every record.
func (l *Logger) With(fields ...any) *Logger {
	return &Logger{log: l.log.With(fields...), closer: l.closer}
}

// Slog exposes the underlying logger for libraries that take one.
func (l *Logger) Slog() *slog.Logger {
	return l.log
}

func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
