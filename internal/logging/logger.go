// Package logging provides structured logging for waitroom.
// It wraps Go's log/slog package to provide JSON-formatted logs with
// agent and session context attached to every entry.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Log levels supported by the logger
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// LogFileName is the name of the log file created inside the log directory.
const LogFileName = "waitroom.log"

// Options controls where and how a Logger writes.
type Options struct {
	// Dir is the directory holding waitroom.log. Empty means stderr.
	Dir string
	// Level is one of DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string
	// Rotation configures size-based rotation of waitroom.log.
	// Ignored when Dir is empty.
	Rotation RotationConfig
}

// Logger provides structured logging with persistent context attributes.
// It is safe for concurrent use. Child loggers share the underlying writer.
type Logger struct {
	logger *slog.Logger
	closer *closeOnce
}

// closeOnce guards the shared writer so that closing any child closes it once.
type closeOnce struct {
	mu sync.Mutex
	c  io.Closer
}

func (o *closeOnce) Close() error {
	if o == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.c == nil {
		return nil
	}
	err := o.c.Close()
	o.c = nil
	return err
}

// New creates a Logger from opts. When opts.Dir is set, logs go to
// {Dir}/waitroom.log through a RotatingWriter; otherwise to stderr.
func New(opts Options) (*Logger, error) {
	if opts.Dir == "" {
		return NewWriterLogger(os.Stderr, opts.Level), nil
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rw, err := NewRotatingWriter(filepath.Join(opts.Dir, LogFileName), opts.Rotation)
	if err != nil {
		return nil, err
	}

	l := NewWriterLogger(rw, opts.Level)
	l.closer = &closeOnce{c: rw}
	return l, nil
}

// NewWriterLogger creates a Logger writing JSON lines to w. The caller owns w.
func NewWriterLogger(w io.Writer, level string) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return &Logger{logger: slog.New(handler)}
}

// NopLogger returns a Logger that discards all log output.
// Useful for testing or when logging is disabled.
func NopLogger() *Logger {
	return NewWriterLogger(io.Discard, LevelError)
}

// parseLevel converts a string log level to slog.Level.
// Defaults to INFO if the level string is not recognized.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithSession returns a child Logger tagged with a wait session ID.
func (l *Logger) WithSession(sessionID string) *Logger {
	return l.With("session_id", sessionID)
}

// WithAgent returns a child Logger tagged with the waiting agent's name.
func (l *Logger) WithAgent(agentName string) *Logger {
	return l.With("agent", agentName)
}

// WithComponent returns a child Logger tagged with a component name
// such as "mailbox", "waiter" or "server".
func (l *Logger) WithComponent(component string) *Logger {
	return l.With("component", component)
}

// With returns a child Logger with arbitrary key-value attributes.
func (l *Logger) With(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}
	return &Logger{logger: l.logger.With(args...), closer: l.closer}
}

// Debug logs a message at DEBUG level with optional key-value pairs.
func (l *Logger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

// Info logs a message at INFO level with optional key-value pairs.
func (l *Logger) Info(msg string, args ...any) { l.logger.Info(msg, args...) }

// Warn logs a message at WARN level with optional key-value pairs.
func (l *Logger) Warn(msg string, args ...any) { l.logger.Warn(msg, args...) }

// Error logs a message at ERROR level with optional key-value pairs.
func (l *Logger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// Slog exposes the underlying *slog.Logger, e.g. for http.Server.ErrorLog.
func (l *Logger) Slog() *slog.Logger {
	return l.logger
}

// Close flushes and closes the log file. It is a no-op for loggers that
// do not own their writer.
func (l *Logger) Close() error {
	return l.closer.Close()
}

// ParseLevel normalizes a level string to one of the Level constants.
// Returns LevelInfo if the level string is not recognized.
func ParseLevel(level string) string {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn:
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// ValidLevels returns the list of valid log level strings.
func ValidLevels() []string {
	return []string{LevelDebug, LevelInfo, LevelWarn, LevelError}
}
