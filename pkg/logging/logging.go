package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// Level defines the severity of a log entry.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes Level satisfy fmt.Stringer.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// SlogLevel maps a Level to its slog equivalent.
func (l Level) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Entry is the structured log record delivered to the console UI when
// console mode is active.
type Entry struct {
	Timestamp time.Time
	Level     Level
	Subsystem string
	Message   string
	Err       error
}

const consoleChannelBufferSize = 2048

var (
	defaultLogger  *slog.Logger
	consoleChannel chan Entry
	consoleMode    bool
)

// InitCLI initializes logging for plain CLI output. Entries at or above
// filterLevel are written to output as slog text lines.
func InitCLI(filterLevel Level, output io.Writer) {
	consoleMode = false
	defaultLogger = slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: filterLevel.SlogLevel(),
	}))
	slog.SetDefault(defaultLogger)
}

// InitConsole initializes logging for the interactive console UI. All
// entries are delivered over the returned channel; the console applies
// its own level filtering. Direct slog output is discarded.
func InitConsole() <-chan Entry {
	consoleMode = true
	consoleChannel = make(chan Entry, consoleChannelBufferSize)
	defaultLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	slog.SetDefault(defaultLogger)
	return consoleChannel
}

// CloseConsole closes the console channel. Call once at shutdown.
func CloseConsole() {
	consoleMode = false
	if consoleChannel != nil {
		close(consoleChannel)
		consoleChannel = nil
	}
}

func log(level Level, subsystem string, err error, format string, args ...interface{}) {
	if !consoleMode {
		if defaultLogger == nil || !defaultLogger.Enabled(context.Background(), level.SlogLevel()) {
			return
		}
	}

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	now := time.Now()

	if consoleMode {
		entry := Entry{
			Timestamp: now,
			Level:     level,
			Subsystem: subsystem,
			Message:   msg,
			Err:       err,
		}
		select {
		case consoleChannel <- entry:
		default:
			// Channel full; drop to stderr rather than blocking the caller.
			fmt.Fprintf(os.Stderr, "[LOGGING] console channel full, dropping: %s [%s] %s\n",
				now.Format(time.RFC3339), level, msg)
		}
		return
	}

	attrs := []slog.Attr{slog.String("subsystem", subsystem)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	defaultLogger.LogAttrs(context.Background(), level.SlogLevel(), msg, attrs...)
}

// Debug logs a debug message for the given subsystem.
func Debug(subsystem string, format string, args ...interface{}) {
	log(LevelDebug, subsystem, nil, format, args...)
}

// Info logs an informational message for the given subsystem.
func Info(subsystem string, format string, args ...interface{}) {
	log(LevelInfo, subsystem, nil, format, args...)
}

// Warn logs a warning message for the given subsystem.
func Warn(subsystem string, format string, args ...interface{}) {
	log(LevelWarn, subsystem, nil, format, args...)
}

// Error logs an error message for the given subsystem.
func Error(subsystem string, err error, format string, args ...interface{}) {
	log(LevelError, subsystem, err, format, args...)
}

// TruncateID shortens an identifier for log output so full request or
// state identifiers never land in logs. Only the first 8 characters are
// kept.
func TruncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
