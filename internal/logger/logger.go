package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// LogLevel defines log severity levels
type LogLevel int

const (
	// Log levels from least to most restrictive
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelNone
)

// Logger provides leveled logging to a single writer. It is safe for
// concurrent use; the walker logs from its bounded I/O workers.
type Logger struct {
	mu        sync.Mutex
	out       io.Writer
	useColors bool
	level     LogLevel
}

// New creates a new Logger writing at the given level
func New(out io.Writer, level LogLevel, useColors bool) *Logger {
	return &Logger{
		out:       out,
		useColors: useColors,
		level:     level,
	}
}

// WithLevel sets the log level and returns the logger
func (l *Logger) WithLevel(level LogLevel) *Logger {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
	return l
}

// SetLevel sets the log level from its textual name
func (l *Logger) SetLevel(levelStr string) {
	l.WithLevel(ParseLevel(levelStr))
}

// Level returns the current level
func (l *Logger) Level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// ParseLevel converts a string level to LogLevel, defaulting to info
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "trace":
		return LevelDebug
	case "info", "":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "none", "off", "quiet":
		return LevelNone
	default:
		return LevelInfo
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.write(LevelDebug, "DEBUG", color.CyanString, format, args)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.write(LevelInfo, "INFO", color.BlueString, format, args)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.write(LevelWarn, "WARN", color.YellowString, format, args)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.write(LevelError, "ERROR", color.RedString, format, args)
}

func (l *Logger) write(level LogLevel, prefix string, paint func(string, ...interface{}) string, format string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level > level {
		return
	}
	if l.useColors {
		prefix = paint(prefix)
	}
	fmt.Fprintf(l.out, "[%s %s] %s\n", timeString(), prefix, fmt.Sprintf(format, args...))
}

// timeString returns a formatted time string for the log prefix
func timeString() string {
	return time.Now().Format("15:04:05.000")
}
