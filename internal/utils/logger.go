// Package utils provides common utilities shared across packages
package utils

import "strings"

// Logger defines a common logging interface used throughout the engine
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// NoopLogger is a logger implementation that does nothing
type NoopLogger struct{}

func (l NoopLogger) Debug(format string, args ...interface{}) {}
func (l NoopLogger) Info(format string, args ...interface{})  {}
func (l NoopLogger) Warn(format string, args ...interface{})  {}
func (l NoopLogger) Error(format string, args ...interface{}) {}

// prefixed tags every message with a component name.
type prefixed struct {
	next   Logger
	prefix string
}

// WithComponent returns a Logger that prefixes messages with "component: ".
// A nil logger yields a NoopLogger.
func WithComponent(l Logger, component string) Logger {
	if l == nil {
		return NoopLogger{}
	}
	component = strings.TrimSpace(component)
	if component == "" {
		return l
	}
	return &prefixed{next: l, prefix: component + ": "}
}

func (p *prefixed) Debug(format string, args ...interface{}) {
	p.next.Debug(p.prefix+format, args...)
}

func (p *prefixed) Info(format string, args ...interface{}) {
	p.next.Info(p.prefix+format, args...)
}

func (p *prefixed) Warn(format string, args ...interface{}) {
	p.next.Warn(p.prefix+format, args...)
}

func (p *prefixed) Error(format string, args ...interface{}) {
	p.next.Error(p.prefix+format, args...)
}
