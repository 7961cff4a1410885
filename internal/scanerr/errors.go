// Package scanerr defines the error taxonomy shared by the scanning engine.
package scanerr

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacityExceeded marks a tree walk that stopped at its node budget.
	// It is only ever attached to a warning, never returned as a fatal error.
	ErrCapacityExceeded = errors.New("tree node budget exceeded")
	// ErrOutsideWorkspace indicates a path that does not resolve under the workspace root.
	ErrOutsideWorkspace = errors.New("path is outside workspace root")
)

// ConfigurationError reports an invalid pattern or option value.
type ConfigurationError struct {
	Role   string // include, exclude, custom, ignore or the option name
	Source string // offending pattern text or value
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid %s %q", e.Role, e.Source)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Role, e.Source, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// IOError wraps a filesystem failure for a single entry.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: entry unreadable: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ScanError is the generic failure returned when a whole rebuild could not complete.
type ScanError struct {
	Msg string
	Err error
}

func (e *ScanError) Error() string {
	if e.Err == nil {
		return "scan failed: " + e.Msg
	}
	return fmt.Sprintf("scan failed: %s: %v", e.Msg, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// IsConfiguration reports whether err carries a ConfigurationError.
func IsConfiguration(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// IsIO reports whether err carries an IOError.
func IsIO(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr)
}
