package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"":        LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"off":     LevelNone,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn, false)

	l.Debug("hidden %d", 1)
	l.Info("hidden too")
	l.Warn("tree truncated after %d entries", 10)
	l.Error("boom")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN] tree truncated after 10 entries")
	assert.Contains(t, out, "ERROR] boom")
}

func TestLoggerSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelInfo, false)
	l.SetLevel("debug")

	assert.Equal(t, LevelDebug, l.Level())
	l.Debug("visible")
	assert.Contains(t, buf.String(), "DEBUG] visible")
}
