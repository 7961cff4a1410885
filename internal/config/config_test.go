package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bethropolis/dir-digest/internal/scanerr"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"**/*"}, cfg.IncludePatterns)
	assert.Equal(t, []string{".gitignore", ".digestignore"}, cfg.IgnoreFileNames)
	assert.Equal(t, 5000, cfg.MaxTreeEntries)
	assert.Equal(t, 400, cfg.SelectionChunkSize)
	assert.Nil(t, cfg.MaxDepth)
	assert.True(t, cfg.RespectIgnoreFiles)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
include_patterns: ["src/**/*.ts"]
exclude_patterns: ["**/*.test.ts"]
max_depth: 3
respect_ignore_files: false
max_tree_entries: 100
remote:
  target: dev@example.com:2222
  dial_timeout: 5s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))

	cfg, err := LoadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/**/*.ts"}, cfg.IncludePatterns)
	assert.Equal(t, []string{"**/*.test.ts"}, cfg.ExcludePatterns)
	require.NotNil(t, cfg.MaxDepth)
	assert.Equal(t, 3, *cfg.MaxDepth)
	assert.False(t, cfg.RespectIgnoreFiles)
	assert.Equal(t, 100, cfg.MaxTreeEntries)
	assert.Equal(t, "dev@example.com:2222", cfg.Remote.Target)
	assert.Equal(t, "5s", cfg.Remote.DialTimeout.String())

	// untouched keys keep their defaults
	assert.Equal(t, 1, cfg.AutoExpandDepth)
	assert.Equal(t, []string{".gitignore", ".digestignore"}, cfg.IgnoreFileNames)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("include_patterns: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestValidate(t *testing.T) {
	neg := -1
	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"negative max depth", func(c *Config) { c.MaxDepth = &neg }, "max_depth"},
		{"zero budget", func(c *Config) { c.MaxTreeEntries = 0 }, "max_tree_entries"},
		{"negative auto expand", func(c *Config) { c.AutoExpandDepth = -2 }, "auto_expand_depth"},
		{"zero chunk", func(c *Config) { c.SelectionChunkSize = 0 }, "selection_chunk_size"},
		{"zero concurrency", func(c *Config) { c.IOConcurrency = 0 }, "io_concurrency"},
		{"nested ignore name", func(c *Config) { c.IgnoreFileNames = []string{"sub/.gitignore"} }, "ignore_file_names"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var cfgErr *scanerr.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.key, cfgErr.Role)
		})
	}
}

func TestEffectiveLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.EffectiveLogLevel())
	cfg.Quiet = true
	assert.Equal(t, "warn", cfg.EffectiveLogLevel())
	cfg.Verbose = true
	assert.Equal(t, "debug", cfg.EffectiveLogLevel())
}

func TestResolveColors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NoColor = true
	cfg.ResolveColors(os.Stderr)
	assert.False(t, cfg.UseColors)

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	cfg.NoColor = false
	cfg.ResolveColors(f)
	assert.False(t, cfg.UseColors, "regular files are never terminals")
}
