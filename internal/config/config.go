// Package config holds the workspace and CLI configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/bethropolis/dir-digest/internal/scanerr"
)

// FileName is the per-workspace configuration file looked up by LoadFromDir.
const FileName = ".dir-digest.yaml"

// RemoteConfig holds SSH settings for SFTP workspaces
type RemoteConfig struct {
	// Target is user@host[:port]; empty means the local filesystem
	Target string `yaml:"target"`
	// IdentityFiles are private keys tried after the SSH agent
	IdentityFiles []string `yaml:"identity_files"`
	// KnownHostsFile verifies host keys; defaults to ~/.ssh/known_hosts
	KnownHostsFile string        `yaml:"known_hosts_file"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
}

// Config holds all application configuration settings
type Config struct {
	// Filtering settings
	IncludePatterns    []string `yaml:"include_patterns"`
	ExcludePatterns    []string `yaml:"exclude_patterns"`
	FollowSymlinks     bool     `yaml:"follow_symlinks"`
	RespectIgnoreFiles bool     `yaml:"respect_ignore_files"`
	// MaxDepth is nil when unlimited
	MaxDepth          *int     `yaml:"max_depth"`
	IgnoreFileNames   []string `yaml:"ignore_file_names"`
	RepositoryMarkers []string `yaml:"repository_markers"`

	// Tree settings
	MaxTreeEntries         int      `yaml:"max_tree_entries"`
	AutoExpandDepth        int      `yaml:"auto_expand_depth"`
	ExcludedDirectoryNames []string `yaml:"excluded_directory_names"`
	ShowHidden             bool     `yaml:"show_hidden"`
	KeepEmptyDirs          bool     `yaml:"keep_empty_dirs"`

	// Engine tuning
	PatternCacheSize   int `yaml:"pattern_cache_size"`
	MatcherCacheSize   int `yaml:"matcher_cache_size"`
	SelectionChunkSize int `yaml:"selection_chunk_size"`
	IOConcurrency      int `yaml:"io_concurrency"`

	// Logging settings
	LogLevel string `yaml:"log_level"`
	NoColor  bool   `yaml:"no_color"`

	Remote RemoteConfig `yaml:"remote"`

	// Command-line only settings
	RootDir        string        `yaml:"-"`
	Verbose        bool          `yaml:"-"`
	Quiet          bool          `yaml:"-"`
	UseColors      bool          `yaml:"-"`
	OutputFile     string        `yaml:"-"`
	ShowSkipped    bool          `yaml:"-"`
	ShowProgress   bool          `yaml:"-"`
	ShowStats      bool          `yaml:"-"`
	Timeout        time.Duration `yaml:"-"`
	JSONOutput     bool          `yaml:"-"`
	MarkdownOutput bool          `yaml:"-"`
	// Collapsed hides the children of collapsed directories in tree output
	Collapsed      bool          `yaml:"-"`
}

// DefaultConfig returns a Config with the engine defaults
func DefaultConfig() *Config {
	return &Config{
		IncludePatterns:    []string{"**/*"},
		ExcludePatterns:    []string{"**/node_modules/", "**/.git/", "**/dist/", "**/out/", "**/.DS_Store"},
		FollowSymlinks:     false,
		RespectIgnoreFiles: true,
		IgnoreFileNames:    []string{".gitignore", ".digestignore"},
		RepositoryMarkers:  []string{".git"},

		MaxTreeEntries:         5000,
		AutoExpandDepth:        1,
		ExcludedDirectoryNames: []string{"node_modules", ".git", "dist", "build", "out", ".venv", "__pycache__"},

		PatternCacheSize:   512,
		MatcherCacheSize:   1024,
		SelectionChunkSize: 400,
		IOConcurrency:      4,

		LogLevel: "info",
		RootDir:  ".",
		Remote: RemoteConfig{
			DialTimeout: 15 * time.Second,
		},
	}
}

// Load reads a YAML configuration file over the defaults.
// A missing file yields the defaults; a malformed one is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromDir loads FileName from dir, falling back to defaults
func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, FileName))
}

// Validate checks option values. Failures are *scanerr.ConfigurationError.
// Pattern syntax is not checked here; bad patterns are reported as warnings
// when the filter compiles them.
func (c *Config) Validate() error {
	invalid := func(key string, value interface{}, reason string) error {
		return &scanerr.ConfigurationError{Role: key, Source: fmt.Sprint(value), Err: errors.New(reason)}
	}

	if c.MaxDepth != nil && *c.MaxDepth < 0 {
		return invalid("max_depth", *c.MaxDepth, "must be >= 0")
	}
	if c.MaxTreeEntries <= 0 {
		return invalid("max_tree_entries", c.MaxTreeEntries, "must be > 0")
	}
	if c.AutoExpandDepth < 0 {
		return invalid("auto_expand_depth", c.AutoExpandDepth, "must be >= 0")
	}
	if c.SelectionChunkSize <= 0 {
		return invalid("selection_chunk_size", c.SelectionChunkSize, "must be > 0")
	}
	if c.IOConcurrency <= 0 {
		return invalid("io_concurrency", c.IOConcurrency, "must be > 0")
	}
	if c.PatternCacheSize < 0 {
		return invalid("pattern_cache_size", c.PatternCacheSize, "must be >= 0")
	}
	if c.MatcherCacheSize < 0 {
		return invalid("matcher_cache_size", c.MatcherCacheSize, "must be >= 0")
	}
	for _, name := range c.IgnoreFileNames {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) {
			return invalid("ignore_file_names", name, "must be a plain file name")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "trace", "info", "warn", "warning", "error", "none":
	default:
		return invalid("log_level", c.LogLevel, "must be one of debug, info, warn, error, none")
	}
	return nil
}

// EffectiveLogLevel folds --verbose and --quiet into the configured level
func (c *Config) EffectiveLogLevel() string {
	switch {
	case c.Verbose:
		return "debug"
	case c.Quiet:
		return "warn"
	default:
		return c.LogLevel
	}
}

// ResolveColors decides whether output to f is colored
func (c *Config) ResolveColors(f *os.File) {
	c.UseColors = !c.NoColor && c.OutputFile == "" && f != nil && isatty.IsTerminal(f.Fd())
}
