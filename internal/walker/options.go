package walker

import (
	"strings"

	"github.com/bethropolis/dir-digest/internal/utils"
)

// Defaults for BuildOptions.
const (
	DefaultMaxEntries      = 5000
	DefaultAutoExpandDepth = 1
	DefaultConcurrency     = 4
)

// DefaultExcludedDirNames are directory names never entered below the root.
var DefaultExcludedDirNames = []string{"node_modules", ".git", "dist", "build", "out", ".venv", "__pycache__"}

// BuildOptions configures a Builder
type BuildOptions struct {
	Logger utils.Logger
	// MaxEntries is the node budget (the root is not counted).
	MaxEntries      int
	AutoExpandDepth int
	ExcludedDirs    map[string]struct{}
	ShowHidden      bool
	// Concurrency bounds symlink resolution within one directory.
	Concurrency   int
	KeepEmptyDirs bool
	ProgressFn    ProgressCallback
}

// ProgressCallback is a function that receives progress updates
type ProgressCallback func(stats ProgressStats)

// ProgressStats holds statistics about the walk progress
type ProgressStats struct {
	Dirs       int    // directories enumerated so far
	Nodes      int    // nodes added so far
	Skipped    int    // entries pruned so far
	CurrentDir string // relative path of the directory just enumerated
}

// defaultOptions returns the default build options
func defaultOptions() BuildOptions {
	opts := BuildOptions{
		Logger:          utils.NoopLogger{},
		MaxEntries:      DefaultMaxEntries,
		AutoExpandDepth: DefaultAutoExpandDepth,
		Concurrency:     DefaultConcurrency,
	}
	WithExcludedDirs(DefaultExcludedDirNames)(&opts)
	return opts
}

// Option is a functional option for configuring BuildOptions
type Option func(*BuildOptions)

// WithLogger sets a custom logger for the builder
func WithLogger(logger utils.Logger) Option {
	return func(opts *BuildOptions) {
		if logger != nil {
			opts.Logger = logger
		}
	}
}

// WithMaxEntries sets the node budget
func WithMaxEntries(n int) Option {
	return func(opts *BuildOptions) {
		if n > 0 {
			opts.MaxEntries = n
		}
	}
}

// WithAutoExpandDepth sets the depth up to which directories start expanded
func WithAutoExpandDepth(depth int) Option {
	return func(opts *BuildOptions) {
		if depth >= 0 {
			opts.AutoExpandDepth = depth
		}
	}
}

// WithExcludedDirs replaces the excluded directory names
func WithExcludedDirs(names []string) Option {
	return func(opts *BuildOptions) {
		m := make(map[string]struct{}, len(names))
		for _, n := range names {
			n = strings.Trim(strings.TrimSpace(n), "/")
			if n != "" {
				m[n] = struct{}{}
			}
		}
		opts.ExcludedDirs = m
	}
}

// WithShowHidden includes dot entries
func WithShowHidden(enabled bool) Option {
	return func(opts *BuildOptions) {
		opts.ShowHidden = enabled
	}
}

// WithConcurrency sets the per-directory I/O concurrency
func WithConcurrency(n int) Option {
	return func(opts *BuildOptions) {
		if n > 0 {
			opts.Concurrency = n
		}
	}
}

// WithKeepEmptyDirs keeps directories that end up without files
func WithKeepEmptyDirs(enabled bool) Option {
	return func(opts *BuildOptions) {
		opts.KeepEmptyDirs = enabled
	}
}

// WithProgress adds a progress callback function
func WithProgress(fn ProgressCallback) Option {
	return func(o *BuildOptions) {
		o.ProgressFn = fn
	}
}
