// Package ignore evaluates hierarchical ignore files.
//
// Ignore files are collected from the directory containing a path up to the
// nearest repository marker (or the filesystem root) and applied root to leaf.
// Each directory's merged rules use last-match-wins, and the deepest directory
// with a matching rule decides. Parsed rules are cached per directory and
// revalidated lazily against the ignore files' modification times.
package ignore

import (
	"github.com/bethropolis/dir-digest/internal/fsaccess"
	"github.com/bethropolis/dir-digest/internal/pattern"
)

// DefaultFileNames are the ignore files read in every directory, in merge order.
var DefaultFileNames = []string{".gitignore", ".digestignore"}

// DefaultMarkers stop the upward ignore-file search.
var DefaultMarkers = []string{".git"}

// DefaultCapacity bounds the number of cached directory entries.
const DefaultCapacity = 1024

// NewDefaultCache creates a Cache with default file names, markers and capacity.
func NewDefaultCache(fsys fsaccess.FS) *Cache {
	return New(fsys, pattern.NewCompiler(0))
}

// NewFromConfig creates a Cache from a Config struct
func NewFromConfig(fsys fsaccess.FS, compiler *pattern.Compiler, cfg Config) *Cache {
	options := []Option{
		WithFileNames(cfg.FileNames),
		WithMarkers(cfg.Markers),
		WithCapacity(cfg.Capacity),
	}
	if cfg.Logger != nil {
		options = append(options, WithLogger(cfg.Logger))
	}
	return New(fsys, compiler, options...)
}
