package ignore

import "github.com/bethropolis/dir-digest/internal/utils"

// Option functions for configuration
type Option func(*Cache)

// WithFileNames sets the ignore file names read in each directory. Files in
// one directory are merged in this order, so the last name wins a conflict.
func WithFileNames(names []string) Option {
	return func(c *Cache) {
		if cleaned := cleanNames(names); len(cleaned) > 0 {
			c.fileNames = cleaned
		}
	}
}

// WithMarkers sets the entry names that mark a repository root.
func WithMarkers(markers []string) Option {
	return func(c *Cache) {
		if markers != nil {
			c.markers = cleanNames(markers)
		}
	}
}

// WithCapacity bounds the number of cached directories.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

func WithLogger(logger utils.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}
