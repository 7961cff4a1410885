package ignore

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bethropolis/dir-digest/internal/fsaccess"
	"github.com/bethropolis/dir-digest/internal/pattern"
	"github.com/bethropolis/dir-digest/internal/utils"
)

// Rule is one compiled ignore-file line.
type Rule struct {
	// Line is the raw line as written in the file.
	Line string
	// Pattern is the normalized glob handed to the compiler.
	Pattern string
	Negated bool
	// Source is the ignore file the line came from.
	Source string
	LineNo int

	matcher *pattern.Pattern
}

func (r *Rule) String() string {
	return fmt.Sprintf("%s:%d: %s", r.Source, r.LineNo, r.Line)
}

// matches applies the rule to rel (relative to the rule's directory). A rule
// also matches every descendant of a directory it matches.
func (r *Rule) matches(rel string, isDir bool) bool {
	if r.matcher.Match(rel, isDir) {
		return true
	}
	for i := len(rel) - 1; i > 0; i-- {
		if rel[i] == '/' && r.matcher.Match(rel[:i], true) {
			return true
		}
	}
	return false
}

// Decision is the verdict for one path.
type Decision struct {
	Ignored bool
	// Rule is the deciding rule, nil when no rule matched.
	Rule *Rule
}

// Query is one path submitted to DecideBatch.
type Query struct {
	Path  string
	IsDir bool
}

// stamp records one contributing ignore file for invalidation.
type stamp struct {
	path    string
	modTime time.Time
	size    int64
}

func sameStamps(a, b []stamp) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].path != b[i].path || !a[i].modTime.Equal(b[i].modTime) || a[i].size != b[i].size {
			return false
		}
	}
	return true
}

// entry is the cached, merged rule list of one directory.
type entry struct {
	dir    string
	rules  []*Rule
	stamps []stamp
}

// Cache caches compiled ignore rules per directory. A Cache belongs to one
// workspace; it is safe for concurrent use.
type Cache struct {
	fs       fsaccess.FS
	compiler *pattern.Compiler
	logger   utils.Logger

	fileNames []string
	markers   []string
	capacity  int

	entries *lru.Cache[string, *entry]
	loads   atomic.Int64

	mu       sync.Mutex
	warnings []string
}

// Config holds configuration options for the cache
type Config struct {
	FileNames []string
	Markers   []string
	Capacity  int
	Logger    utils.Logger
}

func (c *Cache) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	c.logger.Warn("%s", msg)
	c.mu.Lock()
	c.warnings = append(c.warnings, msg)
	c.mu.Unlock()
}

// TakeWarnings returns and clears the warnings collected since the last call.
func (c *Cache) TakeWarnings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.warnings
	c.warnings = nil
	return out
}

// FileNames returns the configured ignore file names in merge order.
func (c *Cache) FileNames() []string {
	return append([]string(nil), c.fileNames...)
}

// Len returns the number of cached directory entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Loads returns how many ignore files have been parsed so far.
func (c *Cache) Loads() int64 {
	return c.loads.Load()
}

// Purge drops every cached entry.
func (c *Cache) Purge() {
	c.entries.Purge()
}

func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || strings.Contains(n, "/") || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
