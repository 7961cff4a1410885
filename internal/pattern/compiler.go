package pattern

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bethropolis/dir-digest/internal/scanerr"
)

// DefaultCacheSize bounds the number of compiled patterns kept by a Compiler.
const DefaultCacheSize = 512

type cacheKey struct {
	role   Role
	source string
}

// compiled caches failures as well so a bad pattern is reported once per
// compilation rather than re-translated on every evaluation.
type compiled struct {
	pattern *Pattern
	err     error
}

// Compiler compiles patterns and caches results by (role, source) with LRU
// eviction. It is safe for concurrent use.
type Compiler struct {
	cache *lru.Cache[cacheKey, compiled]
}

// NewCompiler creates a Compiler holding at most capacity entries.
// A non-positive capacity uses DefaultCacheSize.
func NewCompiler(capacity int) *Compiler {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	// lru.New only fails for non-positive sizes.
	cache, _ := lru.New[cacheKey, compiled](capacity)
	return &Compiler{cache: cache}
}

// Compile returns the matcher for source in the given role. Invalid syntax
// yields a *scanerr.ConfigurationError naming the role and source.
func (c *Compiler) Compile(source string, role Role) (*Pattern, error) {
	key := cacheKey{role: role, source: source}
	if hit, ok := c.cache.Get(key); ok {
		return hit.pattern, hit.err
	}

	p, err := compileSource(source, role)
	if err != nil {
		err = &scanerr.ConfigurationError{Role: string(role) + " pattern", Source: source, Err: err}
		p = nil
	}
	c.cache.Add(key, compiled{pattern: p, err: err})
	return p, err
}

// CompileAll compiles every source, skipping blanks. Bad patterns are
// returned as errors and left out of the result so they never match.
func (c *Compiler) CompileAll(sources []string, role Role) ([]*Pattern, []error) {
	patterns := make([]*Pattern, 0, len(sources))
	var errs []error
	for _, src := range sources {
		if strings.TrimSpace(src) == "" {
			continue
		}
		p, err := c.Compile(src, role)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		patterns = append(patterns, p)
	}
	return patterns, errs
}

// Len returns the number of cached compilations.
func (c *Compiler) Len() int {
	return c.cache.Len()
}

// Purge drops every cached compilation.
func (c *Compiler) Purge() {
	c.cache.Purge()
}

func compileSource(source string, role Role) (*Pattern, error) {
	if strings.TrimSpace(source) == "" {
		return nil, errEmptyPattern
	}
	if role != RoleIgnore && isRegexSource(source) {
		return compileRegex(source, role)
	}
	return compileGlob(source, role)
}

// MatchAny returns the first pattern matching candidate, or nil.
func MatchAny(patterns []*Pattern, candidate string, isDir bool) *Pattern {
	for _, p := range patterns {
		if p.Match(candidate, isDir) {
			return p
		}
	}
	return nil
}
