package ignore

import (
	"context"
	"path"

	"github.com/bethropolis/dir-digest/internal/fsaccess"
)

// Decide evaluates one absolute path.
func (c *Cache) Decide(ctx context.Context, p string, isDir bool) (Decision, error) {
	res, err := c.DecideBatch(ctx, []Query{{Path: p, IsDir: isDir}})
	if err != nil {
		return Decision{}, err
	}
	return res[0], nil
}

// DecideBatch evaluates many paths, probing and loading each directory's
// ignore files at most once for the whole batch.
func (c *Cache) DecideBatch(ctx context.Context, queries []Query) ([]Decision, error) {
	memo := make(map[string][]*entry)
	out := make([]Decision, len(queries))

	for i, q := range queries {
		p := path.Clean(q.Path)
		dir, ok := fsaccess.Parent(p)
		if !ok {
			continue // the filesystem root is never ignored
		}
		ch, err := c.chain(ctx, dir, memo)
		if err != nil {
			return nil, err
		}
		out[i] = evaluate(ch, p, q.IsDir)
	}
	return out, nil
}

// ShouldIgnore checks if a file or directory should be ignored. Failures are
// logged and treated as not ignored.
func (c *Cache) ShouldIgnore(ctx context.Context, p string, isDir bool) bool {
	if c == nil {
		return false
	}
	d, err := c.Decide(ctx, p, isDir)
	if err != nil {
		c.logger.Warn("ignore.ShouldIgnore: %s: %v", p, err)
		return false
	}
	return d.Ignored
}

// evaluate applies chain root to leaf. Within a directory the last matching
// rule wins; a deeper directory's verdict overwrites a shallower one.
func evaluate(chain []*entry, p string, isDir bool) Decision {
	var d Decision
	for _, e := range chain {
		rel, ok := fsaccess.Rel(e.dir, p)
		if !ok || rel == "" {
			continue
		}
		var hit *Rule
		for _, r := range e.rules {
			if r.matches(rel, isDir) {
				hit = r
			}
		}
		if hit != nil {
			d = Decision{Ignored: !hit.Negated, Rule: hit}
		}
	}
	return d
}
