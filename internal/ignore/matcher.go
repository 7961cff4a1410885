package ignore

import (
	"context"
	"errors"
	"io/fs"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bethropolis/dir-digest/internal/fsaccess"
	"github.com/bethropolis/dir-digest/internal/pattern"
	"github.com/bethropolis/dir-digest/internal/utils"
)

// New creates and initializes a Cache reading through fsys
func New(fsys fsaccess.FS, compiler *pattern.Compiler, opts ...Option) *Cache {
	c := &Cache{
		fs:        fsys,
		compiler:  compiler,
		logger:    utils.NoopLogger{},
		fileNames: append([]string(nil), DefaultFileNames...),
		markers:   append([]string(nil), DefaultMarkers...),
		capacity:  DefaultCapacity,
	}

	// Apply functional options
	for _, opt := range opts {
		opt(c)
	}

	if c.compiler == nil {
		c.compiler = pattern.NewCompiler(0)
	}
	// lru.New only fails for non-positive sizes, which options reject.
	c.entries, _ = lru.New[string, *entry](c.capacity)

	c.logger.Debug("ignore.New: files=%v markers=%v capacity=%d", c.fileNames, c.markers, c.capacity)
	return c
}

// dirState is what a directory holds right now: its ignore files and whether
// it is a repository root.
type dirState struct {
	stamps []stamp
	marker bool
}

func (c *Cache) probe(ctx context.Context, dir string) (dirState, error) {
	var st dirState
	for _, name := range c.fileNames {
		p := fsaccess.Join(dir, name)
		info, err := c.fs.Stat(ctx, p)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return st, ctxErr
			}
			if !errors.Is(err, fs.ErrNotExist) {
				c.warn("cannot stat ignore file %s: %v", p, err)
			}
			continue
		}
		if info.IsDir() {
			continue
		}
		st.stamps = append(st.stamps, stamp{path: p, modTime: info.ModTime(), size: info.Size()})
	}

	for _, m := range c.markers {
		if _, err := c.fs.Lstat(ctx, fsaccess.Join(dir, m)); err == nil {
			st.marker = true
			break
		} else if ctxErr := ctx.Err(); ctxErr != nil {
			return st, ctxErr
		}
	}
	return st, nil
}

// chain returns the cached entries governing paths inside dir, root to leaf.
// memo scopes directory probes to one call so a batch stats each directory once.
func (c *Cache) chain(ctx context.Context, dir string, memo map[string][]*entry) ([]*entry, error) {
	if ch, ok := memo[dir]; ok {
		return ch, nil
	}

	st, err := c.probe(ctx, dir)
	if err != nil {
		return nil, err
	}

	var parentChain []*entry
	if !st.marker {
		if parent, ok := fsaccess.Parent(dir); ok {
			parentChain, err = c.chain(ctx, parent, memo)
			if err != nil {
				return nil, err
			}
		}
	}

	e, err := c.resolve(ctx, dir, st.stamps)
	if err != nil {
		return nil, err
	}

	ch := make([]*entry, len(parentChain), len(parentChain)+1)
	copy(ch, parentChain)
	if e != nil {
		ch = append(ch, e)
	}
	memo[dir] = ch
	return ch, nil
}

// resolve returns the cached entry for dir when every recorded stamp still
// matches, otherwise it reloads the directory's ignore files.
func (c *Cache) resolve(ctx context.Context, dir string, stamps []stamp) (*entry, error) {
	if len(stamps) == 0 {
		c.entries.Remove(dir)
		return nil, nil
	}
	if cached, ok := c.entries.Get(dir); ok && sameStamps(cached.stamps, stamps) {
		return cached, nil
	}

	e := &entry{dir: dir, stamps: stamps}
	for _, st := range stamps {
		content, err := c.fs.ReadFile(ctx, st.path)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.warn("ignore file %s skipped: %v", st.path, err)
			continue
		}
		c.loads.Add(1)

		for _, finding := range lint(st.path, content) {
			c.warn("%s", finding)
		}

		for _, line := range parseLines(content) {
			m, err := c.compiler.Compile(line.pattern, pattern.RoleIgnore)
			if err != nil {
				c.warn("%s:%d: %v; rule never matches", st.path, line.lineNo, err)
				continue
			}
			e.rules = append(e.rules, &Rule{
				Line:    line.raw,
				Pattern: line.pattern,
				Negated: line.negated,
				Source:  st.path,
				LineNo:  line.lineNo,
				matcher: m,
			})
		}
	}

	c.entries.Add(dir, e)
	c.logger.Debug("ignore: loaded %d rules for %s", len(e.rules), dir)
	return e, nil
}
