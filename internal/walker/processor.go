package walker

import (
	"context"
	"io/fs"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bethropolis/dir-digest/internal/fsaccess"
)

// entry is one directory child after kind resolution.
type entry struct {
	info      fs.FileInfo
	abs       string
	rel       string
	isDir     bool
	symlink   bool
	size      int64
	canonical string
	skip      SkippedReason
}

// resolveEntries turns a directory listing into entries. Followed symlinks
// are resolved concurrently, bounded by the configured concurrency; every
// other entry is classified from its lstat info alone.
func (b *Builder) resolveEntries(ctx context.Context, parent *Node, parentCanonical string, infos []fs.FileInfo) ([]*entry, error) {
	entries := make([]*entry, 0, len(infos))
	follow := b.engine.Options().FollowSymlinks

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)

	for _, info := range infos {
		name := info.Name()
		e := &entry{
			info: info,
			abs:  fsaccess.Join(parent.Path, name),
			rel:  joinRel(parent.RelPath, name),
		}
		entries = append(entries, e)

		if !b.opts.ShowHidden && strings.HasPrefix(name, ".") {
			e.skip = ReasonIgnoredHidden
			continue
		}

		if !fsaccess.IsSymlink(info) {
			e.isDir = info.IsDir()
			if !e.isDir && !info.Mode().IsRegular() {
				e.skip = ReasonNotRegular
				continue
			}
			e.size = info.Size()
			e.canonical = parentCanonical + "/" + name
			continue
		}

		e.symlink = true
		if !follow {
			// left to the filter's symlink stage so the reason is reported
			continue
		}
		g.Go(func() error {
			return b.resolveLink(gctx, e)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, e := range entries {
		if e.skip != "" || !e.isDir {
			continue
		}
		if _, ok := b.opts.ExcludedDirs[e.info.Name()]; ok {
			e.skip = ReasonExcludedDirName
		}
	}
	return entries, nil
}

// resolveLink follows a symlink. Only context errors are returned; a broken
// link is recorded on the entry.
func (b *Builder) resolveLink(ctx context.Context, e *entry) error {
	target, err := b.fs.Stat(ctx, e.abs)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		b.opts.Logger.Debug("walker: broken link %s: %v", e.rel, err)
		e.skip = ReasonBrokenLink
		return nil
	}
	e.isDir = target.IsDir()
	if !e.isDir {
		if !target.Mode().IsRegular() {
			e.skip = ReasonNotRegular
		}
		e.size = target.Size()
		return nil
	}

	canonical, err := b.fs.RealPath(ctx, e.abs)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		e.skip = ReasonBrokenLink
		return nil
	}
	e.canonical = canonical
	return nil
}

func joinRel(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
