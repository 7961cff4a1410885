package walker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/maruel/natural"

	"github.com/bethropolis/dir-digest/internal/filter"
	"github.com/bethropolis/dir-digest/internal/fsaccess"
	"github.com/bethropolis/dir-digest/internal/scanerr"
)

// Builder walks a workspace and produces tree snapshots. The walk is
// depth-first across directories and handles one directory's children at a
// time; every directory's children are filtered as one batch.
type Builder struct {
	fs     fsaccess.FS
	engine *filter.Engine
	opts   BuildOptions
}

// New creates a Builder for the engine's workspace root.
func New(fsys fsaccess.FS, engine *filter.Engine, opts ...Option) *Builder {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Builder{fs: fsys, engine: engine, opts: options}
}

// build is the state of one Build call.
type build struct {
	result   *Result
	expanded map[string]bool
	tracker  *SkippedTracker
	visited  map[string]bool
	dirs     int
	warned   bool
}

// Build walks the workspace. expanded carries the previous expansion state
// keyed by relative directory path; it may be nil.
//
// Unreadable directories yield empty children and a warning. Only context
// cancellation and an unusable root are returned as errors.
func (b *Builder) Build(ctx context.Context, expanded map[string]bool) (*Result, error) {
	start := time.Now()
	rootPath := b.engine.Root()

	info, err := b.fs.Stat(ctx, rootPath)
	if err != nil {
		return nil, fmt.Errorf("walker: root %s: %w", rootPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("walker: root %s is not a directory", rootPath)
	}

	canonical, err := b.fs.RealPath(ctx, rootPath)
	if err != nil {
		canonical = rootPath
	}

	st := &build{
		result: &Result{
			ID:   uuid.NewString(),
			Root: &Node{Path: rootPath, Name: info.Name(), Kind: KindDirectory, Expanded: true},
		},
		expanded: expanded,
		tracker:  NewSkippedTracker(64),
		visited:  map[string]bool{canonical: true},
	}

	b.opts.Logger.Debug("walker.Build started. Root: %s, budget: %d", rootPath, b.opts.MaxEntries)

	if err := b.walkDir(ctx, st, st.result.Root, canonical, 0); err != nil {
		return nil, err
	}
	if !b.opts.KeepEmptyDirs {
		st.result.NodeCount -= pruneEmpty(st.result.Root)
	}

	res := st.result
	res.reindex()
	res.Skipped = st.tracker.Items()
	res.Warnings = append(res.Warnings, b.engine.Warnings()...)
	res.Warnings = append(res.Warnings, b.engine.TakeWarnings()...)
	if len(res.Files) == 0 && b.engine.HasInclude() {
		res.Warnings = append(res.Warnings, "no files matched include patterns")
	}
	res.Duration = time.Since(start)

	b.opts.Logger.Debug("walker.Build finished in %s: %d nodes, %d files, %d skipped, truncated=%v",
		res.Duration, res.NodeCount, len(res.Files), len(res.Skipped), res.Truncated)
	return res, nil
}

func (b *Builder) walkDir(ctx context.Context, st *build, dir *Node, canonical string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	infos, err := b.fs.ReadDir(ctx, dir.Path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		b.opts.Logger.Warn("walker: %v", err)
		st.result.Warnings = append(st.result.Warnings, fmt.Sprintf("cannot read directory %s: %v", displayPath(dir), err))
		if dir.RelPath != "" {
			st.tracker.Track(dir.RelPath, ReasonUnreadable, true, "")
		}
		return nil
	}
	st.dirs++

	entries, err := b.resolveEntries(ctx, dir, canonical, infos)
	if err != nil {
		return err
	}
	children, subdirs, err := b.filterEntries(ctx, st, entries, depth+1)
	if err != nil {
		return err
	}

	if st.result.NodeCount+len(children) > b.opts.MaxEntries {
		b.truncate(st, dir)
		return nil
	}
	st.result.NodeCount += len(children)
	dir.Children = children

	if b.opts.ProgressFn != nil {
		b.opts.ProgressFn(ProgressStats{
			Dirs:       st.dirs,
			Nodes:      st.result.NodeCount,
			Skipped:    st.tracker.Len(),
			CurrentDir: dir.RelPath,
		})
	}

	for _, child := range children {
		if !child.IsDir() {
			continue
		}
		if st.result.Truncated {
			child.Placeholder = true
			continue
		}
		if err := b.walkDir(ctx, st, child, subdirs[child], depth+1); err != nil {
			return err
		}
	}
	return nil
}

// filterEntries runs the filter over resolved entries and returns the nodes
// to add, sorted, plus the canonical path of each directory node.
func (b *Builder) filterEntries(ctx context.Context, st *build, entries []*entry, depth int) ([]*Node, map[*Node]string, error) {
	var files, dirs []filter.Candidate
	var fileEntries, dirEntries []*entry

	for _, e := range entries {
		if e.skip != "" {
			st.tracker.Track(e.rel, e.skip, e.isDir, "")
			continue
		}
		if e.isDir && e.symlink && st.visited[e.canonical] {
			st.tracker.Track(e.rel, ReasonSymlinkCycle, true, "")
			continue
		}
		c := filter.Candidate{Path: e.abs, IsDir: e.isDir, Info: e.info}
		if e.isDir {
			dirs = append(dirs, c)
			dirEntries = append(dirEntries, e)
		} else {
			files = append(files, c)
			fileEntries = append(fileEntries, e)
		}
	}

	fileDecisions, err := b.engine.EvaluateBatch(ctx, files)
	if err != nil {
		return nil, nil, err
	}
	dirDecisions, err := b.engine.PruneBatch(ctx, dirs)
	if err != nil {
		return nil, nil, err
	}

	nodes := make([]*Node, 0, len(files)+len(dirs))
	subdirs := make(map[*Node]string, len(dirs))

	for i, d := range dirDecisions {
		e := dirEntries[i]
		if !d.Included {
			st.tracker.Track(e.rel, skippedReason(d.Reason), true, d.MatchedPattern)
			continue
		}
		n := &Node{
			Path:     e.abs,
			RelPath:  e.rel,
			Name:     e.info.Name(),
			Kind:     KindDirectory,
			Expanded: st.expansion(e.rel, depth, b.opts.AutoExpandDepth),
			Symlink:  e.symlink,
		}
		st.visited[e.canonical] = true
		subdirs[n] = e.canonical
		nodes = append(nodes, n)
	}
	for i, d := range fileDecisions {
		e := fileEntries[i]
		if !d.Included {
			st.tracker.Track(e.rel, skippedReason(d.Reason), false, d.MatchedPattern)
			continue
		}
		nodes = append(nodes, &Node{
			Path:    e.abs,
			RelPath: e.rel,
			Name:    e.info.Name(),
			Kind:    KindFile,
			Size:    e.size,
			Symlink: e.symlink,
		})
	}

	sortNodes(nodes)
	return nodes, subdirs, nil
}

// truncate stops the walk at dir. It is called at most once per build.
func (b *Builder) truncate(st *build, dir *Node) {
	dir.Placeholder = true
	st.result.Truncated = true
	if st.warned {
		return
	}
	st.warned = true
	msg := fmt.Sprintf("tree truncated after %d entries (%v)", st.result.NodeCount, scanerr.ErrCapacityExceeded)
	b.opts.Logger.Warn("walker: %s", msg)
	st.result.Warnings = append(st.result.Warnings, msg)
}

// expansion derives a directory's expanded flag. Directories within the
// auto-expand depth are expanded; deeper ones keep their previous state.
func (st *build) expansion(rel string, depth, autoExpand int) bool {
	if depth <= autoExpand {
		return true
	}
	return st.expanded[rel]
}

// pruneEmpty removes directories that hold no files at any depth and returns
// how many nodes were removed. Placeholders are kept since their content is
// unknown.
func pruneEmpty(dir *Node) int {
	removed := 0
	kept := dir.Children[:0]
	for _, child := range dir.Children {
		if child.IsDir() {
			removed += pruneEmpty(child)
			if len(child.Children) == 0 && !child.Placeholder {
				removed++
				continue
			}
		}
		kept = append(kept, child)
	}
	dir.Children = kept
	return removed
}

// sortNodes orders directories first, then natural name order.
func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		return natural.Less(a.Name, b.Name)
	})
}

func skippedReason(r filter.Reason) SkippedReason {
	switch r {
	case filter.ReasonGitignored:
		return ReasonIgnoredRule
	case filter.ReasonDepthLimit:
		return ReasonDepthLimit
	case filter.ReasonSymlinkSkipped:
		return ReasonSymlink
	default:
		return ReasonFiltered
	}
}

func displayPath(n *Node) string {
	if n.RelPath == "" {
		return "."
	}
	return n.RelPath
}
