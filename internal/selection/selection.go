// Package selection owns the set of files chosen for the digest.
//
// Only file paths are stored; a directory's state is derived from its
// descendants. Every mutation passes through a FIFO lock, so mutations apply
// in submission order. Reads take a snapshot under a read lock and do not
// queue behind mutations.
package selection

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/bethropolis/dir-digest/internal/utils"
	"github.com/bethropolis/dir-digest/internal/walker"
)

// DefaultChunkSize is the number of nodes SelectAll processes between yields.
const DefaultChunkSize = 400

// ErrUnknownPath is returned by Toggle for a path absent from the tree.
var ErrUnknownPath = errors.New("path not in tree")

// DirState is the derived selection state of a directory.
type DirState string

const (
	StateNone    DirState = "none"
	StatePartial DirState = "partial"
	StateAll     DirState = "all"
)

// ProgressFunc receives SelectAll progress as processed and total nodes.
type ProgressFunc func(processed, total int)

// Snapshot is a sorted copy of the selection.
type Snapshot struct {
	TreeID  string   `json:"tree_id"`
	Version uint64   `json:"version"`
	Paths   []string `json:"paths"`
}

// Coordinator manages the selection for one workspace.
type Coordinator struct {
	lock fifoLock

	mu       sync.RWMutex
	tree     *walker.Result
	selected map[string]struct{}
	version  uint64

	chunkSize int
	logger    utils.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithChunkSize sets how many nodes SelectAll handles between yields.
func WithChunkSize(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

func WithLogger(logger utils.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates an empty Coordinator.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		selected:  make(map[string]struct{}),
		chunkSize: DefaultChunkSize,
		logger:    utils.NoopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// commit swaps in a new selection. Callers hold the FIFO lock.
func (c *Coordinator) commit(selected map[string]struct{}) {
	c.mu.Lock()
	c.selected = selected
	c.version++
	c.mu.Unlock()
}

func (c *Coordinator) current() (*walker.Result, map[string]struct{}) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree, c.selected
}

func cloneSet(s map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// SetTree installs a new tree snapshot and drops every selected path that
// is not a file of it. It returns the dropped paths, sorted.
func (c *Coordinator) SetTree(ctx context.Context, tree *walker.Result) ([]string, error) {
	release, err := c.lock.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	_, selected := c.current()
	next := make(map[string]struct{}, len(selected))
	var dropped []string
	for p := range selected {
		if tree.HasFile(p) {
			next[p] = struct{}{}
		} else {
			dropped = append(dropped, p)
		}
	}
	sort.Strings(dropped)

	c.mu.Lock()
	c.tree = tree
	c.selected = next
	c.version++
	c.mu.Unlock()

	if len(dropped) > 0 {
		c.logger.Debug("selection: pruned %d stale paths", len(dropped))
	}
	return dropped, nil
}

// Toggle selects or deselects rel. For a directory it applies to every file
// below it.
func (c *Coordinator) Toggle(ctx context.Context, rel string, selected bool) error {
	release, err := c.lock.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	tree, current := c.current()
	node := tree.Find(rel)
	if node == nil {
		return fmt.Errorf("selection: toggle %q: %w", rel, ErrUnknownPath)
	}

	next := cloneSet(current)
	for _, f := range filesUnder(node) {
		if selected {
			next[f] = struct{}{}
		} else {
			delete(next, f)
		}
	}
	c.commit(next)
	return nil
}

// SetSelection replaces the selection. Paths that are not files of the
// current tree are dropped silently.
func (c *Coordinator) SetSelection(ctx context.Context, paths []string) error {
	release, err := c.lock.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	tree, _ := c.current()
	next := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if tree.HasFile(p) {
			next[p] = struct{}{}
		}
	}
	if dropped := len(paths) - len(next); dropped > 0 {
		c.logger.Debug("selection: ignored %d paths not in the tree", dropped)
	}
	c.commit(next)
	return nil
}

// SelectAll selects every file of the tree. It walks the tree with an
// explicit stack in chunks of the configured size, reporting progress and
// yielding between chunks. Cancellation is observed between chunks and
// leaves the previous selection unchanged.
func (c *Coordinator) SelectAll(ctx context.Context, onProgress ProgressFunc) error {
	release, err := c.lock.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	tree, _ := c.current()
	report := func(processed, total int) {
		if onProgress != nil {
			onProgress(processed, total)
		}
	}

	if tree == nil || tree.Root == nil || len(tree.Root.Children) == 0 {
		report(0, 0)
		c.commit(make(map[string]struct{}))
		return nil
	}

	total := countNodes(tree.Root)
	next := make(map[string]struct{}, len(tree.Files))
	stack := append([]*walker.Node(nil), tree.Root.Children...)
	processed := 0

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Kind == walker.KindFile {
			next[n.RelPath] = struct{}{}
		}
		stack = append(stack, n.Children...)
		processed++

		if processed%c.chunkSize == 0 && len(stack) > 0 {
			report(processed, total)
			runtime.Gosched()
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	report(processed, total)
	c.commit(next)
	return nil
}

// ClearSelection empties the selection.
func (c *Coordinator) ClearSelection(ctx context.Context) error {
	release, err := c.lock.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	c.commit(make(map[string]struct{}))
	return nil
}

// Snapshot returns the selection sorted by path.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	paths := make([]string, 0, len(c.selected))
	for p := range c.selected {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	s := Snapshot{Version: c.version, Paths: paths}
	if c.tree != nil {
		s.TreeID = c.tree.ID
	}
	return s
}

// IsSelected reports whether the file rel is selected.
func (c *Coordinator) IsSelected(rel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.selected[rel]
	return ok
}

// Len returns the number of selected files.
func (c *Coordinator) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.selected)
}

// DirState derives the state of a directory from its files. A directory
// without files is StateNone. For a file it is StateAll or StateNone.
func (c *Coordinator) DirState(rel string) DirState {
	tree, selected := c.current()
	node := tree.Find(rel)
	if node == nil {
		return StateNone
	}
	files := filesUnder(node)
	hit := 0
	for _, f := range files {
		if _, ok := selected[f]; ok {
			hit++
		}
	}
	switch {
	case hit == 0:
		return StateNone
	case hit == len(files):
		return StateAll
	default:
		return StatePartial
	}
}

// filesUnder lists the files at or below n.
func filesUnder(n *walker.Node) []string {
	var out []string
	stack := []*walker.Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.Kind == walker.KindFile {
			out = append(out, cur.RelPath)
			continue
		}
		stack = append(stack, cur.Children...)
	}
	return out
}

func countNodes(root *walker.Node) int {
	total := 0
	stack := append([]*walker.Node(nil), root.Children...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		total++
		stack = append(stack, n.Children...)
	}
	return total
}
