// Package walker builds the workspace tree under a node budget.
package walker

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes files from directories.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// Node is one entry of the workspace tree.
type Node struct {
	Path     string  `json:"path"`
	RelPath  string  `json:"rel_path"`
	Name     string  `json:"name"`
	Kind     Kind    `json:"kind"`
	Size     int64   `json:"size,omitempty"`
	Expanded bool    `json:"expanded,omitempty"`
	Children []*Node `json:"children,omitempty"`
	// Placeholder marks a directory whose children were not enumerated
	// because the node budget ran out.
	Placeholder bool `json:"placeholder,omitempty"`
	// Symlink is set for entries reached through a followed symbolic link.
	Symlink bool `json:"symlink,omitempty"`
}

// IsDir reports whether n is a directory.
func (n *Node) IsDir() bool {
	return n.Kind == KindDirectory
}

// Result is one tree snapshot.
type Result struct {
	// ID identifies the snapshot; every build gets a new one.
	ID   string `json:"id"`
	Root *Node  `json:"root"`
	// Files holds the relative paths of every file node, sorted.
	Files     []string      `json:"files"`
	NodeCount int           `json:"node_count"`
	Truncated bool          `json:"truncated"`
	Warnings  []string      `json:"warnings,omitempty"`
	Skipped   []SkippedItem `json:"skipped,omitempty"`
	Duration  time.Duration `json:"duration"`

	index map[string]*Node
}

// NewResult wraps an already built tree in a Result with a fresh ID.
// RelPath must be set on every node.
func NewResult(root *Node) *Result {
	r := &Result{ID: uuid.NewString(), Root: root}
	r.reindex()
	if len(r.index) > 0 {
		r.NodeCount = len(r.index) - 1
	}
	return r
}

// Find returns the node at a workspace-relative path ("" is the root).
func (r *Result) Find(rel string) *Node {
	if r == nil {
		return nil
	}
	return r.index[rel]
}

// HasFile reports whether rel is a file node of the snapshot.
func (r *Result) HasFile(rel string) bool {
	n := r.Find(rel)
	return n != nil && n.Kind == KindFile
}

// ExpansionState returns the expanded flag of every directory in the tree.
func (r *Result) ExpansionState() map[string]bool {
	out := make(map[string]bool)
	if r == nil {
		return out
	}
	for rel, n := range r.index {
		if n.IsDir() && rel != "" {
			out[rel] = n.Expanded
		}
	}
	return out
}

// reindex rebuilds the lookup table and file list from the tree.
func (r *Result) reindex() {
	r.index = make(map[string]*Node)
	r.Files = r.Files[:0]
	if r.Root == nil {
		return
	}
	stack := []*Node{r.Root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		r.index[n.RelPath] = n
		if n.Kind == KindFile {
			r.Files = append(r.Files, n.RelPath)
		}
		stack = append(stack, n.Children...)
	}
	sort.Strings(r.Files)
}

// SkippedReason clarifies why a file/directory is not in the tree.
type SkippedReason string

const (
	ReasonIgnoredHidden   SkippedReason = "Ignored (Hidden Rule)"
	ReasonIgnoredRule     SkippedReason = "Ignored (Gitignore Rule)"
	ReasonExcludedDirName SkippedReason = "Excluded (Directory Name)"
	ReasonFiltered        SkippedReason = "Filtered (Include/Exclude Pattern)"
	ReasonDepthLimit      SkippedReason = "Skipped (Depth Limit)"
	ReasonSymlink         SkippedReason = "Skipped (Symbolic Link)"
	ReasonSymlinkCycle    SkippedReason = "Skipped (Symbolic Link Cycle)"
	ReasonBrokenLink      SkippedReason = "Skipped (Broken Symbolic Link)"
	ReasonNotRegular      SkippedReason = "Skipped (Not a Regular File)"
	ReasonUnreadable      SkippedReason = "Skipped (Unreadable)"
)

// SkippedItem holds information about a skipped path.
type SkippedItem struct {
	Path   string        `json:"path"`
	Reason SkippedReason `json:"reason"`
	IsDir  bool          `json:"is_dir"`
	// Pattern is the deciding pattern or ignore line, when there is one.
	Pattern string `json:"pattern,omitempty"`
}

// SkippedTracker collects skipped items from concurrent workers.
type SkippedTracker struct {
	items []SkippedItem
	mutex sync.Mutex
}

// NewSkippedTracker creates a new SkippedTracker
func NewSkippedTracker(capacity int) *SkippedTracker {
	return &SkippedTracker{
		items: make([]SkippedItem, 0, capacity),
	}
}

// Track adds a skipped item to the tracker
func (st *SkippedTracker) Track(path string, reason SkippedReason, isDir bool, pattern string) {
	st.mutex.Lock()
	defer st.mutex.Unlock()
	st.items = append(st.items, SkippedItem{Path: path, Reason: reason, IsDir: isDir, Pattern: pattern})
}

// Len returns the number of tracked items.
func (st *SkippedTracker) Len() int {
	st.mutex.Lock()
	defer st.mutex.Unlock()
	return len(st.items)
}

// Items returns the tracked items sorted by path.
func (st *SkippedTracker) Items() []SkippedItem {
	st.mutex.Lock()
	defer st.mutex.Unlock()
	out := append([]SkippedItem(nil), st.items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
