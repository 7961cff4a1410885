// Package workspace ties the engine together for one workspace root: it owns
// the caches, the current tree snapshot, expansion state and the selection.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/bethropolis/dir-digest/internal/config"
	"github.com/bethropolis/dir-digest/internal/filter"
	"github.com/bethropolis/dir-digest/internal/fsaccess"
	"github.com/bethropolis/dir-digest/internal/ignore"
	"github.com/bethropolis/dir-digest/internal/pattern"
	"github.com/bethropolis/dir-digest/internal/scanerr"
	"github.com/bethropolis/dir-digest/internal/selection"
	"github.com/bethropolis/dir-digest/internal/utils"
	"github.com/bethropolis/dir-digest/internal/walker"
)

// ErrNotDirectory is returned by SetExpanded for a path that is not a
// directory of the current tree.
var ErrNotDirectory = errors.New("not a directory in the current tree")

// Workspace is the single owner of one workspace's engine state.
type Workspace struct {
	root      string
	fs        fsaccess.FS
	logger    utils.Logger
	progress  walker.ProgressCallback
	selection *selection.Coordinator

	// buildMu serializes rebuilds and reconfiguration.
	buildMu sync.Mutex

	mu       sync.RWMutex
	cfg      *config.Config
	compiler *pattern.Compiler
	ignore   *ignore.Cache
	engine   *filter.Engine
	builder  *walker.Builder
	tree     *walker.Result
	expanded map[string]bool
	lastErr  error
}

// Option configures a Workspace.
type Option func(*Workspace)

func WithLogger(logger utils.Logger) Option {
	return func(w *Workspace) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithProgress reports tree build progress.
func WithProgress(fn walker.ProgressCallback) Option {
	return func(w *Workspace) {
		w.progress = fn
	}
}

// New creates a workspace rooted at root (absolute, slash form) reading
// through fsys. No filesystem access happens until Rebuild.
func New(root string, fsys fsaccess.FS, cfg *config.Config, opts ...Option) (*Workspace, error) {
	w := &Workspace{
		root:     strings.TrimSuffix(root, "/"),
		fs:       fsys,
		logger:   utils.NoopLogger{},
		expanded: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.root == "" {
		w.root = "/"
	}

	if err := w.configure(cfg); err != nil {
		return nil, err
	}
	w.selection = selection.New(
		selection.WithChunkSize(cfg.SelectionChunkSize),
		selection.WithLogger(utils.WithComponent(w.logger, "selection")),
	)
	return w, nil
}

// configure builds the engine components for cfg and swaps them in.
func (w *Workspace) configure(cfg *config.Config) error {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	compiler := pattern.NewCompiler(cfg.PatternCacheSize)
	var cache *ignore.Cache
	if cfg.RespectIgnoreFiles {
		cache = ignore.NewFromConfig(w.fs, compiler, ignore.Config{
			FileNames: cfg.IgnoreFileNames,
			Markers:   cfg.RepositoryMarkers,
			Capacity:  cfg.MatcherCacheSize,
			Logger:    utils.WithComponent(w.logger, "ignore"),
		})
	}

	engine, err := filter.New(w.root, w.fs, cache, filter.Options{
		IncludePatterns: cfg.IncludePatterns,
		ExcludePatterns: cfg.ExcludePatterns,
		FollowSymlinks:  cfg.FollowSymlinks,
		UseGitignore:    cfg.RespectIgnoreFiles,
		MaxDepth:        cfg.MaxDepth,
	}, filter.WithCompiler(compiler), filter.WithLogger(utils.WithComponent(w.logger, "filter")))
	if err != nil {
		return err
	}

	builder := walker.New(w.fs, engine,
		walker.WithLogger(w.logger),
		walker.WithMaxEntries(cfg.MaxTreeEntries),
		walker.WithAutoExpandDepth(cfg.AutoExpandDepth),
		walker.WithExcludedDirs(cfg.ExcludedDirectoryNames),
		walker.WithShowHidden(cfg.ShowHidden),
		walker.WithConcurrency(cfg.IOConcurrency),
		walker.WithKeepEmptyDirs(cfg.KeepEmptyDirs),
		walker.WithProgress(w.progress),
	)

	w.mu.Lock()
	w.cfg = cfg
	w.compiler = compiler
	w.ignore = cache
	w.engine = engine
	w.builder = builder
	w.mu.Unlock()
	return nil
}

// Root returns the workspace root.
func (w *Workspace) Root() string {
	return w.root
}

// Config returns the active configuration.
func (w *Workspace) Config() *config.Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg
}

// Selection returns the selection coordinator.
func (w *Workspace) Selection() *selection.Coordinator {
	return w.selection
}

// Tree returns the last successfully built tree, or nil.
func (w *Workspace) Tree() *walker.Result {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tree
}

// LastError returns the error of the most recent rebuild, nil after a
// successful one.
func (w *Workspace) LastError() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastErr
}

// Rebuild walks the workspace and installs the new tree. Selected paths
// missing from the new tree are dropped. On failure the previous tree and
// selection stay in place and a *scanerr.ScanError is returned.
func (w *Workspace) Rebuild(ctx context.Context) (*walker.Result, error) {
	w.buildMu.Lock()
	defer w.buildMu.Unlock()
	return w.rebuild(ctx)
}

func (w *Workspace) rebuild(ctx context.Context) (*walker.Result, error) {
	w.mu.RLock()
	builder := w.builder
	expanded := make(map[string]bool, len(w.expanded))
	for k, v := range w.expanded {
		expanded[k] = v
	}
	w.mu.RUnlock()

	res, err := builder.Build(ctx, expanded)
	if err == nil {
		var dropped []string
		dropped, err = w.selection.SetTree(ctx, res)
		if len(dropped) > 0 {
			w.logger.Debug("workspace: dropped %d selected paths no longer in the tree", len(dropped))
		}
	}
	if err != nil {
		scanErr := &scanerr.ScanError{Msg: "rebuild of " + w.root, Err: err}
		w.mu.Lock()
		w.lastErr = scanErr
		w.mu.Unlock()
		w.logger.Error("workspace: %v", scanErr)
		return nil, scanErr
	}

	w.mu.Lock()
	w.tree = res
	w.expanded = res.ExpansionState()
	w.lastErr = nil
	w.mu.Unlock()

	w.logger.Info("Tree built: %d entries, %d files in %v", res.NodeCount, len(res.Files), res.Duration)
	return res, nil
}

// Reconfigure applies a new configuration and rebuilds. An invalid
// configuration is rejected and the current one stays active.
func (w *Workspace) Reconfigure(ctx context.Context, cfg *config.Config) (*walker.Result, error) {
	w.buildMu.Lock()
	defer w.buildMu.Unlock()

	if err := w.configure(cfg); err != nil {
		return nil, err
	}
	return w.rebuild(ctx)
}

// SetExpanded records the expansion state of a directory. The state survives
// rebuilds for directories deeper than the auto-expand depth.
func (w *Workspace) SetExpanded(rel string, expanded bool) error {
	rel = pattern.NormalizePath(rel)

	w.mu.Lock()
	defer w.mu.Unlock()
	n := w.tree.Find(rel)
	if n == nil || !n.IsDir() {
		return fmt.Errorf("workspace: %q: %w", rel, ErrNotDirectory)
	}
	n.Expanded = expanded
	w.expanded[rel] = expanded
	return nil
}

// abs resolves a workspace-relative path.
func (w *Workspace) abs(rel string) string {
	rel = pattern.NormalizePath(rel)
	if rel == "" {
		return w.root
	}
	return fsaccess.Join(w.root, rel)
}

// Evaluate runs the filter for a workspace-relative path.
func (w *Workspace) Evaluate(ctx context.Context, rel string, isDir bool) (filter.Decision, error) {
	w.mu.RLock()
	engine := w.engine
	w.mu.RUnlock()
	return engine.Evaluate(ctx, w.abs(rel), isDir)
}

// Explain traces the filter for a workspace-relative path. Whether the path
// is a directory is read from the filesystem; a missing path is treated as
// a file.
func (w *Workspace) Explain(ctx context.Context, rel string) (filter.Decision, error) {
	w.mu.RLock()
	engine := w.engine
	w.mu.RUnlock()

	p := w.abs(rel)
	isDir := false
	info, err := w.fs.Lstat(ctx, p)
	switch {
	case err == nil:
		isDir = info.IsDir()
	case errors.Is(err, fs.ErrNotExist):
	case ctx.Err() != nil:
		return filter.Decision{}, ctx.Err()
	default:
		w.logger.Debug("workspace: explain %s: %v", rel, err)
	}

	d, err := engine.Explain(ctx, p, isDir)
	if err != nil {
		return filter.Decision{}, err
	}
	for _, warning := range engine.TakeWarnings() {
		w.logger.Warn("%s", warning)
	}
	return d, nil
}

// CacheStats reports cache occupancy for diagnostics.
type CacheStats struct {
	Patterns    int   `json:"patterns"`
	Directories int   `json:"directories"`
	IgnoreLoads int64 `json:"ignore_loads"`
}

// CacheStats returns the current cache occupancy.
func (w *Workspace) CacheStats() CacheStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s := CacheStats{Patterns: w.compiler.Len()}
	if w.ignore != nil {
		s.Directories = w.ignore.Len()
		s.IgnoreLoads = w.ignore.Loads()
	}
	return s
}
