// Package filter decides whether a workspace path belongs in the digest.
//
// Each path runs through a fixed pipeline (depth, symlink, include, exclude,
// ignore-file) that stops at the first failing stage. Exclude patterns always
// outrank include patterns. An exclude pattern that matches a directory also
// excludes everything below it.
package filter

import (
	"context"
	"fmt"
	"strings"

	"github.com/bethropolis/dir-digest/internal/fsaccess"
	"github.com/bethropolis/dir-digest/internal/ignore"
	"github.com/bethropolis/dir-digest/internal/pattern"
	"github.com/bethropolis/dir-digest/internal/scanerr"
	"github.com/bethropolis/dir-digest/internal/utils"
)

// Engine evaluates paths under one workspace root.
type Engine struct {
	root     string
	fs       fsaccess.FS
	compiler *pattern.Compiler
	ignore   *ignore.Cache
	logger   utils.Logger

	opts    Options
	include []*pattern.Pattern
	exclude []*pattern.Pattern

	patternErrs []error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger utils.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCompiler shares a pattern compiler (and its cache) with the engine.
func WithCompiler(c *pattern.Compiler) Option {
	return func(e *Engine) {
		if c != nil {
			e.compiler = c
		}
	}
}

// New compiles opts for the workspace rooted at root (absolute, slash form).
// A negative MaxDepth is a *scanerr.ConfigurationError. Invalid patterns are
// not fatal: they never match and are reported through PatternErrors and
// Warnings. ignoreCache may be nil when ignore files are not consulted.
func New(root string, fsys fsaccess.FS, ignoreCache *ignore.Cache, opts Options, options ...Option) (*Engine, error) {
	if opts.MaxDepth != nil && *opts.MaxDepth < 0 {
		return nil, &scanerr.ConfigurationError{
			Role:   "maxDepth",
			Source: fmt.Sprint(*opts.MaxDepth),
			Err:    fmt.Errorf("must be zero or greater"),
		}
	}

	e := &Engine{
		root:   strings.TrimSuffix(root, "/"),
		fs:     fsys,
		ignore: ignoreCache,
		logger: utils.NoopLogger{},
		opts:   opts,
	}
	for _, opt := range options {
		opt(e)
	}
	if e.compiler == nil {
		e.compiler = pattern.NewCompiler(0)
	}

	var errs []error
	e.include, errs = e.compiler.CompileAll(opts.IncludePatterns, pattern.RoleInclude)
	e.patternErrs = append(e.patternErrs, errs...)
	e.exclude, errs = e.compiler.CompileAll(opts.ExcludePatterns, pattern.RoleExclude)
	e.patternErrs = append(e.patternErrs, errs...)

	for _, err := range e.patternErrs {
		e.logger.Warn("filter: %v; pattern never matches", err)
	}

	e.logger.Debug("filter.New: root=%s include=%d exclude=%d gitignore=%v followSymlinks=%v",
		e.root, len(e.include), len(e.exclude), opts.UseGitignore, opts.FollowSymlinks)
	return e, nil
}

// Root returns the workspace root.
func (e *Engine) Root() string {
	return e.root
}

// Options returns the options the engine was built from.
func (e *Engine) Options() Options {
	return e.opts
}

// PatternErrors returns the compile errors of configured patterns.
func (e *Engine) PatternErrors() []error {
	return append([]error(nil), e.patternErrs...)
}

// HasInclude reports whether any include pattern compiled.
func (e *Engine) HasInclude() bool {
	return len(e.include) > 0
}

// Warnings describes every pattern that failed to compile. They are
// reported on each call since the patterns stay broken until reconfigured.
func (e *Engine) Warnings() []string {
	out := make([]string, 0, len(e.patternErrs))
	for _, err := range e.patternErrs {
		out = append(out, fmt.Sprintf("%v; pattern never matches", err))
	}
	return out
}

// TakeWarnings returns and clears the ignore cache's runtime warnings.
func (e *Engine) TakeWarnings() []string {
	if e.ignore == nil {
		return nil
	}
	return e.ignore.TakeWarnings()
}

// Rel returns the workspace-relative form of an absolute path.
func (e *Engine) Rel(p string) (string, error) {
	rel, ok := fsaccess.Rel(e.root, p)
	if !ok {
		return "", fmt.Errorf("filter: %s: %w", p, scanerr.ErrOutsideWorkspace)
	}
	return rel, nil
}

// Evaluate runs the pipeline for one absolute path.
func (e *Engine) Evaluate(ctx context.Context, p string, isDir bool) (Decision, error) {
	res, err := e.EvaluateBatch(ctx, []Candidate{{Path: p, IsDir: isDir}})
	if err != nil {
		return Decision{}, err
	}
	return res[0], nil
}

// Explain evaluates p like Evaluate but keeps running the stages after the
// deciding one so the trace shows every stage's own verdict. The returned
// Included and Reason are the same as Evaluate's.
func (e *Engine) Explain(ctx context.Context, p string, isDir bool) (Decision, error) {
	rel, err := e.Rel(p)
	if err != nil {
		return Decision{}, err
	}
	ev := &evaluation{engine: e, ctx: ctx, lstats: map[string]bool{}}

	d := Decision{Path: rel, IsDir: isDir, Included: true, Reason: ReasonIncluded}
	for _, st := range stageOrder {
		var res StageResult
		var rule *ignore.Rule
		switch st {
		case StageIgnore:
			res, rule, err = e.ignoreStage(ctx, p, isDir)
		default:
			res, err = ev.run(st, p, rel, isDir, nil, false)
		}
		if err != nil {
			return Decision{}, err
		}
		if rule != nil {
			d.IgnoreRule = rule
		}
		d.Stages = append(d.Stages, res)
		if res.Outcome == OutcomeFailed && d.Included {
			d.Included = false
			d.Reason = reasonFor(st)
			d.MatchedPattern = res.Pattern
		}
	}
	return d, nil
}

// EvaluateBatch runs the pipeline for many paths. Ignore-file decisions for
// every path that reaches that stage are fetched in one batch and symlink
// checks are cached for the duration of the call.
func (e *Engine) EvaluateBatch(ctx context.Context, cands []Candidate) ([]Decision, error) {
	return e.evaluateBatch(ctx, cands, false)
}

// PruneBatch evaluates directories for tree pruning. It runs every stage but
// include, which is a file-level filter: a directory like "src" must be
// entered to reach "src/**/*.ts".
func (e *Engine) PruneBatch(ctx context.Context, cands []Candidate) ([]Decision, error) {
	return e.evaluateBatch(ctx, cands, true)
}

func (e *Engine) evaluateBatch(ctx context.Context, cands []Candidate, prune bool) ([]Decision, error) {
	ev := &evaluation{engine: e, ctx: ctx, lstats: map[string]bool{}}
	out := make([]Decision, len(cands))

	var pending []int
	var queries []ignore.Query

	for i, c := range cands {
		rel, err := e.Rel(c.Path)
		if err != nil {
			return nil, err
		}
		d := Decision{Path: rel, IsDir: c.IsDir, Included: true, Reason: ReasonIncluded}

		failed := false
		for _, st := range stageOrder[:len(stageOrder)-1] {
			res, err := ev.run(st, c.Path, rel, c.IsDir, c.Info, prune)
			if err != nil {
				return nil, err
			}
			d.Stages = append(d.Stages, res)
			if res.Outcome == OutcomeFailed {
				d.Included = false
				d.Reason = reasonFor(st)
				d.MatchedPattern = res.Pattern
				failed = true
				break
			}
		}
		out[i] = d
		if failed {
			continue
		}

		if e.ignore == nil || !e.opts.UseGitignore || rel == "" {
			out[i].Stages = append(out[i].Stages, StageResult{Stage: StageIgnore, Outcome: OutcomeSkipped})
			continue
		}
		pending = append(pending, i)
		queries = append(queries, ignore.Query{Path: c.Path, IsDir: c.IsDir})
	}

	if len(queries) == 0 {
		return out, nil
	}
	verdicts, err := e.ignore.DecideBatch(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("filter: ignore files: %w", err)
	}
	for k, i := range pending {
		res, rule := ignoreResult(verdicts[k])
		out[i].Stages = append(out[i].Stages, res)
		out[i].IgnoreRule = rule
		if res.Outcome == OutcomeFailed {
			out[i].Included = false
			out[i].Reason = ReasonGitignored
			out[i].MatchedPattern = res.Pattern
		}
	}
	return out, nil
}

func (e *Engine) ignoreStage(ctx context.Context, p string, isDir bool) (StageResult, *ignore.Rule, error) {
	rel, _ := fsaccess.Rel(e.root, p)
	if e.ignore == nil || !e.opts.UseGitignore || rel == "" {
		return StageResult{Stage: StageIgnore, Outcome: OutcomeSkipped}, nil, nil
	}
	d, err := e.ignore.Decide(ctx, p, isDir)
	if err != nil {
		return StageResult{}, nil, fmt.Errorf("filter: ignore files: %w", err)
	}
	res, rule := ignoreResult(d)
	return res, rule, nil
}

func ignoreResult(d ignore.Decision) (StageResult, *ignore.Rule) {
	res := StageResult{Stage: StageIgnore, Outcome: OutcomePassed}
	if d.Rule == nil {
		return res, nil
	}
	res.Pattern = d.Rule.Line
	res.Detail = d.Rule.String()
	if d.Ignored {
		res.Outcome = OutcomeFailed
	}
	return res, d.Rule
}

func reasonFor(st Stage) Reason {
	switch st {
	case StageDepth:
		return ReasonDepthLimit
	case StageSymlink:
		return ReasonSymlinkSkipped
	case StageIgnore:
		return ReasonGitignored
	default:
		return ReasonExcluded
	}
}
