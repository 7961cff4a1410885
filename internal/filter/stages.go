package filter

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"github.com/bethropolis/dir-digest/internal/fsaccess"
	"github.com/bethropolis/dir-digest/internal/pattern"
)

// evaluation carries per-call state, notably the symlink memo.
type evaluation struct {
	engine *Engine
	ctx    context.Context
	lstats map[string]bool
}

func (ev *evaluation) run(st Stage, abs, rel string, isDir bool, info fs.FileInfo, prune bool) (StageResult, error) {
	e := ev.engine
	switch st {
	case StageDepth:
		return e.depthStage(rel), nil
	case StageSymlink:
		return ev.symlinkStage(abs, info)
	case StageInclude:
		if prune {
			return StageResult{Stage: StageInclude, Outcome: OutcomeSkipped, Detail: "not applied to directories while walking"}, nil
		}
		return e.includeStage(rel, isDir), nil
	case StageExclude:
		return e.excludeStage(rel, isDir), nil
	}
	return StageResult{}, fmt.Errorf("filter: unknown stage %q", st)
}

// depthStage rejects paths with more segments than MaxDepth.
func (e *Engine) depthStage(rel string) StageResult {
	if e.opts.MaxDepth == nil {
		return StageResult{Stage: StageDepth, Outcome: OutcomeSkipped}
	}
	depth := Segments(rel)
	if depth > *e.opts.MaxDepth {
		return StageResult{
			Stage:   StageDepth,
			Outcome: OutcomeFailed,
			Detail:  fmt.Sprintf("depth %d exceeds max depth %d", depth, *e.opts.MaxDepth),
		}
	}
	return StageResult{Stage: StageDepth, Outcome: OutcomePassed}
}

func (ev *evaluation) symlinkStage(abs string, info fs.FileInfo) (StageResult, error) {
	e := ev.engine
	if e.opts.FollowSymlinks {
		return StageResult{Stage: StageSymlink, Outcome: OutcomeSkipped}, nil
	}

	link, ok := ev.lstats[abs]
	if !ok {
		if info == nil {
			var err error
			info, err = e.fs.Lstat(ev.ctx, abs)
			if err != nil {
				if ctxErr := ev.ctx.Err(); ctxErr != nil {
					return StageResult{}, ctxErr
				}
				// a path that cannot be stat'ed is not a symlink as far as we know
				e.logger.Debug("filter: lstat %s: %v", abs, err)
			}
		}
		link = fsaccess.IsSymlink(info)
		ev.lstats[abs] = link
	}

	if link {
		return StageResult{Stage: StageSymlink, Outcome: OutcomeFailed, Detail: "symbolic link and followSymlinks is off"}, nil
	}
	return StageResult{Stage: StageSymlink, Outcome: OutcomePassed}, nil
}

func (e *Engine) includeStage(rel string, isDir bool) StageResult {
	if len(e.include) == 0 {
		return StageResult{Stage: StageInclude, Outcome: OutcomeSkipped, Detail: "no include patterns"}
	}
	if p := pattern.MatchAny(e.include, rel, isDir); p != nil {
		return StageResult{Stage: StageInclude, Outcome: OutcomePassed, Pattern: p.Source}
	}
	return StageResult{Stage: StageInclude, Outcome: OutcomeFailed, Detail: "matched no include pattern"}
}

func (e *Engine) excludeStage(rel string, isDir bool) StageResult {
	if p := e.matchExclude(rel, isDir); p != nil {
		return StageResult{Stage: StageExclude, Outcome: OutcomeFailed, Pattern: p.Source}
	}
	return StageResult{Stage: StageExclude, Outcome: OutcomePassed}
}

// matchExclude tests rel and then each of its ancestor directories.
func (e *Engine) matchExclude(rel string, isDir bool) *pattern.Pattern {
	if len(e.exclude) == 0 || rel == "" {
		return nil
	}
	if p := pattern.MatchAny(e.exclude, rel, isDir); p != nil {
		return p
	}
	for i := len(rel) - 1; i > 0; i-- {
		if rel[i] != '/' {
			continue
		}
		if p := pattern.MatchAny(e.exclude, rel[:i], true); p != nil {
			return p
		}
	}
	return nil
}

// Segments counts the segments of a workspace-relative path. The root has
// depth zero.
func Segments(rel string) int {
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return 0
	}
	return strings.Count(rel, "/") + 1
}
