package filter

import (
	"io/fs"

	"github.com/bethropolis/dir-digest/internal/ignore"
)

// Reason is the outcome category of a FilterDecision.
type Reason string

const (
	ReasonIncluded       Reason = "included"
	ReasonExcluded       Reason = "excluded"
	ReasonGitignored     Reason = "gitignored"
	ReasonDepthLimit     Reason = "depth-limit"
	ReasonSymlinkSkipped Reason = "symlink-skipped"
)

// Stage names one step of the pipeline.
type Stage string

const (
	StageDepth   Stage = "depth"
	StageSymlink Stage = "symlink"
	StageInclude Stage = "include"
	StageExclude Stage = "exclude"
	StageIgnore  Stage = "ignore-file"
)

// stageOrder is the fixed evaluation order.
var stageOrder = []Stage{StageDepth, StageSymlink, StageInclude, StageExclude, StageIgnore}

// Outcome is what happened to a path at one stage.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// StageResult records one stage for explain output.
type StageResult struct {
	Stage   Stage   `json:"stage"`
	Outcome Outcome `json:"outcome"`
	// Pattern is the pattern source that decided the stage, if any.
	Pattern string `json:"pattern,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Decision is the verdict for one path.
type Decision struct {
	Path           string `json:"path"`
	IsDir          bool   `json:"is_dir"`
	Included       bool   `json:"included"`
	Reason         Reason `json:"reason"`
	MatchedPattern string `json:"matched_pattern,omitempty"`
	// IgnoreRule is the ignore-file line behind a gitignored verdict, or
	// behind a negation that kept the path.
	IgnoreRule *ignore.Rule  `json:"-"`
	Stages     []StageResult `json:"stages,omitempty"`
}

// Candidate is one path submitted to EvaluateBatch. Info, when set, is an
// lstat result the engine uses instead of asking the filesystem again.
type Candidate struct {
	Path  string
	IsDir bool
	Info  fs.FileInfo
}

// Options configures an Engine.
type Options struct {
	IncludePatterns []string
	ExcludePatterns []string
	FollowSymlinks  bool
	UseGitignore    bool
	// MaxDepth limits the number of workspace-relative path segments; nil
	// disables the limit.
	MaxDepth *int
}

// DefaultIncludePatterns matches every file.
var DefaultIncludePatterns = []string{"**/*"}

// DefaultExcludePatterns is the built-in denylist.
var DefaultExcludePatterns = []string{
	"**/node_modules/",
	"**/.git/",
	"**/dist/",
	"**/out/",
	"**/.DS_Store",
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		IncludePatterns: append([]string(nil), DefaultIncludePatterns...),
		ExcludePatterns: append([]string(nil), DefaultExcludePatterns...),
		FollowSymlinks:  false,
		UseGitignore:    true,
	}
}

// Depth returns a pointer to n, for Options.MaxDepth literals.
func Depth(n int) *int {
	return &n
}
