package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/bethropolis/dir-digest/internal/config"
	"github.com/bethropolis/dir-digest/internal/filter"
	"github.com/bethropolis/dir-digest/internal/fsaccess"
	"github.com/bethropolis/dir-digest/internal/logger"
	"github.com/bethropolis/dir-digest/internal/pattern"
	"github.com/bethropolis/dir-digest/internal/printer"
	"github.com/bethropolis/dir-digest/internal/setup"
	"github.com/bethropolis/dir-digest/internal/summary"
	"github.com/bethropolis/dir-digest/internal/walker"
)

// App encapsulates the main application functionality
type App struct {
	cfg    *config.Config
	log    *logger.Logger
	Output io.Writer
	// Status receives progress lines, skipped items and stats.
	Status io.Writer

	outFile *os.File
}

// SelectRequest describes the selection changes made by the select command.
type SelectRequest struct {
	All      bool
	Paths    []string
	Unselect []string
	// ShowTree prints the tree with selection marks instead of the path list.
	ShowTree bool
}

// New creates a new App instance
func New(cfg *config.Config) (*App, error) {
	// Configure color globally
	color.NoColor = !cfg.UseColors

	a := &App{cfg: cfg, Output: os.Stdout, Status: os.Stderr}
	if cfg.OutputFile != "" {
		file, err := os.Create(cfg.OutputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		a.outFile = file
		a.Output = file
	}
	a.log = logger.New(a.Status, logger.ParseLevel(cfg.EffectiveLogLevel()), cfg.UseColors)
	return a, nil
}

// Close closes the output file if one was opened
func (a *App) Close() error {
	if a.outFile == nil {
		return nil
	}
	err := a.outFile.Close()
	a.outFile = nil
	return err
}

func (a *App) infoLog(format string, args ...interface{}) {
	if !a.cfg.Quiet {
		a.log.Info(format, args...)
	}
}

// withTimeout applies the configured timeout to ctx
func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, a.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func (a *App) newPrinter() *printer.Printer {
	p := printer.New().WithOutput(a.Output).WithColors(a.cfg.UseColors)
	if a.cfg.JSONOutput {
		a.log.Debug("JSON output mode enabled")
		p.WithJSON(true)
	} else if a.cfg.MarkdownOutput {
		a.log.Debug("Markdown output mode enabled")
		p.WithMarkdown(true)
	}
	return p
}

// session opens the workspace and builds the tree once.
func (a *App) session(ctx context.Context, fn func(env *setup.Env, res *walker.Result) error) error {
	start := time.Now()

	env, err := setup.Open(ctx, a.cfg, a.log, a.Status, a.infoLog)
	if err != nil {
		return err
	}
	defer func() {
		if err := env.Close(); err != nil {
			a.log.Warn("Closing workspace connection: %v", err)
		}
	}()

	res, err := env.Workspace.Rebuild(ctx)
	if a.cfg.ShowProgress {
		fmt.Fprintln(a.Status)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("timeout of %v reached: %w", a.cfg.Timeout, err)
		}
		return err
	}

	summary.DisplayWarnings(a.log, res.Warnings)
	if err := fn(env, res); err != nil {
		return err
	}

	summary.DisplayResults(a.log, res, time.Since(start), a.cfg.Quiet)
	if a.cfg.ShowSkipped {
		summary.DisplaySkippedItems(a.log, res.Skipped, a.Status, a.cfg.Quiet)
	}
	if a.cfg.ShowStats {
		var calls *fsaccess.CallStats
		if env.Counting != nil {
			s := env.Counting.Stats()
			calls = &s
		}
		summary.DisplayStats(a.Status, calls, env.Workspace.CacheStats())
	}
	return nil
}

// RunTree builds the workspace tree and prints it
func (a *App) RunTree(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	return a.session(ctx, func(env *setup.Env, res *walker.Result) error {
		p := a.newPrinter().WithCollapsed(a.cfg.Collapsed)
		return p.PrintTree(res)
	})
}

// RunExplain prints the filter trace for each path. Paths are relative to
// the workspace root.
func (a *App) RunExplain(ctx context.Context, paths []string) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	env, err := setup.Open(ctx, a.cfg, a.log, nil, a.infoLog)
	if err != nil {
		return err
	}
	defer env.Close()

	decisions := make([]filter.Decision, 0, len(paths))
	for _, p := range paths {
		d, err := env.Workspace.Explain(ctx, p)
		if err != nil {
			return fmt.Errorf("explain %s: %w", p, err)
		}
		decisions = append(decisions, d)
	}
	return a.newPrinter().PrintDecisions(decisions)
}

// RunSelect builds the tree, applies req and prints the resulting selection
func (a *App) RunSelect(ctx context.Context, req SelectRequest) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	return a.session(ctx, func(env *setup.Env, res *walker.Result) error {
		sel := env.Workspace.Selection()
		if req.All {
			err := sel.SelectAll(ctx, func(processed, total int) {
				a.log.Debug("Selecting: %d/%d", processed, total)
			})
			if err != nil {
				return err
			}
		}
		for _, p := range req.Paths {
			if err := sel.Toggle(ctx, pattern.NormalizePath(p), true); err != nil {
				return err
			}
		}
		for _, p := range req.Unselect {
			if err := sel.Toggle(ctx, pattern.NormalizePath(p), false); err != nil {
				return err
			}
		}

		p := a.newPrinter()
		if req.ShowTree && !a.cfg.JSONOutput {
			return p.WithSelection(sel).WithCollapsed(a.cfg.Collapsed).PrintTree(res)
		}
		snap := sel.Snapshot()
		a.infoLog("Selected %d of %d files.", len(snap.Paths), len(res.Files))
		return p.PrintSelection(snap)
	})
}
