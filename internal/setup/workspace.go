// Package setup provides initialization and configuration functions
package setup

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/bethropolis/dir-digest/internal/config"
	"github.com/bethropolis/dir-digest/internal/fsaccess"
	"github.com/bethropolis/dir-digest/internal/remote"
	"github.com/bethropolis/dir-digest/internal/utils"
	"github.com/bethropolis/dir-digest/internal/walker"
	"github.com/bethropolis/dir-digest/internal/workspace"
)

// InfoLogger wraps the Info method for status updates
type InfoLogger func(format string, args ...interface{})

// Env is an opened workspace together with the resources behind it.
type Env struct {
	Workspace *workspace.Workspace
	// Counting is set when call statistics were requested.
	Counting *fsaccess.Counting
	Remote   bool

	closers []func() error
}

// Close releases the filesystem connection, if any.
func (e *Env) Close() error {
	var retErr error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil && retErr == nil {
			retErr = err
		}
	}
	e.closers = nil
	return retErr
}

// Open builds the filesystem accessor described by cfg and a workspace on
// top of it. The caller must Close the returned Env.
func Open(ctx context.Context, cfg *config.Config, log utils.Logger, progress io.Writer, infoLog InfoLogger) (*Env, error) {
	if log == nil {
		log = utils.NoopLogger{}
	}
	env := &Env{}

	var fsys fsaccess.FS
	var root string
	if cfg.Remote.Target != "" {
		infoLog("Connecting to %s", cfg.Remote.Target)
		sess, err := remote.Dial(ctx, remote.Config{
			Target:         cfg.Remote.Target,
			IdentityFiles:  cfg.Remote.IdentityFiles,
			KnownHostsFile: cfg.Remote.KnownHostsFile,
			Timeout:        cfg.Remote.DialTimeout,
		})
		if err != nil {
			return nil, err
		}
		env.Remote = true
		env.closers = append(env.closers, sess.Close)
		fsys = fsaccess.NewSFTP(sess.Client)

		// Relative remote roots resolve against the login directory.
		root, err = fsys.RealPath(ctx, cfg.RootDir)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("setup: resolve remote root %s: %w", cfg.RootDir, err)
		}
		root = path.Clean(root)
	} else {
		var err error
		root, err = fsaccess.AbsRoot(cfg.RootDir)
		if err != nil {
			return nil, err
		}
		fsys = fsaccess.NewLocal()
	}

	if cfg.ShowStats {
		env.Counting = fsaccess.NewCounting(fsys)
		fsys = env.Counting
	}

	opts := []workspace.Option{workspace.WithLogger(log)}
	if cfg.ShowProgress && progress != nil {
		log.Debug("Progress display enabled")
		opts = append(opts, workspace.WithProgress(ProgressLine(progress)))
	}

	ws, err := workspace.New(root, fsys, cfg, opts...)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Workspace = ws

	infoLog("Workspace: %s", root)
	if cfg.MaxDepth != nil {
		infoLog("Limiting depth to %d.", *cfg.MaxDepth)
	}
	if cfg.ShowHidden {
		infoLog("Including hidden files/directories.")
	} else {
		infoLog("Ignoring hidden files/directories (starting with '.').")
	}
	if !cfg.RespectIgnoreFiles {
		infoLog("Ignore files are not applied.")
	}
	return env, nil
}

// ProgressLine returns a progress callback that redraws one status line on
// out. The line is overwritten with a carriage return on every update.
func ProgressLine(out io.Writer) walker.ProgressCallback {
	return func(stats walker.ProgressStats) {
		dir := stats.CurrentDir
		if dir == "" {
			dir = "."
		}
		fmt.Fprintf(out, "\rScanning: %-40s | Dirs: %d | Entries: %d | Skipped: %d",
			shorten(dir, 40), stats.Dirs, stats.Nodes, stats.Skipped)
	}
}

// shorten keeps the tail of p when it is longer than max.
func shorten(p string, max int) string {
	if len(p) <= max {
		return p
	}
	return "..." + p[len(p)-(max-3):]
}
