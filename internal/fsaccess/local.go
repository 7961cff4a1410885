package fsaccess

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bethropolis/dir-digest/internal/scanerr"
)

// Local reads the host filesystem.
type Local struct{}

// NewLocal returns the host filesystem accessor.
func NewLocal() *Local {
	return &Local{}
}

// AbsRoot resolves a user-supplied directory to the slash form Local expects.
func AbsRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", &scanerr.IOError{Op: "abs", Path: dir, Err: err}
	}
	return filepath.ToSlash(abs), nil
}

func (l *Local) ReadDir(ctx context.Context, dir string) ([]fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.FromSlash(dir))
	if err != nil {
		return nil, &scanerr.IOError{Op: "readdir", Path: dir, Err: err}
	}
	infos := make([]fs.FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			// entry vanished between listing and lstat
			continue
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	return infos, nil
}

func (l *Local) Lstat(ctx context.Context, p string) (fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Lstat(filepath.FromSlash(p))
	if err != nil {
		return nil, &scanerr.IOError{Op: "lstat", Path: p, Err: err}
	}
	return info, nil
}

func (l *Local) Stat(ctx context.Context, p string) (fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(filepath.FromSlash(p))
	if err != nil {
		return nil, &scanerr.IOError{Op: "stat", Path: p, Err: err}
	}
	return info, nil
}

func (l *Local) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.FromSlash(p))
	if err != nil {
		return nil, &scanerr.IOError{Op: "read", Path: p, Err: err}
	}
	return data, nil
}

func (l *Local) RealPath(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(filepath.FromSlash(p))
	if err != nil {
		return "", &scanerr.IOError{Op: "realpath", Path: p, Err: err}
	}
	return filepath.ToSlash(resolved), nil
}
