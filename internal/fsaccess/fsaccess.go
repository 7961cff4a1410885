// Package fsaccess defines the filesystem accessor the scanning engine reads
// through, with local and SFTP implementations.
//
// All paths are absolute and slash-separated. Failures are returned as
// *scanerr.IOError so callers can downgrade them to per-entry warnings.
package fsaccess

import (
	"context"
	"io/fs"
	"path"
	"strings"
)

// FS is the filesystem collaborator used by the ignore cache, filter engine
// and tree builder.
type FS interface {
	// ReadDir lists dir without following symlinks, sorted by name.
	ReadDir(ctx context.Context, dir string) ([]fs.FileInfo, error)
	// Lstat describes p without following a final symlink.
	Lstat(ctx context.Context, p string) (fs.FileInfo, error)
	// Stat describes p, following symlinks.
	Stat(ctx context.Context, p string) (fs.FileInfo, error)
	// ReadFile returns the content of a text file.
	ReadFile(ctx context.Context, p string) ([]byte, error)
	// RealPath resolves symlinks to a canonical absolute path.
	RealPath(ctx context.Context, p string) (string, error)
}

// Join joins slash path elements.
func Join(elem ...string) string {
	return path.Join(elem...)
}

// Rel returns target relative to base when target lies at or under base.
func Rel(base, target string) (string, bool) {
	base = strings.TrimSuffix(base, "/")
	if target == base {
		return "", true
	}
	if base == "" {
		return strings.TrimPrefix(target, "/"), strings.HasPrefix(target, "/")
	}
	if !strings.HasPrefix(target, base+"/") {
		return "", false
	}
	return target[len(base)+1:], true
}

// Parent returns the parent directory of p and whether one exists.
func Parent(p string) (string, bool) {
	parent := path.Dir(p)
	if parent == p || parent == "." || parent == "" {
		return "", false
	}
	return parent, true
}

// IsSymlink reports whether info describes a symbolic link.
func IsSymlink(info fs.FileInfo) bool {
	return info != nil && info.Mode()&fs.ModeSymlink != 0
}
