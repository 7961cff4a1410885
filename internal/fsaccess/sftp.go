package fsaccess

import (
	"context"
	"io"
	"io/fs"
	"sort"

	"github.com/pkg/sftp"

	"github.com/bethropolis/dir-digest/internal/scanerr"
)

// SFTP reads a remote workspace over an established SFTP session.
type SFTP struct {
	client *sftp.Client
}

// NewSFTP wraps an SFTP client. The caller owns the client's lifetime.
func NewSFTP(client *sftp.Client) *SFTP {
	return &SFTP{client: client}
}

func (s *SFTP) ReadDir(ctx context.Context, dir string) ([]fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := s.client.ReadDir(dir)
	if err != nil {
		return nil, &scanerr.IOError{Op: "readdir", Path: dir, Err: err}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	return infos, nil
}

func (s *SFTP) Lstat(ctx context.Context, p string) (fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := s.client.Lstat(p)
	if err != nil {
		return nil, &scanerr.IOError{Op: "lstat", Path: p, Err: err}
	}
	return info, nil
}

func (s *SFTP) Stat(ctx context.Context, p string) (fs.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := s.client.Stat(p)
	if err != nil {
		return nil, &scanerr.IOError{Op: "stat", Path: p, Err: err}
	}
	return info, nil
}

func (s *SFTP) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := s.client.Open(p)
	if err != nil {
		return nil, &scanerr.IOError{Op: "read", Path: p, Err: err}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, &scanerr.IOError{Op: "read", Path: p, Err: err}
	}
	return data, nil
}

func (s *SFTP) RealPath(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resolved, err := s.client.RealPath(p)
	if err != nil {
		return "", &scanerr.IOError{Op: "realpath", Path: p, Err: err}
	}
	return resolved, nil
}
