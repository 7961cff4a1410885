package fsaccess

import (
	"context"
	"io/fs"
	"sync/atomic"
)

// CallStats is a snapshot of accessor calls made through a Counting wrapper.
type CallStats struct {
	ReadDir  int64
	Lstat    int64
	Stat     int64
	ReadFile int64
	RealPath int64
}

// Total returns the number of calls of every kind.
func (s CallStats) Total() int64 {
	return s.ReadDir + s.Lstat + s.Stat + s.ReadFile + s.RealPath
}

// Counting wraps an FS and counts calls per operation. The CLI uses it for
// its --stats report.
type Counting struct {
	next FS

	readDir, lstat, stat, readFile, realPath atomic.Int64
}

// NewCounting wraps next.
func NewCounting(next FS) *Counting {
	return &Counting{next: next}
}

// Stats returns the counts so far.
func (c *Counting) Stats() CallStats {
	return CallStats{
		ReadDir:  c.readDir.Load(),
		Lstat:    c.lstat.Load(),
		Stat:     c.stat.Load(),
		ReadFile: c.readFile.Load(),
		RealPath: c.realPath.Load(),
	}
}

func (c *Counting) ReadDir(ctx context.Context, dir string) ([]fs.FileInfo, error) {
	c.readDir.Add(1)
	return c.next.ReadDir(ctx, dir)
}

func (c *Counting) Lstat(ctx context.Context, p string) (fs.FileInfo, error) {
	c.lstat.Add(1)
	return c.next.Lstat(ctx, p)
}

func (c *Counting) Stat(ctx context.Context, p string) (fs.FileInfo, error) {
	c.stat.Add(1)
	return c.next.Stat(ctx, p)
}

func (c *Counting) ReadFile(ctx context.Context, p string) ([]byte, error) {
	c.readFile.Add(1)
	return c.next.ReadFile(ctx, p)
}

func (c *Counting) RealPath(ctx context.Context, p string) (string, error) {
	c.realPath.Add(1)
	return c.next.RealPath(ctx, p)
}
