package selection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bethropolis/dir-digest/internal/walker"
)

// tree builds a Result from relative file paths.
func tree(files ...string) *walker.Result {
	root := &walker.Node{Name: "root", Kind: walker.KindDirectory}
	dirs := map[string]*walker.Node{"": root}
	var ensure func(rel string) *walker.Node
	ensure = func(rel string) *walker.Node {
		if n, ok := dirs[rel]; ok {
			return n
		}
		parent, name := "", rel
		if i := strings.LastIndex(rel, "/"); i >= 0 {
			parent, name = rel[:i], rel[i+1:]
		}
		n := &walker.Node{RelPath: rel, Name: name, Kind: walker.KindDirectory}
		p := ensure(parent)
		p.Children = append(p.Children, n)
		dirs[rel] = n
		return n
	}
	for _, f := range files {
		parent, name := "", f
		if i := strings.LastIndex(f, "/"); i >= 0 {
			parent, name = f[:i], f[i+1:]
		}
		p := ensure(parent)
		p.Children = append(p.Children, &walker.Node{RelPath: f, Name: name, Kind: walker.KindFile})
	}
	return walker.NewResult(root)
}

func newCoordinator(t *testing.T, res *walker.Result, opts ...Option) *Coordinator {
	t.Helper()
	c := New(opts...)
	_, err := c.SetTree(context.Background(), res)
	require.NoError(t, err)
	return c
}

func TestToggleFileAndDirectory(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, tree("a.txt", "src/main.go", "src/lib/util.go", "docs/readme.md"))

	require.NoError(t, c.Toggle(ctx, "a.txt", true))
	require.NoError(t, c.Toggle(ctx, "src", true))
	assert.Equal(t, []string{"a.txt", "src/lib/util.go", "src/main.go"}, c.Snapshot().Paths)

	require.NoError(t, c.Toggle(ctx, "src/lib", false))
	assert.Equal(t, []string{"a.txt", "src/main.go"}, c.Snapshot().Paths)

	err := c.Toggle(ctx, "missing.txt", true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownPath))
}

func TestDirState(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, tree("src/a.go", "src/b.go", "docs/x.md"))

	assert.Equal(t, StateNone, c.DirState("src"))
	require.NoError(t, c.Toggle(ctx, "src/a.go", true))
	assert.Equal(t, StatePartial, c.DirState("src"))
	assert.Equal(t, StatePartial, c.DirState(""))
	require.NoError(t, c.Toggle(ctx, "src/b.go", true))
	assert.Equal(t, StateAll, c.DirState("src"))
	assert.Equal(t, StateNone, c.DirState("docs"))
	assert.Equal(t, StateAll, c.DirState("src/a.go"))
	assert.Equal(t, StateNone, c.DirState("nope"))
}

func TestSetSelectionDropsUnknownPaths(t *testing.T) {
	c := newCoordinator(t, tree("a.txt", "b.txt", "dir/c.txt"))

	require.NoError(t, c.SetSelection(context.Background(), []string{"b.txt", "ghost.txt", "dir", "dir/c.txt"}))
	assert.Equal(t, []string{"b.txt", "dir/c.txt"}, c.Snapshot().Paths)
	assert.True(t, c.IsSelected("b.txt"))
	assert.False(t, c.IsSelected("a.txt"))
	assert.Equal(t, 2, c.Len())
}

func TestSelectAllChunksAndReportsProgress(t *testing.T) {
	var files []string
	for i := 0; i < 10; i++ {
		files = append(files, fmt.Sprintf("f%02d.txt", i))
	}
	c := newCoordinator(t, tree(files...), WithChunkSize(4))

	var reports [][2]int
	require.NoError(t, c.SelectAll(context.Background(), func(processed, total int) {
		reports = append(reports, [2]int{processed, total})
	}))

	assert.Equal(t, [][2]int{{4, 10}, {8, 10}, {10, 10}}, reports)
	assert.Equal(t, files, c.Snapshot().Paths)
}

func TestSelectAllCountsDirectories(t *testing.T) {
	c := newCoordinator(t, tree("a/b/c.txt", "d.txt"))

	var last [2]int
	require.NoError(t, c.SelectAll(context.Background(), func(processed, total int) {
		last = [2]int{processed, total}
	}))
	assert.Equal(t, [2]int{4, 4}, last)
	assert.Equal(t, []string{"a/b/c.txt", "d.txt"}, c.Snapshot().Paths)
}

func TestSelectAllOnEmptyTree(t *testing.T) {
	for name, res := range map[string]*walker.Result{
		"empty root": tree(),
		"no tree":    nil,
	} {
		t.Run(name, func(t *testing.T) {
			c := New()
			if res != nil {
				_, err := c.SetTree(context.Background(), res)
				require.NoError(t, err)
			}
			var reports [][2]int
			require.NoError(t, c.SelectAll(context.Background(), func(processed, total int) {
				reports = append(reports, [2]int{processed, total})
			}))
			assert.Equal(t, [][2]int{{0, 0}}, reports)
			assert.Empty(t, c.Snapshot().Paths)
		})
	}
}

func TestSelectAllCancellationKeepsSelection(t *testing.T) {
	var files []string
	for i := 0; i < 20; i++ {
		files = append(files, fmt.Sprintf("f%02d.txt", i))
	}
	c := newCoordinator(t, tree(files...), WithChunkSize(5))
	require.NoError(t, c.SetSelection(context.Background(), []string{"f00.txt"}))

	ctx, cancel := context.WithCancel(context.Background())
	err := c.SelectAll(ctx, func(processed, total int) {
		cancel()
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"f00.txt"}, c.Snapshot().Paths)
}

func TestClearSelection(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, tree("a.txt", "b.txt"))
	require.NoError(t, c.SelectAll(ctx, nil))
	require.Equal(t, 2, c.Len())

	before := c.Snapshot().Version
	require.NoError(t, c.ClearSelection(ctx))
	assert.Empty(t, c.Snapshot().Paths)
	assert.Greater(t, c.Snapshot().Version, before)
}

func TestSetTreePrunesStalePaths(t *testing.T) {
	ctx := context.Background()
	first := tree("src/a.ts", "src/b.ts", "README.md")
	c := newCoordinator(t, first)
	require.NoError(t, c.SelectAll(ctx, nil))

	second := tree("src/a.ts", "src/b.ts", "src/new.ts")
	dropped, err := c.SetTree(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md"}, dropped)

	snap := c.Snapshot()
	assert.Equal(t, []string{"src/a.ts", "src/b.ts"}, snap.Paths)
	assert.Equal(t, second.ID, snap.TreeID)
}

func TestMutationsApplyInSubmissionOrder(t *testing.T) {
	c := newCoordinator(t, tree("a.txt", "b.txt"))
	ctx := context.Background()

	// hold the lock so the queued mutations pile up behind it
	release, err := c.lock.acquire(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	ops := []func(){
		func() { _ = c.Toggle(ctx, "a.txt", true) },
		func() { _ = c.Toggle(ctx, "b.txt", true) },
		func() { _ = c.ClearSelection(ctx) },
		func() { _ = c.Toggle(ctx, "b.txt", true) },
	}
	for _, op := range ops {
		tail := tailOf(&c.lock)
		wg.Add(1)
		go func(op func()) {
			defer wg.Done()
			op()
		}(op)
		waitQueued(t, &c.lock, tail)
	}

	release()
	wg.Wait()
	assert.Equal(t, []string{"b.txt"}, c.Snapshot().Paths)
}

func tailOf(l *fifoLock) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tail
}

// waitQueued waits until a holder queued after tail.
func waitQueued(t *testing.T, l *fifoLock, tail chan struct{}) {
	t.Helper()
	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.tail != tail
	}, time.Second, time.Millisecond)
}

func TestCancelledWaiterKeepsQueueMoving(t *testing.T) {
	var l fifoLock
	release, err := l.acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	tail := tailOf(&l)
	go func() {
		_, err := l.acquire(ctx)
		done <- err
	}()
	waitQueued(t, &l, tail)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	acquired := make(chan struct{})
	go func() {
		r, err := l.acquire(context.Background())
		if err == nil {
			r()
		}
		close(acquired)
	}()

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock never reached the waiter queued after a cancelled one")
	}
}
