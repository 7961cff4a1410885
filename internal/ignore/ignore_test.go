package ignore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bethropolis/dir-digest/internal/fsaccess"
	"github.com/bethropolis/dir-digest/internal/pattern"
)

// newRepo creates a temp directory with a .git marker and returns its slash path.
func newRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	return filepath.ToSlash(root)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	native := filepath.FromSlash(path)
	require.NoError(t, os.MkdirAll(filepath.Dir(native), 0o755))
	require.NoError(t, os.WriteFile(native, []byte(content), 0o644))
}

func ignored(t *testing.T, c *Cache, p string, isDir bool) bool {
	t.Helper()
	d, err := c.Decide(context.Background(), p, isDir)
	require.NoError(t, err)
	return d.Ignored
}

func TestNegationLastMatchWins(t *testing.T) {
	root := newRepo(t)
	writeFile(t, root+"/.gitignore", "*.log\n!keep.log\n")
	c := NewDefaultCache(fsaccess.NewLocal())

	assert.True(t, ignored(t, c, root+"/app.log", false))
	assert.False(t, ignored(t, c, root+"/keep.log", false))
	assert.False(t, ignored(t, c, root+"/notes.txt", false))
}

func TestDeeperDirectoryOverridesParent(t *testing.T) {
	root := newRepo(t)
	writeFile(t, root+"/.gitignore", "*.tmp\n")
	writeFile(t, root+"/textures/.gitignore", "!*.tmp\n")
	c := NewDefaultCache(fsaccess.NewLocal())

	assert.True(t, ignored(t, c, root+"/a.tmp", false))
	assert.False(t, ignored(t, c, root+"/textures/a.tmp", false))
	assert.False(t, ignored(t, c, root+"/textures/deep/b.tmp", false))
}

func TestDirectoryOnlyRuleCoversDescendants(t *testing.T) {
	root := newRepo(t)
	writeFile(t, root+"/.gitignore", "build/\n")
	c := NewDefaultCache(fsaccess.NewLocal())

	assert.True(t, ignored(t, c, root+"/build", true))
	assert.True(t, ignored(t, c, root+"/build/out/app.js", false))
	assert.True(t, ignored(t, c, root+"/pkg/build", true))
	assert.False(t, ignored(t, c, root+"/src/build", false))
}

func TestAnchoredRules(t *testing.T) {
	root := newRepo(t)
	writeFile(t, root+"/.gitignore", "/root.txt\ndocs/api\n")
	c := NewDefaultCache(fsaccess.NewLocal())

	assert.True(t, ignored(t, c, root+"/root.txt", false))
	assert.False(t, ignored(t, c, root+"/sub/root.txt", false))
	assert.True(t, ignored(t, c, root+"/docs/api", true))
	assert.True(t, ignored(t, c, root+"/docs/api/v1.md", false))
	assert.False(t, ignored(t, c, root+"/x/docs/api", true))
}

func TestRulesAreRelativeToTheirDirectory(t *testing.T) {
	root := newRepo(t)
	writeFile(t, root+"/pkg/.gitignore", "/gen/\n")
	c := NewDefaultCache(fsaccess.NewLocal())

	assert.True(t, ignored(t, c, root+"/pkg/gen/x.go", false))
	assert.False(t, ignored(t, c, root+"/gen/x.go", false))
}

func TestEscapesAndComments(t *testing.T) {
	root := newRepo(t)
	writeFile(t, root+"/.gitignore", "# comment\n\n\\#hash.txt\n\\!bang.txt\ntrailing.txt   \n")
	c := NewDefaultCache(fsaccess.NewLocal())

	assert.True(t, ignored(t, c, root+"/#hash.txt", false))
	assert.True(t, ignored(t, c, root+"/!bang.txt", false))
	assert.True(t, ignored(t, c, root+"/trailing.txt", false))
	assert.False(t, ignored(t, c, root+"/comment", false))
}

func TestDecisionCarriesDecidingRule(t *testing.T) {
	root := newRepo(t)
	writeFile(t, root+"/.gitignore", "*.log\n!keep.log\n")
	c := NewDefaultCache(fsaccess.NewLocal())

	d, err := c.Decide(context.Background(), root+"/keep.log", false)
	require.NoError(t, err)
	require.NotNil(t, d.Rule)
	assert.True(t, d.Rule.Negated)
	assert.Equal(t, 2, d.Rule.LineNo)
	assert.Equal(t, root+"/.gitignore", d.Rule.Source)
	assert.Equal(t, "!keep.log", d.Rule.Line)

	d, err = c.Decide(context.Background(), root+"/readme.md", false)
	require.NoError(t, err)
	assert.Nil(t, d.Rule)
	assert.False(t, d.Ignored)
}

func TestCacheInvalidatesOnModification(t *testing.T) {
	root := newRepo(t)
	file := root + "/.gitignore"
	writeFile(t, file, "*.log\n")
	c := NewDefaultCache(fsaccess.NewLocal())

	assert.True(t, ignored(t, c, root+"/app.log", false))
	assert.False(t, ignored(t, c, root+"/app.txt", false))
	assert.Equal(t, int64(1), c.Loads())

	writeFile(t, file, "*.txt\n")
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(filepath.FromSlash(file), later, later))

	assert.False(t, ignored(t, c, root+"/app.log", false))
	assert.True(t, ignored(t, c, root+"/app.txt", false))
	assert.Equal(t, int64(2), c.Loads())
}

func TestCacheReusesUnchangedEntries(t *testing.T) {
	root := newRepo(t)
	writeFile(t, root+"/.gitignore", "*.log\n")
	c := NewDefaultCache(fsaccess.NewLocal())

	for i := 0; i < 5; i++ {
		ignored(t, c, root+"/src/app.log", false)
	}
	assert.Equal(t, int64(1), c.Loads())
	assert.Equal(t, 1, c.Len())
}

func TestRemovedIgnoreFileDropsRules(t *testing.T) {
	root := newRepo(t)
	file := root + "/.gitignore"
	writeFile(t, file, "*.log\n")
	c := NewDefaultCache(fsaccess.NewLocal())

	assert.True(t, ignored(t, c, root+"/app.log", false))
	require.NoError(t, os.Remove(filepath.FromSlash(file)))
	assert.False(t, ignored(t, c, root+"/app.log", false))
	assert.Equal(t, 0, c.Len())
}

func TestBatchProbesEachDirectoryOnce(t *testing.T) {
	root := newRepo(t)
	writeFile(t, root+"/.gitignore", "*.log\n")
	ctx := context.Background()

	single := fsaccess.NewCounting(fsaccess.NewLocal())
	_, err := New(single, nil).Decide(ctx, root+"/src/a.log", false)
	require.NoError(t, err)

	batched := fsaccess.NewCounting(fsaccess.NewLocal())
	res, err := New(batched, nil).DecideBatch(ctx, []Query{
		{Path: root + "/src/a.log"},
		{Path: root + "/src/b.txt"},
		{Path: root + "/src/c.log"},
		{Path: root + "/src/nested", IsDir: true},
	})
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false, true, false},
		[]bool{res[0].Ignored, res[1].Ignored, res[2].Ignored, res[3].Ignored})
	assert.Equal(t, single.Stats().Stat, batched.Stats().Stat)
	assert.Equal(t, int64(1), batched.Stats().ReadFile)
}

func TestMultipleIgnoreFilesMergeInConfiguredOrder(t *testing.T) {
	root := newRepo(t)
	writeFile(t, root+"/.gitignore", "*.md\n")
	writeFile(t, root+"/.digestignore", "!README.md\n")

	c := New(fsaccess.NewLocal(), nil, WithFileNames([]string{".gitignore", ".digestignore"}))
	assert.False(t, ignored(t, c, root+"/README.md", false))
	assert.True(t, ignored(t, c, root+"/CHANGES.md", false))

	reversed := New(fsaccess.NewLocal(), nil, WithFileNames([]string{".digestignore", ".gitignore"}))
	assert.True(t, ignored(t, reversed, root+"/README.md", false))
}

func TestSearchStopsAtRepositoryMarker(t *testing.T) {
	outer := filepath.ToSlash(t.TempDir())
	writeFile(t, outer+"/.gitignore", "*\n")
	repo := outer + "/repo"
	require.NoError(t, os.MkdirAll(filepath.FromSlash(repo+"/.git"), 0o755))

	c := NewDefaultCache(fsaccess.NewLocal())
	assert.False(t, ignored(t, c, repo+"/a.txt", false))

	noMarkers := New(fsaccess.NewLocal(), nil, WithMarkers([]string{}))
	assert.True(t, ignored(t, noMarkers, repo+"/a.txt", false))
}

func TestBadRuleIsReportedAndSkipped(t *testing.T) {
	root := newRepo(t)
	writeFile(t, root+"/.gitignore", "[oops\n*.log\n")
	c := NewDefaultCache(fsaccess.NewLocal())

	assert.True(t, ignored(t, c, root+"/app.log", false))

	warnings := c.TakeWarnings()
	require.NotEmpty(t, warnings)
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "[oops") && strings.Contains(w, "never matches") {
			found = true
		}
	}
	assert.True(t, found, "warnings: %v", warnings)
	assert.Empty(t, c.TakeWarnings())
}

func TestLRUEvictsDirectories(t *testing.T) {
	root := newRepo(t)
	writeFile(t, root+"/a/.gitignore", "*.x\n")
	writeFile(t, root+"/b/.gitignore", "*.y\n")
	c := New(fsaccess.NewLocal(), pattern.NewCompiler(0), WithCapacity(1))

	assert.True(t, ignored(t, c, root+"/a/f.x", false))
	assert.True(t, ignored(t, c, root+"/b/f.y", false))
	assert.Equal(t, 1, c.Len())

	// a/ was evicted and reloads transparently
	assert.True(t, ignored(t, c, root+"/a/f.x", false))
	assert.Equal(t, int64(3), c.Loads())
}

func TestShouldIgnoreTreatsErrorsAsNotIgnored(t *testing.T) {
	root := newRepo(t)
	writeFile(t, root+"/.gitignore", "*\n")
	c := NewDefaultCache(fsaccess.NewLocal())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, c.ShouldIgnore(ctx, root+"/a.txt", false))
	assert.True(t, c.ShouldIgnore(context.Background(), root+"/a.txt", false))

	var nilCache *Cache
	assert.False(t, nilCache.ShouldIgnore(context.Background(), root+"/a.txt", false))
}

func TestParseLines(t *testing.T) {
	lines := parseLines([]byte("\ufeff# c\n*.log\r\n!keep.log\nsrc/gen/\n/abs\n**/deep\n\\!x\n!\n"))

	var got []string
	for _, l := range lines {
		prefix := ""
		if l.negated {
			prefix = "!"
		}
		got = append(got, prefix+l.pattern)
	}
	assert.Equal(t, []string{"*.log", "!keep.log", "/src/gen/", "/abs", "**/deep", "!x"}, got)
}
