package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bethropolis/dir-digest/internal/config"
	"github.com/bethropolis/dir-digest/internal/walker"
)

func parseFlags(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	fv := &flagValues{}
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fv.register(fs)
	require.NoError(t, fs.Parse(args))
	return loadConfig(fs, fv)
}

func writeWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"src/main.go": "",
		"notes.txt":   "",
		"build.log":   "",
		".gitignore":  "*.log\n",
	} {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := parseFlags(t, "--dir", dir)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.RootDir)
	assert.Equal(t, []string{"**/*"}, cfg.IncludePatterns)
	assert.Nil(t, cfg.MaxDepth)
	assert.True(t, cfg.RespectIgnoreFiles)
}

func TestLoadConfigFileThenFlags(t *testing.T) {
	dir := t.TempDir()
	yaml := "include_patterns: [\"src/**\"]\nmax_tree_entries: 50\nshow_hidden: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(yaml), 0o644))

	cfg, err := parseFlags(t, "--dir", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/**"}, cfg.IncludePatterns)
	assert.Equal(t, 50, cfg.MaxTreeEntries)
	assert.True(t, cfg.ShowHidden)

	cfg, err = parseFlags(t, "--dir", dir, "--include", "*.go,*.md", "--max-depth", "2",
		"--no-ignore", "--max-entries", "10", "--hidden=false")
	require.NoError(t, err)
	assert.Equal(t, []string{"*.go", "*.md"}, cfg.IncludePatterns)
	require.NotNil(t, cfg.MaxDepth)
	assert.Equal(t, 2, *cfg.MaxDepth)
	assert.False(t, cfg.RespectIgnoreFiles)
	assert.Equal(t, 10, cfg.MaxTreeEntries)
	assert.False(t, cfg.ShowHidden)
}

func TestLoadConfigExplicitFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(file, []byte("log_level: warn\n"), 0o644))

	cfg, err := parseFlags(t, "--config", file)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	_, err := parseFlags(t, "--dir", t.TempDir(), "--max-entries", "0")
	assert.Error(t, err)

	_, err = parseFlags(t, "--dir", t.TempDir(), "--json", "--markdown")
	assert.Error(t, err)

	_, err = parseFlags(t, "--dir", t.TempDir(), "--log-level", "loud")
	assert.Error(t, err)
}

func TestLoadConfigRemoteSkipsLocalFile(t *testing.T) {
	cfg, err := parseFlags(t, "--sftp", "me@example.com:2222", "--dir", "/srv/app", "--identity", "/k1")
	require.NoError(t, err)
	assert.Equal(t, "me@example.com:2222", cfg.Remote.Target)
	assert.Equal(t, []string{"/k1"}, cfg.Remote.IdentityFiles)
	assert.Equal(t, "/srv/app", cfg.RootDir)
}

func TestTreeCommand(t *testing.T) {
	dir := writeWorkspace(t)

	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"tree", "--dir", dir, "--json", "--quiet"})
	require.NoError(t, root.Execute())

	var res walker.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, []string{"notes.txt", "src/main.go"}, res.Files)
}

func TestExplainCommand(t *testing.T) {
	dir := writeWorkspace(t)

	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"explain", "build.log", "--dir", dir, "--quiet", "--no-color"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "build.log: EXCLUDED (gitignored)")

	root = newRootCommand()
	root.SetArgs([]string{"explain", "--dir", dir})
	assert.Error(t, root.Execute())
}

func TestSelectCommand(t *testing.T) {
	dir := writeWorkspace(t)

	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"select", "src", "--dir", dir, "--quiet"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "src/main.go\n", out.String())
}
