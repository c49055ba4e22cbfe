package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	_, err := Load("", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "github.user")
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "github:\n  user: octocat\n")

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "octocat", cfg.GitHub.User)
	assert.Equal(t, "localhost:16666", cfg.Server.Listen)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	assert.Equal(t, 5000, cfg.Database.BusyTimeoutMS)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
github:
  user: octocat
server:
  listen: 127.0.0.1:9999
database:
  max_open_conns: 2
ignore_repos:
  - "myorg/*"
`)

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Listen)
	assert.Equal(t, 2, cfg.Database.MaxOpenConns)
	assert.Equal(t, []string{"myorg/*"}, cfg.IgnoreRepos)
}

func TestLoadInvalidListen(t *testing.T) {
	path := writeConfig(t, "github:\n  user: octocat\nserver:\n  listen: no-port\n")

	_, err := Load(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.listen")
}

func TestLoadInvalidIgnorePattern(t *testing.T) {
	path := writeConfig(t, "github:\n  user: octocat\nignore_repos:\n  - \"[bad\"\n")

	_, err := Load(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ignore_repos")
}

func TestLoadEmptyDataDir(t *testing.T) {
	path := writeConfig(t, "github:\n  user: octocat\n")

	_, err := Load(path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data directory")
}

func TestIgnoresRepo(t *testing.T) {
	cfg := Config{IgnoreRepos: []string{"myorg/*", "other/exact"}}

	assert.True(t, cfg.IgnoresRepo("myorg/anything"))
	assert.True(t, cfg.IgnoresRepo("other/exact"))
	assert.False(t, cfg.IgnoresRepo("other/different"))
	assert.False(t, cfg.IgnoresRepo("unrelated/repo"))
}
