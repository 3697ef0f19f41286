package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, "workspaces", c.WorkspacesDir)
	assert.Equal(t, 60000, c.Timeout)
	assert.Equal(t, MaxConcurrency, c.Concurrency)
	assert.True(t, c.GetFollowRedirects())
	assert.True(t, c.GetValidateSSL())
	assert.False(t, c.GetFast())
	assert.NoError(t, c.Validate())
}

func TestGettersDefaultWhenUnset(t *testing.T) {
	c := &Config{}
	assert.True(t, c.GetFollowRedirects())
	assert.True(t, c.GetValidateSSL())
	assert.False(t, c.GetFast())
}

func TestFindAndLoadConfigWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hitcase.json"), []byte(`{
  "workspacesDir": "ws",
  "timeout": 5000,
  "fast": true,
  "headers": {"X-Team": "api"},
  "notify": {"slack": "https://hooks.example/1", "on": "recovery"}
}`), 0o644))

	c, err := FindAndLoadConfig(nested)
	require.NoError(t, err)
	assert.Equal(t, "ws", c.WorkspacesDir)
	assert.Equal(t, 5000, c.Timeout)
	assert.True(t, c.GetFast())
	assert.Equal(t, "yaml", c.Output)
	assert.Equal(t, "api", c.Headers["X-Team"])
	require.NotNil(t, c.Notify)
	assert.Equal(t, "recovery", c.Notify.On)
}

func TestFindAndLoadConfigDefaults(t *testing.T) {
	c, err := FindAndLoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), c)
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hitcase.json")

	require.NoError(t, os.WriteFile(path, []byte(`{"concurrency": 50}`), 0o644))
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "concurrency must be between 1 and 20")

	require.NoError(t, os.WriteFile(path, []byte(`{"notify": {"on": "weekly"}}`), 0o644))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "notify.on")

	require.NoError(t, os.WriteFile(path, []byte(`{"metrics": {"format": "prometheus"}}`), 0o644))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "metrics.file is required")

	require.NoError(t, os.WriteFile(path, []byte(`{"metrics": {"format": "csv", "file": "m.csv"}}`), 0o644))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "metrics.format")

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o644))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "parse hitcase.json")
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Headers = map[string]string{"A": "1"}

	merged := base.Merge(&Config{
		Timeout:     1000,
		Concurrency: 4,
		RateLimit:   2.5,
		ValidateSSL: BoolPtr(false),
		Headers:     map[string]string{"B": "2"},
		Notify:      &Notify{Teams: "https://teams.example"},
		Metrics:     &Metrics{Format: "json", File: "m.json"},
	})

	assert.Equal(t, 1000, merged.Timeout)
	assert.Equal(t, 4, merged.Concurrency)
	assert.Equal(t, 2.5, merged.RateLimit)
	assert.False(t, merged.GetValidateSSL())
	assert.True(t, merged.GetFollowRedirects())
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, merged.Headers)
	assert.Equal(t, "https://teams.example", merged.Notify.Teams)
	assert.Equal(t, "m.json", merged.Metrics.File)

	assert.Equal(t, map[string]string{"A": "1"}, base.Headers)
	assert.Same(t, base, base.Merge(nil))
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".hitcase.json")
	c := DefaultConfig()
	c.History = "sqlite://history.db"
	require.NoError(t, c.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite://history.db", loaded.History)
}
