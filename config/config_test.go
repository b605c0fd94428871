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
	path := filepath.Join(t.TempDir(), "estuary.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
[cache]
path = "/tmp/cache.db"
enabled = true

[query]
default_limit = 100
dedup = true

[sources.visits]
enabled = true
type = "browser"

[sources.visits.params]
path = "/exports/places.sqlite"

[sources.repo]
enabled = false
type = "git"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/cache.db", cfg.Cache.Path)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 100, cfg.Query.DefaultLimit)
	assert.True(t, cfg.Query.Dedup)

	require.Contains(t, cfg.Sources, "visits")
	assert.Equal(t, SourceTypeBrowser, cfg.Sources["visits"].Type)
	assert.Equal(t, "/exports/places.sqlite", cfg.Sources["visits"].Params["path"])

	assert.Equal(t, []string{"visits"}, cfg.EnabledSources(), "disabled sources are excluded")
}

func TestLoadFromFileDefaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 0, cfg.Query.DefaultLimit)
	assert.Equal(t, "everforest", cfg.GetLogTheme())
	assert.NotEmpty(t, cfg.GetCachePath())
}

func TestValidate(t *testing.T) {
	valid := &Config{
		Sources: map[string]SourceConfig{
			"notes": {Enabled: true, Type: SourceTypeJSONL, Params: map[string]string{"path": "/x"}},
		},
	}
	assert.NoError(t, valid.Validate())

	badLimit := &Config{Query: QueryConfig{DefaultLimit: -1}}
	assert.Error(t, badLimit.Validate())

	badType := &Config{
		Sources: map[string]SourceConfig{
			"notes": {Enabled: true, Type: "carrier-pigeon", Params: map[string]string{"path": "/x"}},
		},
	}
	assert.Error(t, badType.Validate())

	missingPath := &Config{
		Sources: map[string]SourceConfig{
			"notes": {Enabled: true, Type: SourceTypeJSONL},
		},
	}
	assert.Error(t, missingPath.Validate())

	disabledHalfConfigured := &Config{
		Sources: map[string]SourceConfig{
			"notes": {Enabled: false},
		},
	}
	assert.NoError(t, disabledHalfConfigured.Validate(), "disabled sources are not validated")

	badTheme := &Config{Log: LogConfig{Theme: "solarized"}}
	assert.Error(t, badTheme.Validate())
}

func TestEnabledSourcesSorted(t *testing.T) {
	cfg := &Config{
		Sources: map[string]SourceConfig{
			"zulu":  {Enabled: true},
			"alpha": {Enabled: true},
			"mike":  {Enabled: true},
		},
	}

	assert.Equal(t, []string{"alpha", "mike", "zulu"}, cfg.EnabledSources())
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "estuary.toml")

	require.NoError(t, WriteDefault(path))
	assert.Error(t, WriteDefault(path), "must not clobber an existing config")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Cache.Enabled)
	require.Contains(t, cfg.Sources, "notes")
	assert.False(t, cfg.Sources["notes"].Enabled, "starter sources ship disabled")
	assert.NoError(t, cfg.Validate())
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "estuary.toml")
	cfg := &Config{
		Cache: CacheConfig{Path: "/tmp/c.db", Enabled: true},
		Query: QueryConfig{DefaultLimit: 50, Dedup: true},
		Log:   LogConfig{Theme: "gruvbox"},
		Sources: map[string]SourceConfig{
			"repo": {Enabled: true, Type: SourceTypeGit, Params: map[string]string{"path": "/src/estuary"}},
		},
	}

	require.NoError(t, Write(cfg, path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Cache.Path, got.Cache.Path)
	assert.Equal(t, cfg.Query.DefaultLimit, got.Query.DefaultLimit)
	assert.Equal(t, "gruvbox", got.Log.Theme)
	assert.Equal(t, "/src/estuary", got.Sources["repo"].Params["path"])

	// a second write keeps a backup of the first
	require.NoError(t, Write(cfg, path))
	_, err = os.Stat(path + ".back")
	assert.NoError(t, err)
}
