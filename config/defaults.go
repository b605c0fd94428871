package config

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", "") // empty resolves to ~/.estuary/cache.db at open time

	// Query defaults
	v.SetDefault("query.default_limit", 0) // unlimited
	v.SetDefault("query.drop_errors", false)
	v.SetDefault("query.dedup", false)
	v.SetDefault("query.drop_unsorted", false)

	// Log defaults
	v.SetDefault("log.theme", "everforest")
	v.SetDefault("log.json", false)
}

// BindEnvVars explicitly binds configuration that is commonly overridden
// per invocation to environment variables
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("cache.path", "ESTUARY_CACHE_PATH")
	v.BindEnv("cache.enabled", "ESTUARY_CACHE_ENABLED")
	v.BindEnv("log.json", "ESTUARY_LOG_JSON")
}

// GetCachePath returns the cache database path, resolving the empty
// default to ~/.estuary/cache.db
func (c *Config) GetCachePath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "estuary-cache.db"
	}
	return filepath.Join(homeDir, ".estuary", "cache.db")
}

// GetLogTheme returns the table color theme (default: everforest)
func (c *Config) GetLogTheme() string {
	if c.Log.Theme == "" {
		return "everforest"
	}
	return c.Log.Theme
}

// EnabledSources returns the names of enabled sources in sorted order,
// so registry construction is deterministic across runs
func (c *Config) EnabledSources() []string {
	var names []string
	for name, sc := range c.Sources {
		if sc.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
