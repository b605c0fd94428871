package config

// Config is the estuary configuration: where the cache lives, which
// sources exist, and the query defaults applied when flags are omitted.
type Config struct {
	Cache   CacheConfig             `mapstructure:"cache"`
	Query   QueryConfig             `mapstructure:"query"`
	Log     LogConfig               `mapstructure:"log"`
	Sources map[string]SourceConfig `mapstructure:"sources"`
}

// CacheConfig configures the persistent computation cache
type CacheConfig struct {
	Path    string `mapstructure:"path"`    // SQLite file; empty = ~/.estuary/cache.db
	Enabled bool   `mapstructure:"enabled"` // false disables caching entirely
}

// QueryConfig carries defaults applied to every query unless overridden
// by flags
type QueryConfig struct {
	DefaultLimit int  `mapstructure:"default_limit"` // 0 = unlimited
	DropErrors   bool `mapstructure:"drop_errors"`   // hide broken records by default
	Dedup        bool `mapstructure:"dedup"`         // dedup by default
	DropUnsorted bool `mapstructure:"drop_unsorted"` // drop out-of-order records instead of re-sorting
}

// LogConfig configures log output
type LogConfig struct {
	Theme string `mapstructure:"theme"` // color theme for table output: gruvbox, everforest
	JSON  bool   `mapstructure:"json"`  // structured JSON logs instead of console output
}

// SourceConfig declares one data source. The section name under
// [sources.<name>] becomes the source's registry name.
type SourceConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	Type    string            `mapstructure:"type"`   // adapter type: jsonl, browser, git
	Params  map[string]string `mapstructure:"params"` // adapter-specific settings (paths, fields)
}

// Adapter type names accepted in [sources.<name>].type
const (
	SourceTypeJSONL   = "jsonl"
	SourceTypeBrowser = "browser"
	SourceTypeGit     = "git"
)

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
