package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/veldt/estuary/cache"
	"github.com/veldt/estuary/config"
	"github.com/veldt/estuary/errors"
	"github.com/veldt/estuary/logger"
	"github.com/veldt/estuary/render"
	"github.com/veldt/estuary/source"
	"github.com/veldt/estuary/sources"
)

// loadConfig reads the effective configuration, honoring the global
// --config flag
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	applyLogConfig(cmd, cfg)
	render.ApplyTheme(cfg.Log.Theme)
	return cfg, nil
}

// applyLogConfig lets the [log] section act as the default for the
// logging flags; an explicit --log-json still wins
func applyLogConfig(cmd *cobra.Command, cfg *config.Config) {
	if cfg.Log.JSON && !logger.JSONOutput && !cmd.Flags().Changed("log-json") {
		if err := logger.Initialize(true); err != nil {
			logger.Logger.Warnw("cannot switch to JSON logs", "error", err)
		}
	}
}

// buildRegistry constructs the source registry from config
func buildRegistry(cfg *config.Config) (*source.Registry, error) {
	return sources.BuildRegistry(cfg)
}

// openCache opens the computation cache, or returns nil when caching is
// disabled. A cache that fails to open degrades to uncached queries.
func openCache(cfg *config.Config, disabled bool) *cache.Store {
	if disabled || !cfg.Cache.Enabled {
		return nil
	}
	store, err := cache.Open(cfg.GetCachePath(), logger.Named("cache"))
	if err != nil {
		logger.Logger.Warnw("cache unavailable, queries will re-extract",
			"path", cfg.GetCachePath(),
			"error", err,
		)
		return nil
	}
	return store
}

// parseTimeFlag accepts RFC3339 timestamps and plain dates
func parseTimeFlag(value, flag string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, nil
	}
	return nil, errors.Newf("invalid --%s value %q (use RFC3339 timestamp or YYYY-MM-DD)", flag, value)
}
