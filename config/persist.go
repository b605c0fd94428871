package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/veldt/estuary/errors"
)

// fileConfig mirrors Config with toml tags for writing. Viper reads with
// mapstructure tags; writing goes through go-toml directly so the emitted
// file round-trips cleanly.
type fileConfig struct {
	Cache   fileCacheConfig             `toml:"cache"`
	Query   fileQueryConfig             `toml:"query"`
	Log     fileLogConfig               `toml:"log"`
	Sources map[string]fileSourceConfig `toml:"sources,omitempty"`
}

type fileCacheConfig struct {
	Path    string `toml:"path"`
	Enabled bool   `toml:"enabled"`
}

type fileQueryConfig struct {
	DefaultLimit int  `toml:"default_limit"`
	DropErrors   bool `toml:"drop_errors"`
	Dedup        bool `toml:"dedup"`
	DropUnsorted bool `toml:"drop_unsorted"`
}

type fileLogConfig struct {
	Theme string `toml:"theme"`
	JSON  bool   `toml:"json"`
}

type fileSourceConfig struct {
	Enabled bool              `toml:"enabled"`
	Type    string            `toml:"type"`
	Params  map[string]string `toml:"params,omitempty"`
}

// WriteDefault writes a starter config file at path, refusing to clobber
// an existing one. Used by the config init command.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Newf("config file %s already exists", path)
	}

	starter := fileConfig{
		Cache: fileCacheConfig{Enabled: true},
		Query: fileQueryConfig{},
		Log:   fileLogConfig{Theme: "everforest"},
		Sources: map[string]fileSourceConfig{
			"notes": {
				Enabled: false,
				Type:    SourceTypeJSONL,
				Params:  map[string]string{"path": "/path/to/export.jsonl"},
			},
		},
	}

	data, err := toml.Marshal(starter)
	if err != nil {
		return errors.Wrap(err, "failed to marshal starter config")
	}

	if err := os.WriteFile(path, data, DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write config file %s", path)
	}
	return nil
}

// Render marshals cfg in the same TOML shape the config files use
func Render(cfg *Config) ([]byte, error) {
	data, err := toml.Marshal(toFileConfig(cfg))
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal config")
	}
	return data, nil
}

func toFileConfig(cfg *Config) fileConfig {
	out := fileConfig{
		Cache: fileCacheConfig{Path: cfg.Cache.Path, Enabled: cfg.Cache.Enabled},
		Query: fileQueryConfig{
			DefaultLimit: cfg.Query.DefaultLimit,
			DropErrors:   cfg.Query.DropErrors,
			Dedup:        cfg.Query.Dedup,
			DropUnsorted: cfg.Query.DropUnsorted,
		},
		Log: fileLogConfig{Theme: cfg.Log.Theme, JSON: cfg.Log.JSON},
	}
	if len(cfg.Sources) > 0 {
		out.Sources = make(map[string]fileSourceConfig, len(cfg.Sources))
		for name, sc := range cfg.Sources {
			out.Sources[name] = fileSourceConfig{Enabled: sc.Enabled, Type: sc.Type, Params: sc.Params}
		}
	}
	return out
}

// Write persists cfg to path, rotating a single .back backup of any
// previous file first
func Write(cfg *Config, path string) error {
	data, err := Render(cfg)
	if err != nil {
		return err
	}

	if prev, err := os.ReadFile(path); err == nil {
		if err := os.WriteFile(path+".back", prev, DefaultFilePermissions); err != nil {
			return errors.Wrap(err, "failed to back up config")
		}
	}

	if err := os.WriteFile(path, data, DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write config file %s", path)
	}
	return nil
}
