package config

import "github.com/veldt/estuary/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Query.DefaultLimit < 0 {
		return errors.Newf("query.default_limit must be >= 0, got %d", c.Query.DefaultLimit)
	}

	for name, sc := range c.Sources {
		if name == "" {
			return errors.New("source section with empty name")
		}
		if !sc.Enabled {
			// disabled sources may be half-configured; skip them
			continue
		}
		switch sc.Type {
		case SourceTypeJSONL, SourceTypeBrowser, SourceTypeGit:
		case "":
			return errors.Newf("sources.%s.type is required", name)
		default:
			return errors.Newf("sources.%s.type %q is not one of jsonl, browser, git", name, sc.Type)
		}
		if sc.Params["path"] == "" {
			return errors.Newf("sources.%s.params.path is required", name)
		}
	}

	switch c.Log.Theme {
	case "", "gruvbox", "everforest":
	default:
		return errors.Newf("log.theme %q is not one of gruvbox, everforest", c.Log.Theme)
	}

	return nil
}
