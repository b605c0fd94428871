// Package sources builds the source registry out of the configuration,
// mapping each [sources.<name>] section to its adapter.
package sources

import (
	"github.com/veldt/estuary/config"
	"github.com/veldt/estuary/errors"
	"github.com/veldt/estuary/source"
	"github.com/veldt/estuary/sources/browser"
	"github.com/veldt/estuary/sources/git"
	"github.com/veldt/estuary/sources/jsonl"
)

// BuildRegistry constructs the registry from the enabled sources in cfg.
// Registry order follows config.EnabledSources (sorted by name), so merge
// tie-breaking is stable across runs.
func BuildRegistry(cfg *config.Config) (*source.Registry, error) {
	var handles []source.Handle
	for _, name := range cfg.EnabledSources() {
		h, err := buildHandle(name, cfg.Sources[name])
		if err != nil {
			return nil, errors.Wrapf(err, "source %s", name)
		}
		handles = append(handles, h)
	}
	return source.NewRegistry(handles...)
}

func buildHandle(name string, sc config.SourceConfig) (source.Handle, error) {
	switch sc.Type {
	case config.SourceTypeJSONL:
		opts, err := jsonl.OptionsFromParams(sc.Params)
		if err != nil {
			return source.Handle{}, err
		}
		return jsonl.NewHandle(name, opts), nil

	case config.SourceTypeBrowser:
		opts, err := browser.OptionsFromParams(sc.Params)
		if err != nil {
			return source.Handle{}, err
		}
		return browser.NewHandle(name, opts), nil

	case config.SourceTypeGit:
		opts, err := git.OptionsFromParams(sc.Params)
		if err != nil {
			return source.Handle{}, err
		}
		return git.NewHandle(name, opts), nil

	default:
		return source.Handle{}, errors.Newf("unknown source type %q", sc.Type)
	}
}
