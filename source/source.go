// Package source defines the adapter contract every data origin satisfies
// and the explicit registry the query engine is constructed with.
//
// An adapter produces a lazy sequence of record results; it is free to be
// partially broken. Per-record errors are the norm, an adapter that cannot
// produce anything returns an empty sequence rather than failing the whole
// source. No ordering guarantee is required from an adapter in isolation:
// global ordering belongs to the merge engine.
//
// There is no implicit process-wide registry. Callers build a Registry
// value (normally from the config file) and hand it to the query engine.
package source

import (
	"time"

	"github.com/veldt/estuary/errors"
	"github.com/veldt/estuary/stream"
)

// Record is the minimal orderable-key contract shared by all sources:
// every valid record can say when it happened. Nothing else is enforced
// across sources.
type Record interface {
	Timestamp() time.Time
}

// Deduper is implemented by records that carry a natural identity, used
// by the query engine's dedup stage (e.g. a URL for a browser visit).
type Deduper interface {
	DedupKey() string
}

// Describer is implemented by records that can render a one-line summary
// of themselves for tabular output.
type Describer interface {
	Describe() string
}

// Locator is implemented by records that carry a geographic position,
// consumed by the track renderer.
type Locator interface {
	LatLon() (lat, lon float64, ok bool)
}

// Producer is the zero-argument extraction function of an adapter.
// Each call may re-run extraction from scratch; the caching layer exists
// to make repeat calls cheap.
type Producer func() stream.Seq[Record]

// Codec serializes records of one source for the persistent cache.
// A source without a codec simply bypasses caching.
type Codec interface {
	Marshal(Record) ([]byte, error)
	Unmarshal([]byte) (Record, error)
}

// Handle identifies one adapter: a stable name, the extraction function,
// and optional cache/diagnostic metadata.
type Handle struct {
	// Name is the stable source identifier, unique within a registry
	Name string

	// Produce runs extraction and returns the lazy record sequence
	Produce Producer

	// Deps returns the dependency values that make up the adapter's cache
	// fingerprint: the config it reads plus the identity of its inputs
	// (file sizes, mtimes). Nil means the source is not fingerprintable
	// and will not be cached.
	Deps func() (map[string]string, error)

	// Codec persists and restores this source's records. Nil disables
	// caching for the source.
	Codec Codec

	// EstimatedCount is a diagnostic hint, -1 when unknown
	EstimatedCount int

	// Module records where the adapter came from, for diagnostics only
	Module string
}

// Cacheable reports whether the handle carries everything the caching
// layer needs
func (h Handle) Cacheable() bool {
	return h.Deps != nil && h.Codec != nil
}

// Registry is an ordered, explicit collection of source handles.
// Order is significant: it is the merge engine's tie-break for equal keys.
type Registry struct {
	handles []Handle
	byName  map[string]int
}

// NewRegistry builds a registry, rejecting duplicate or empty names
func NewRegistry(handles ...Handle) (*Registry, error) {
	r := &Registry{byName: make(map[string]int, len(handles))}
	for _, h := range handles {
		if h.Name == "" {
			return nil, errors.New("source handle with empty name")
		}
		if _, dup := r.byName[h.Name]; dup {
			return nil, errors.Newf("duplicate source name %q", h.Name)
		}
		r.byName[h.Name] = len(r.handles)
		r.handles = append(r.handles, h)
	}
	return r, nil
}

// Get returns the handle for a source name
func (r *Registry) Get(name string) (Handle, error) {
	i, ok := r.byName[name]
	if !ok {
		return Handle{}, errors.Wrapf(errors.ErrSourceUnknown, "%q", name)
	}
	return r.handles[i], nil
}

// All returns handles in registration order
func (r *Registry) All() []Handle {
	out := make([]Handle, len(r.handles))
	copy(out, r.handles)
	return out
}

// Names returns source names in registration order
func (r *Registry) Names() []string {
	out := make([]string, len(r.handles))
	for i, h := range r.handles {
		out[i] = h.Name
	}
	return out
}

// Len returns the number of registered sources
func (r *Registry) Len() int {
	return len(r.handles)
}

// Timestamp extracts the ordering key from a record, converting nil
// records and zero timestamps into extraction errors so the merge engine
// wraps them as Err instead of sorting garbage.
func Timestamp(rec Record) (time.Time, error) {
	if rec == nil {
		return time.Time{}, errors.New("nil record")
	}
	t := rec.Timestamp()
	if t.IsZero() {
		return time.Time{}, errors.New("record has a zero timestamp")
	}
	return t, nil
}

// DedupKey extracts a record's dedup identity. Records that do not
// implement Deduper fall back to their timestamp, which collapses exact
// duplicates from overlapping exports.
func DedupKey(rec Record) (string, error) {
	if d, ok := rec.(Deduper); ok {
		return d.DedupKey(), nil
	}
	if rec == nil {
		return "", errors.New("nil record")
	}
	return rec.Timestamp().UTC().Format(time.RFC3339Nano), nil
}
