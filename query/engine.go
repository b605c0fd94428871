package query

import (
	"go.uber.org/zap"

	"github.com/veldt/estuary/cache"
	"github.com/veldt/estuary/source"
	"github.com/veldt/estuary/stream"
)

// Engine runs queries against a registry of sources, optionally backed by
// a persistent cache. The engine itself is stateless across runs.
type Engine struct {
	registry *source.Registry
	cache    *cache.Store
	logger   *zap.SugaredLogger
}

// New builds an engine. cache may be nil, in which case every run
// re-extracts from the sources.
func New(registry *source.Registry, store *cache.Store, logger *zap.SugaredLogger) *Engine {
	return &Engine{
		registry: registry,
		cache:    store,
		logger:   logger,
	}
}

// Run resolves the spec against the registry and returns the lazy result
// sequence plus its Summary. The spec and source selection are validated
// eagerly; data errors show up as Err entries in the sequence instead.
// The Summary fills in as the sequence is consumed.
func (e *Engine) Run(spec Spec) (stream.Seq[source.Record], *Summary, error) {
	if err := spec.Validate(); err != nil {
		return nil, nil, err
	}

	handles, err := e.resolve(spec.Sources)
	if err != nil {
		return nil, nil, err
	}

	sum := NewSummary()
	e.logger.Debugw("starting query run",
		"run_id", sum.RunID,
		"sources", len(handles),
		"reverse", spec.Reverse,
	)

	merged := e.merge(handles, spec, sum)

	s := merged
	if spec.Where != nil {
		s = stream.Where(s, spec.Where)
	}
	s = stream.RangeFilter(s, source.Timestamp, stream.TimeAsc,
		spec.lowerBound(), spec.upperBound(), !spec.Reverse)
	if spec.Dedup {
		s = stream.DedupBy(s, source.DedupKey)
	}
	if spec.DropErrors {
		// hidden errors still get a log line; the summary only keeps counts
		s = stream.WarnErrors(s, e.logger)
		s = stream.DropErrors(s, &sum.DroppedErrors)
	}
	if spec.Drop > 0 {
		s = stream.Drop(s, spec.Drop)
	}
	if spec.Limit > 0 {
		s = stream.Limit(s, spec.Limit)
	}
	return s, sum, nil
}

// resolve maps source names to handles, preserving registry order when the
// selection is empty. An unknown name fails the whole run: a typo should
// not silently query fewer sources.
func (e *Engine) resolve(names []string) ([]source.Handle, error) {
	if len(names) == 0 {
		return e.registry.All(), nil
	}
	handles := make([]source.Handle, 0, len(names))
	for _, name := range names {
		h, err := e.registry.Get(name)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// merge builds the observed per-source sequences and combines them into
// one globally ordered stream. Adapters emit ascending sequences; for a
// reversed run each source is replayed backwards before the descending
// merge, so reversal stays local to one source at a time instead of
// buffering the combined result.
func (e *Engine) merge(handles []source.Handle, spec Spec, sum *Summary) stream.Seq[source.Record] {
	sources := make([]stream.Source[source.Record], len(handles))
	for i, h := range handles {
		seq := e.sourceSeq(h)
		if spec.Reverse {
			seq = stream.Reverse(seq)
		}
		sources[i] = stream.Source[source.Record]{
			Name:    h.Name,
			Records: sum.Observe(h.Name, seq),
		}
	}
	return stream.Merge(sources, source.Timestamp, stream.TimeAsc, stream.MergeOptions{
		Descending:   spec.Reverse,
		DropUnsorted: spec.DropUnsorted,
		Diag:         sum.Merge,
		Logger:       e.logger,
	})
}

// sourceSeq returns one source's record sequence, going through the cache
// when the engine has one and the handle supports it. A failing Deps
// function degrades to a direct extraction; it never fails the run.
func (e *Engine) sourceSeq(h source.Handle) stream.Seq[source.Record] {
	if e.cache == nil || !h.Cacheable() {
		return h.Produce()
	}
	deps, err := h.Deps()
	if err != nil {
		e.logger.Warnw("cannot fingerprint source, bypassing cache",
			"source", h.Name,
			"error", err,
		)
		return h.Produce()
	}
	fp := cache.NewFingerprint(h.Name, h.Module, deps)
	return e.cache.GetOrCompute(h, fp)
}
