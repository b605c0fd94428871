package query

import (
	"time"

	"github.com/veldt/estuary/errors"
	"github.com/veldt/estuary/source"
	"github.com/veldt/estuary/stream"
)

// Spec is the validated set of query parameters. Build one, Validate it,
// hand it to Engine.Run; it is not mutated afterwards.
type Spec struct {
	// Sources selects a subset of the registry by name; empty means all
	Sources []string

	// Since is the inclusive lower bound on the ordering key
	Since *time.Time

	// Until is the upper bound on the ordering key, exclusive unless
	// IncludeUntil is set. [since, until) is the default, matching how
	// people slice timelines into days and months.
	Until        *time.Time
	IncludeUntil bool

	// Reverse emits newest records first
	Reverse bool

	// Limit caps the number of emitted entries; 0 means unlimited
	Limit int

	// Drop skips the first N entries after filtering
	Drop int

	// Dedup drops records whose dedup key was already seen
	Dedup bool

	// DropErrors removes Err entries from the output. Their count is
	// still reported in the Summary.
	DropErrors bool

	// DropUnsorted drops records that arrive out of order within their
	// source instead of re-inserting them by true key
	DropUnsorted bool

	// Where keeps only records matching the predicate; nil keeps all
	Where func(source.Record) bool
}

// Validate rejects impossible specs before any source is pulled
func (s Spec) Validate() error {
	if s.Limit < 0 {
		return errors.Wrapf(errors.ErrInvalidQuery, "limit must be >= 0, got %d", s.Limit)
	}
	if s.Drop < 0 {
		return errors.Wrapf(errors.ErrInvalidQuery, "drop must be >= 0, got %d", s.Drop)
	}
	if s.Since != nil && s.Until != nil {
		if s.Until.Before(*s.Since) {
			err := errors.Wrapf(errors.ErrInvalidQuery,
				"until (%s) precedes since (%s)",
				s.Until.Format(time.RFC3339), s.Since.Format(time.RFC3339))
			return errors.WithHint(err, "swap the --since and --until values")
		}
	}
	return nil
}

// lowerBound translates Since into a range bound; lower bounds are always
// inclusive
func (s Spec) lowerBound() *stream.Bound[time.Time] {
	if s.Since == nil {
		return nil
	}
	return stream.Inclusive(*s.Since)
}

// upperBound translates Until into a range bound, exclusive unless the
// caller opted in to closing the interval
func (s Spec) upperBound() *stream.Bound[time.Time] {
	if s.Until == nil {
		return nil
	}
	if s.IncludeUntil {
		return stream.Inclusive(*s.Until)
	}
	return stream.Exclusive(*s.Until)
}
