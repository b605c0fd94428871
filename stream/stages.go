package stream

import (
	"go.uber.org/zap"

	"github.com/veldt/estuary/errors"
	"github.com/veldt/estuary/res"
)

// Bound is one end of a key range. Lower bounds are conventionally
// inclusive and upper bounds exclusive; both are explicit here so the
// query surface can expose symmetric flags.
type Bound[K any] struct {
	Key       K
	Inclusive bool
}

// Inclusive returns an inclusive bound
func Inclusive[K any](k K) *Bound[K] {
	return &Bound[K]{Key: k, Inclusive: true}
}

// Exclusive returns an exclusive bound
func Exclusive[K any](k K) *Bound[K] {
	return &Bound[K]{Key: k}
}

// Where keeps records matching pred. Err entries pass through untouched;
// a panicking predicate converts the record to an Err instead of escaping
// the pipeline.
func Where[T any](s Seq[T], pred func(T) bool) Seq[T] {
	return func(yield func(res.Res[T]) bool) {
		for r := range s {
			if r.IsErr() {
				if !yield(r) {
					return
				}
				continue
			}
			keep := res.Map(r, "", func(v T) (bool, error) {
				return pred(v), nil
			})
			if keep.IsErr() {
				if !yield(res.FromFailure[T](keep.Failure())) {
					return
				}
				continue
			}
			if keep.Value() {
				if !yield(r) {
					return
				}
			}
		}
	}
}

// RangeFilter keeps records whose key falls within [lower, upper] under
// the given bound inclusivity; either bound may be nil (open). The input
// must already be ordered in the given direction: once a record passes the
// far bound the stage stops pulling entirely, which is what keeps a
// bounded query cheap over unbounded sources. Err entries inside the
// range pass through; a record whose key cannot be extracted becomes an
// Err in place.
func RangeFilter[T, K any](s Seq[T], key KeyFunc[T, K], less LessFunc[K], lower, upper *Bound[K], ascending bool) Seq[T] {
	below := func(k K, b *Bound[K]) bool {
		// k is before the lower bound
		if b.Inclusive {
			return less(k, b.Key)
		}
		return !less(b.Key, k)
	}
	above := func(k K, b *Bound[K]) bool {
		// k is past the upper bound
		if b.Inclusive {
			return less(b.Key, k)
		}
		return !less(k, b.Key)
	}

	return func(yield func(res.Res[T]) bool) {
		for r := range s {
			if r.IsErr() {
				if !yield(r) {
					return
				}
				continue
			}
			k, err := key(r.Value())
			if err != nil {
				if !yield(res.Err[T]("", errors.Wrap(err, "cannot extract range key"))) {
					return
				}
				continue
			}
			if ascending {
				if upper != nil && above(k, upper) {
					return // past the range, stop pulling
				}
				if lower != nil && below(k, lower) {
					continue
				}
			} else {
				if lower != nil && below(k, lower) {
					return // descending: below the range, stop pulling
				}
				if upper != nil && above(k, upper) {
					continue
				}
			}
			if !yield(r) {
				return
			}
		}
	}
}

// DedupBy drops records whose dedup key was already seen. Err entries are
// never deduplicated. A record whose dedup key cannot be extracted becomes
// an Err in place rather than being silently dropped.
func DedupBy[T any, K comparable](s Seq[T], key KeyFunc[T, K]) Seq[T] {
	return func(yield func(res.Res[T]) bool) {
		seen := make(map[K]struct{})
		for r := range s {
			if r.IsErr() {
				if !yield(r) {
					return
				}
				continue
			}
			k, err := key(r.Value())
			if err != nil {
				if !yield(res.Err[T]("", errors.Wrap(err, "cannot extract dedup key"))) {
					return
				}
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			if !yield(r) {
				return
			}
		}
	}
}

// Limit passes through the first n entries (records and errors alike),
// then stops pulling. n <= 0 yields an empty sequence.
func Limit[T any](s Seq[T], n int) Seq[T] {
	return func(yield func(res.Res[T]) bool) {
		if n <= 0 {
			return
		}
		left := n
		for r := range s {
			if !yield(r) {
				return
			}
			left--
			if left == 0 {
				return
			}
		}
	}
}

// Drop skips the first n entries, then passes the rest through
func Drop[T any](s Seq[T], n int) Seq[T] {
	return func(yield func(res.Res[T]) bool) {
		skipped := 0
		for r := range s {
			if skipped < n {
				skipped++
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

// DropErrors filters Err entries out of the sequence. Dropped entries are
// counted through the optional counter so callers can still report them.
func DropErrors[T any](s Seq[T], dropped *int) Seq[T] {
	return func(yield func(res.Res[T]) bool) {
		for r := range s {
			if r.IsErr() {
				if dropped != nil {
					*dropped++
				}
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

// WarnErrors logs each Err entry as it flows past, without altering the
// sequence
func WarnErrors[T any](s Seq[T], logger *zap.SugaredLogger) Seq[T] {
	return func(yield func(res.Res[T]) bool) {
		for r := range s {
			if f := r.Failure(); f != nil {
				logger.Warnw("broken record in stream",
					"source", f.Source,
					"error", f.Msg,
				)
			}
			if !yield(r) {
				return
			}
		}
	}
}

// Reverse materializes the sequence and replays it backwards. Only safe on
// bounded sequences; the merge engine's Descending mode is the lazy path
// for reversed queries.
func Reverse[T any](s Seq[T]) Seq[T] {
	return func(yield func(res.Res[T]) bool) {
		buf := Collect(s)
		for i := len(buf) - 1; i >= 0; i-- {
			if !yield(buf[i]) {
				return
			}
		}
	}
}
