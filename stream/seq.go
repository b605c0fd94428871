package stream

import (
	"iter"

	"github.com/veldt/estuary/res"
)

// Seq is a lazy, possibly unbounded sequence of record results.
// A Seq may be iterated at most once unless its producer documents
// restartability; the engine itself never buffers.
type Seq[T any] = iter.Seq[res.Res[T]]

// KeyFunc extracts the ordering (or dedup) key from a valid record.
// A failed extraction converts the record to an Err in place.
type KeyFunc[T, K any] func(T) (K, error)

// LessFunc is a strict total order over keys
type LessFunc[K any] func(a, b K) bool

// Of builds a Seq from already-wrapped results. Restartable.
func Of[T any](items ...res.Res[T]) Seq[T] {
	return func(yield func(res.Res[T]) bool) {
		for _, it := range items {
			if !yield(it) {
				return
			}
		}
	}
}

// FromValues builds a Seq of Ok records. Restartable.
func FromValues[T any](vs ...T) Seq[T] {
	return func(yield func(res.Res[T]) bool) {
		for _, v := range vs {
			if !yield(res.Ok(v)) {
				return
			}
		}
	}
}

// Empty returns a sequence with no records
func Empty[T any]() Seq[T] {
	return func(yield func(res.Res[T]) bool) {}
}

// Collect materializes a full sequence. Test and renderer helper;
// never used inside the engine.
func Collect[T any](s Seq[T]) []res.Res[T] {
	var out []res.Res[T]
	for r := range s {
		out = append(out, r)
	}
	return out
}

// Values materializes only the Ok values of a sequence
func Values[T any](s Seq[T]) []T {
	var out []T
	for r := range s {
		if !r.IsErr() {
			out = append(out, r.Value())
		}
	}
	return out
}

// Count consumes the sequence and returns (ok, err) tallies
func Count[T any](s Seq[T]) (oks, errs int) {
	for r := range s {
		if r.IsErr() {
			errs++
		} else {
			oks++
		}
	}
	return oks, errs
}
