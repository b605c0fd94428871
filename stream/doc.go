// Package stream implements lazy, pull-based sequences of res.Res records
// and the ordered multi-source merge engine built on top of them.
//
// A Seq is an iter.Seq of Res values: pulling one record from the outermost
// stage pulls minimally from the underlying sources. Stages (range filter,
// dedup, limit) are single forward-cursor transforms; none requires random
// access or a second pass over an unbounded source.
//
// Merge combines any number of per-source sequences into one globally
// ordered sequence in O(N log S) using a priority queue over per-source
// cursors, without materializing any source.
package stream
