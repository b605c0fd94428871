// Package query layers range filtering, deduplication, reversal and
// limiting on top of the merge engine, and reports per-source health for
// every run.
//
// A Spec is validated eagerly, before any source is pulled: bad bounds or
// selectors are programmer/user errors and fail the query synchronously.
// Data errors never do; they flow through the returned sequence as Err
// entries and are tallied in the run's Summary.
package query
