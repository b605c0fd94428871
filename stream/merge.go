package stream

import (
	"container/heap"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/veldt/estuary/errors"
	"github.com/veldt/estuary/res"
)

// Source pairs a stable source name with its record sequence for merging.
// Registration order is the tie-break for equal keys, so callers should
// pass sources in a deterministic order.
type Source[T any] struct {
	Name    string
	Records Seq[T]
}

// MergeDiag accumulates per-source diagnostics while a merge runs.
// Counters are only valid once the merged sequence has been consumed.
type MergeDiag struct {
	// OutOfOrder counts records whose key went backwards relative to the
	// previously pulled key from the same source
	OutOfOrder map[string]int
	// DroppedUnsorted counts out-of-order records dropped because the
	// caller asked for DropUnsorted
	DroppedUnsorted map[string]int
}

// NewMergeDiag returns an empty diagnostics accumulator
func NewMergeDiag() *MergeDiag {
	return &MergeDiag{
		OutOfOrder:      make(map[string]int),
		DroppedUnsorted: make(map[string]int),
	}
}

func (d *MergeDiag) outOfOrder(source string) {
	if d == nil {
		return
	}
	d.OutOfOrder[source]++
}

func (d *MergeDiag) droppedUnsorted(source string) {
	if d == nil {
		return
	}
	d.DroppedUnsorted[source]++
}

// MergeOptions tunes Merge behavior. The zero value is an ascending merge
// that repairs local disorder by re-inserting records at their true key.
type MergeOptions struct {
	// Descending runs the merge in reverse order. Each source's local
	// order must match the merge direction; this is not a post-hoc
	// reversal of an unbounded sequence.
	Descending bool

	// DropUnsorted drops records whose key goes backwards within their
	// source instead of re-inserting them. Drops are counted in Diag.
	DropUnsorted bool

	// Diag, when non-nil, receives per-source disorder counts
	Diag *MergeDiag

	// Logger, when non-nil, gets a debug line per detected inversion
	Logger *zap.SugaredLogger
}

// mergeItem is one heap entry: the next keyed record of a source, plus any
// unkeyed Err entries pulled from that source since its previous keyed
// record. Pending errors are emitted immediately before the record so they
// keep their position in the source's local order.
type mergeItem[T, K any] struct {
	key     K
	src     int
	pos     int
	rec     res.Res[T]
	pending []res.Res[T]
}

type mergeHeap[T, K any] struct {
	items []*mergeItem[T, K]
	less  func(a, b *mergeItem[T, K]) bool
}

func (h *mergeHeap[T, K]) Len() int           { return len(h.items) }
func (h *mergeHeap[T, K]) Less(i, j int) bool { return h.less(h.items[i], h.items[j]) }
func (h *mergeHeap[T, K]) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *mergeHeap[T, K]) Push(x any) {
	h.items = append(h.items, x.(*mergeItem[T, K]))
}

func (h *mergeHeap[T, K]) Pop() any {
	n := len(h.items)
	it := h.items[n-1]
	h.items[n-1] = nil
	h.items = h.items[:n-1]
	return it
}

// Merge combines the sources into one globally ordered sequence.
//
// One cursor is kept per source; the source whose next valid record has the
// smallest key (largest when Descending) is emitted and advanced. Err
// entries have no key: they attach to the next keyed record of their source
// and are emitted right before it, or after the merge drains if their
// source produced no further keyed records. A record whose key cannot be
// extracted is converted to an Err at this boundary.
//
// Sources are not required to be internally sorted. A key that goes
// backwards within its source is detected, counted in opts.Diag, and
// re-inserted at its true key; correction is local to the heap's lookahead,
// so arbitrary disorder is a diagnostic condition rather than something the
// engine claims to fully repair.
//
// Equal keys break ties by source registration order, then by original
// position within the source. Complexity is O(N log S) for N records over
// S sources; no source is ever materialized.
func Merge[T, K any](sources []Source[T], key KeyFunc[T, K], less LessFunc[K], opts MergeOptions) Seq[T] {
	return func(yield func(res.Res[T]) bool) {
		type cursor struct {
			next    func() (res.Res[T], bool)
			stop    func()
			pos     int
			pending []res.Res[T]
			done    bool
		}

		cursors := make([]*cursor, len(sources))
		for i := range sources {
			next, stop := iter.Pull(sources[i].Records)
			cursors[i] = &cursor{next: next, stop: stop}
		}
		defer func() {
			for _, c := range cursors {
				c.stop()
			}
		}()

		watermark := make([]K, len(sources))
		hasMark := make([]bool, len(sources))

		h := &mergeHeap[T, K]{
			less: func(a, b *mergeItem[T, K]) bool {
				if less(a.key, b.key) {
					return !opts.Descending
				}
				if less(b.key, a.key) {
					return opts.Descending
				}
				if a.src != b.src {
					return a.src < b.src
				}
				return a.pos < b.pos
			},
		}

		// advance pulls from source i until its next keyed record lands on
		// the heap or the source is exhausted. Errors encountered on the
		// way accumulate on the cursor.
		advance := func(i int) {
			c := cursors[i]
			if c.done {
				return
			}
			name := sources[i].Name
			for {
				r, ok := c.next()
				if !ok {
					c.done = true
					return
				}
				pos := c.pos
				c.pos++

				if r.IsErr() {
					c.pending = append(c.pending, r)
					continue
				}

				k, err := key(r.Value())
				if err != nil {
					c.pending = append(c.pending, res.Err[T](name, errors.Wrap(err, "cannot extract ordering key")))
					continue
				}

				if hasMark[i] {
					inverted := less(k, watermark[i])
					if opts.Descending {
						inverted = less(watermark[i], k)
					}
					if inverted {
						opts.Diag.outOfOrder(name)
						if opts.Logger != nil {
							opts.Logger.Debugw("out-of-order record",
								"source", name,
								"position", pos,
							)
						}
						if opts.DropUnsorted {
							opts.Diag.droppedUnsorted(name)
							continue
						}
						// keep the watermark at its high point and let the
						// heap place the record by its true key
						heap.Push(h, &mergeItem[T, K]{key: k, src: i, pos: pos, rec: r, pending: c.pending})
						c.pending = nil
						return
					}
				}
				watermark[i] = k
				hasMark[i] = true

				heap.Push(h, &mergeItem[T, K]{key: k, src: i, pos: pos, rec: r, pending: c.pending})
				c.pending = nil
				return
			}
		}

		for i := range sources {
			advance(i)
		}

		for h.Len() > 0 {
			it := heap.Pop(h).(*mergeItem[T, K])
			for _, p := range it.pending {
				if !yield(p) {
					return
				}
			}
			if !yield(it.rec) {
				return
			}
			advance(it.src)
		}

		// trailing errors from sources that exhausted without another
		// keyed record
		for _, c := range cursors {
			for _, p := range c.pending {
				if !yield(p) {
					return
				}
			}
		}
	}
}

// TimeAsc orders time.Time keys ascending; the standard key order for
// personal-data timelines.
func TimeAsc(a, b time.Time) bool {
	return a.Before(b)
}
