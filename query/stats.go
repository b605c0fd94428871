package query

import (
	"github.com/google/uuid"

	"github.com/veldt/estuary/res"
	"github.com/veldt/estuary/source"
	"github.com/veldt/estuary/stream"
)

// SourceHealth tallies one source's output
type SourceHealth struct {
	OK         int
	Errors     int
	FirstError string
}

// Summary is the per-run observability record: per-source ok/error
// counts with a first error sample, merge disorder diagnostics, and the
// number of errors the caller asked to drop. It fills in as the returned
// sequence is consumed and is complete once the sequence is exhausted.
// It never changes control flow.
type Summary struct {
	// RunID ties log lines of one invocation together
	RunID string

	PerSource map[string]*SourceHealth
	order     []string

	// Merge holds out-of-order diagnostics from the merge engine
	Merge *stream.MergeDiag

	// DroppedErrors counts Err entries removed because the caller
	// requested error-free output
	DroppedErrors int
}

// NewSummary returns an empty summary with a fresh run id
func NewSummary() *Summary {
	return &Summary{
		RunID:     uuid.NewString(),
		PerSource: make(map[string]*SourceHealth),
		Merge:     stream.NewMergeDiag(),
	}
}

// Sources returns observed source names in registration order
func (s *Summary) Sources() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// TotalOK sums valid records across sources
func (s *Summary) TotalOK() int {
	n := 0
	for _, h := range s.PerSource {
		n += h.OK
	}
	return n
}

// TotalErrors sums failures across sources. Dropped errors are already
// in the per-source tallies; DroppedErrors only records how many of them
// were hidden from the output.
func (s *Summary) TotalErrors() int {
	n := 0
	for _, h := range s.PerSource {
		n += h.Errors
	}
	return n
}

func (s *Summary) health(name string) *SourceHealth {
	h, ok := s.PerSource[name]
	if !ok {
		h = &SourceHealth{}
		s.PerSource[name] = h
		s.order = append(s.order, name)
	}
	return h
}

// Observe wraps one source's sequence so every entry is classified and
// counted as it flows past, without altering the sequence for downstream
// consumers. Errors are attributed to the failure's own source when it
// carries one, falling back to the observed source's name.
func (s *Summary) Observe(name string, seq stream.Seq[source.Record]) stream.Seq[source.Record] {
	s.health(name) // register even if the source turns out empty
	return func(yield func(res.Res[source.Record]) bool) {
		for r := range seq {
			if f := r.Failure(); f != nil {
				attributed := f.Source
				if attributed == "" {
					attributed = name
				}
				h := s.health(attributed)
				h.Errors++
				if h.FirstError == "" {
					h.FirstError = f.Msg
				}
			} else {
				s.health(name).OK++
			}
			if !yield(r) {
				return
			}
		}
	}
}

// Probe consumes an entire sequence and returns its health tally.
// Used by the doctor command, where the records themselves are discarded.
func Probe(seq stream.Seq[source.Record]) SourceHealth {
	var h SourceHealth
	for r := range seq {
		if f := r.Failure(); f != nil {
			h.Errors++
			if h.FirstError == "" {
				h.FirstError = f.Msg
			}
			continue
		}
		h.OK++
	}
	return h
}
