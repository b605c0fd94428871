package render

import (
	"encoding/json"
	"io"
	"time"

	"github.com/veldt/estuary/source"
	"github.com/veldt/estuary/stream"
)

// errorLine is the wire shape of an Err entry in JSON-lines output.
// Consumers can filter on the "error" key.
type errorLine struct {
	Error  string `json:"error"`
	Source string `json:"source,omitempty"`
}

type recordLine struct {
	Time   time.Time     `json:"time"`
	Record source.Record `json:"record"`
}

// JSONL renders one JSON object per line, streaming as the sequence is
// pulled. Err entries become {"error": ...} lines in place.
func JSONL(w io.Writer, seq stream.Seq[source.Record]) error {
	enc := json.NewEncoder(w)
	for r := range seq {
		var line any
		if f := r.Failure(); f != nil {
			line = errorLine{Error: f.Msg, Source: f.Source}
		} else {
			line = recordLine{Time: r.Value().Timestamp().UTC(), Record: r.Value()}
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}
