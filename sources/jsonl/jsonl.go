// Package jsonl reads timestamped records from JSON-lines export files,
// the common denominator of personal-data takeouts. One line is one
// record; a line that fails to parse becomes an Err entry carrying its
// line number, and the rest of the file keeps flowing.
package jsonl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/veldt/estuary/cache"
	"github.com/veldt/estuary/errors"
	"github.com/veldt/estuary/res"
	"github.com/veldt/estuary/source"
	"github.com/veldt/estuary/stream"
)

// timeFields are tried in order when no explicit time_field is configured
var timeFields = []string{"timestamp", "time", "created_at", "dt", "date"}

// Entry is one parsed line of an export file
type Entry struct {
	When   time.Time
	Fields map[string]any
}

func (e Entry) Timestamp() time.Time { return e.When }

// DedupKey collapses identical lines from overlapping exports
func (e Entry) DedupKey() string {
	raw, err := json.Marshal(e.Fields)
	if err != nil {
		return e.When.UTC().Format(time.RFC3339Nano)
	}
	return e.When.UTC().Format(time.RFC3339Nano) + "|" + string(raw)
}

// Describe renders a short summary for table output
func (e Entry) Describe() string {
	for _, k := range []string{"title", "name", "text", "body", "url"} {
		if v, ok := e.Fields[k].(string); ok && v != "" {
			return v
		}
	}
	return fmt.Sprintf("%d fields", len(e.Fields))
}

// LatLon exposes coordinates when the line carries lat/lon pairs
func (e Entry) LatLon() (lat, lon float64, ok bool) {
	lat, latOK := asFloat(e.Fields["lat"])
	lon, lonOK := asFloat(e.Fields["lon"])
	if !lonOK {
		lon, lonOK = asFloat(e.Fields["lng"])
	}
	return lat, lon, latOK && lonOK
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

// Options configures one jsonl source
type Options struct {
	Path      string
	TimeField string // empty = auto-detect from timeFields
}

// OptionsFromParams builds Options from a config params map
func OptionsFromParams(params map[string]string) (Options, error) {
	if params["path"] == "" {
		return Options{}, errors.New("jsonl source requires params.path")
	}
	return Options{
		Path:      params["path"],
		TimeField: params["time_field"],
	}, nil
}

// NewHandle builds the source handle for one export file
func NewHandle(name string, opts Options) source.Handle {
	return source.Handle{
		Name:    name,
		Produce: func() stream.Seq[source.Record] { return read(name, opts) },
		Deps: func() (map[string]string, error) {
			file, err := cache.DepFile(opts.Path)
			if err != nil {
				return nil, err
			}
			return map[string]string{
				"path":       opts.Path,
				"file":       file,
				"time_field": opts.TimeField,
			}, nil
		},
		Codec:          codec{},
		EstimatedCount: -1,
		Module:         "sources/jsonl",
	}
}

func read(name string, opts Options) stream.Seq[source.Record] {
	return func(yield func(res.Res[source.Record]) bool) {
		f, err := os.Open(opts.Path)
		if err != nil {
			yield(res.Err[source.Record](name, errors.Wrapf(err, "open export %s", opts.Path)))
			return
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var fields map[string]any
			if err := json.Unmarshal(line, &fields); err != nil {
				if !yield(res.Err[source.Record](name, errors.Wrapf(err, "line %d", lineNo))) {
					return
				}
				continue
			}

			when, err := extractTime(fields, opts.TimeField)
			if err != nil {
				if !yield(res.Err[source.Record](name, errors.Wrapf(err, "line %d", lineNo))) {
					return
				}
				continue
			}

			if !yield(res.Ok[source.Record](Entry{When: when, Fields: fields})) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(res.Err[source.Record](name, errors.Wrapf(err, "read export %s", opts.Path)))
		}
	}
}

// extractTime finds and parses the record timestamp. Accepts RFC3339
// strings, date-only strings, and unix epochs in seconds or milliseconds.
func extractTime(fields map[string]any, field string) (time.Time, error) {
	candidates := timeFields
	if field != "" {
		candidates = []string{field}
	}
	for _, k := range candidates {
		v, ok := fields[k]
		if !ok {
			continue
		}
		return parseTime(v, k)
	}
	return time.Time{}, errors.Newf("no timestamp field among %v", candidates)
}

func parseTime(v any, field string) (time.Time, error) {
	switch x := v.(type) {
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, x); err == nil {
				return t, nil
			}
		}
		if epoch, err := strconv.ParseInt(x, 10, 64); err == nil {
			return fromEpoch(epoch), nil
		}
		return time.Time{}, errors.Newf("unparsable %s value %q", field, x)
	case float64:
		return fromEpoch(int64(x)), nil
	default:
		return time.Time{}, errors.Newf("%s has unsupported type %T", field, v)
	}
}

// fromEpoch interprets large epochs as milliseconds, the rest as seconds
func fromEpoch(epoch int64) time.Time {
	if epoch > 1e12 {
		return time.UnixMilli(epoch).UTC()
	}
	return time.Unix(epoch, 0).UTC()
}

// codec persists entries for the computation cache
type codec struct{}

type wire struct {
	When   time.Time      `json:"when"`
	Fields map[string]any `json:"fields"`
}

func (codec) Marshal(r source.Record) ([]byte, error) {
	e, ok := r.(Entry)
	if !ok {
		return nil, errors.Newf("unexpected record type %T", r)
	}
	return json.Marshal(wire{When: e.When, Fields: e.Fields})
}

func (codec) Unmarshal(b []byte) (source.Record, error) {
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	return Entry{When: w.When, Fields: w.Fields}, nil
}
