// Package browser reads visit history out of Firefox places.sqlite
// databases. The database is opened read-only and immutable, so a live
// browser profile can be queried without taking its lock.
package browser

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/veldt/estuary/cache"
	"github.com/veldt/estuary/errors"
	"github.com/veldt/estuary/res"
	"github.com/veldt/estuary/source"
	"github.com/veldt/estuary/stream"
)

// Visit is one page visit from the history database
type Visit struct {
	URL   string
	Title string
	When  time.Time
}

func (v Visit) Timestamp() time.Time { return v.When }

// DedupKey collapses the same visit appearing in overlapping profile
// snapshots
func (v Visit) DedupKey() string {
	return v.URL + "|" + v.When.UTC().Format(time.RFC3339Nano)
}

// Describe renders the visit for table output
func (v Visit) Describe() string {
	if v.Title != "" {
		return fmt.Sprintf("%s (%s)", v.Title, v.URL)
	}
	return v.URL
}

// visitQuery pulls visits with their page metadata. visit_date is
// microseconds since the unix epoch in Firefox's schema.
const visitQuery = `
SELECT p.url, COALESCE(p.title, ''), v.visit_date
FROM moz_historyvisits v
JOIN moz_places p ON p.id = v.place_id
ORDER BY v.visit_date`

// Options configures one browser history source
type Options struct {
	Path string // places.sqlite path, typically a profile snapshot
}

// OptionsFromParams builds Options from a config params map
func OptionsFromParams(params map[string]string) (Options, error) {
	if params["path"] == "" {
		return Options{}, errors.New("browser source requires params.path")
	}
	return Options{Path: params["path"]}, nil
}

// NewHandle builds the source handle for one places.sqlite file
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
				"path": opts.Path,
				"file": file,
			}, nil
		},
		Codec:          codec{},
		EstimatedCount: -1,
		Module:         "sources/browser",
	}
}

func read(name string, opts Options) stream.Seq[source.Record] {
	return func(yield func(res.Res[source.Record]) bool) {
		db, err := open(opts.Path)
		if err != nil {
			yield(res.Err[source.Record](name, err))
			return
		}
		defer db.Close()

		rows, err := db.Query(visitQuery)
		if err != nil {
			yield(res.Err[source.Record](name, errors.Wrap(err, "query visit history")))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var rawURL, title string
			var visitDate int64
			if err := rows.Scan(&rawURL, &title, &visitDate); err != nil {
				if !yield(res.Err[source.Record](name, errors.Wrap(err, "scan visit row"))) {
					return
				}
				continue
			}
			if _, err := url.Parse(rawURL); err != nil {
				if !yield(res.Err[source.Record](name, errors.Wrapf(err, "malformed url %q", rawURL))) {
					return
				}
				continue
			}
			v := Visit{
				URL:   rawURL,
				Title: title,
				When:  time.UnixMicro(visitDate).UTC(),
			}
			if !yield(res.Ok[source.Record](v)) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(res.Err[source.Record](name, errors.Wrap(err, "iterate visit history")))
		}
	}
}

// open opens places.sqlite without touching it. immutable also bypasses
// the WAL, which a running Firefox may hold.
func open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&immutable=1", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open history database %s", path)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "open history database %s", path)
	}
	return db, nil
}

// codec persists visits for the computation cache
type codec struct{}

type wire struct {
	URL   string    `json:"url"`
	Title string    `json:"title,omitempty"`
	When  time.Time `json:"when"`
}

func (codec) Marshal(r source.Record) ([]byte, error) {
	v, ok := r.(Visit)
	if !ok {
		return nil, errors.Newf("unexpected record type %T", r)
	}
	return json.Marshal(wire{URL: v.URL, Title: v.Title, When: v.When})
}

func (codec) Unmarshal(b []byte) (source.Record, error) {
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	return Visit{URL: w.URL, Title: w.Title, When: w.When}, nil
}
