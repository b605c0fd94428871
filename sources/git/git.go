// Package git reads commit history from local repositories, turning each
// commit into a timestamped record. Work on a codebase is personal data
// too; merged into a timeline it sits alongside visits and notes.
package git

import (
	"encoding/json"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/veldt/estuary/errors"
	"github.com/veldt/estuary/res"
	"github.com/veldt/estuary/source"
	"github.com/veldt/estuary/stream"
)

// Commit is one commit from a repository's history
type Commit struct {
	Hash    string
	Author  string
	Email   string
	Subject string
	When    time.Time
}

func (c Commit) Timestamp() time.Time { return c.When }

// DedupKey is the commit hash; the same commit reachable from several
// clones is one event
func (c Commit) DedupKey() string { return c.Hash }

// Describe renders the commit for table output
func (c Commit) Describe() string {
	short := c.Hash
	if len(short) > 7 {
		short = short[:7]
	}
	return short + " " + c.Subject
}

// Options configures one git source
type Options struct {
	Path   string // repository working directory
	Author string // optional filter on author email substring
}

// OptionsFromParams builds Options from a config params map
func OptionsFromParams(params map[string]string) (Options, error) {
	if params["path"] == "" {
		return Options{}, errors.New("git source requires params.path")
	}
	return Options{
		Path:   params["path"],
		Author: params["author"],
	}, nil
}

// NewHandle builds the source handle for one repository
func NewHandle(name string, opts Options) source.Handle {
	return source.Handle{
		Name:    name,
		Produce: func() stream.Seq[source.Record] { return read(name, opts) },
		Deps: func() (map[string]string, error) {
			// HEAD identifies the history; any new commit moves it
			repo, err := gogit.PlainOpen(opts.Path)
			if err != nil {
				return nil, errors.Wrapf(err, "open repository %s", opts.Path)
			}
			head, err := repo.Head()
			if err != nil {
				return nil, errors.Wrapf(err, "resolve HEAD of %s", opts.Path)
			}
			return map[string]string{
				"path":   opts.Path,
				"head":   head.Hash().String(),
				"author": opts.Author,
			}, nil
		},
		Codec:          codec{},
		EstimatedCount: -1,
		Module:         "sources/git",
	}
}

func read(name string, opts Options) stream.Seq[source.Record] {
	return func(yield func(res.Res[source.Record]) bool) {
		repo, err := gogit.PlainOpen(opts.Path)
		if err != nil {
			yield(res.Err[source.Record](name, errors.Wrapf(err, "open repository %s", opts.Path)))
			return
		}

		iter, err := repo.Log(&gogit.LogOptions{All: true})
		if err != nil {
			yield(res.Err[source.Record](name, errors.Wrap(err, "read commit log")))
			return
		}
		defer iter.Close()

		stopped := false
		err = iter.ForEach(func(c *object.Commit) error {
			if opts.Author != "" && !strings.Contains(c.Author.Email, opts.Author) {
				return nil
			}
			rec := Commit{
				Hash:    c.Hash.String(),
				Author:  c.Author.Name,
				Email:   c.Author.Email,
				Subject: subject(c.Message),
				When:    c.Author.When.UTC(),
			}
			if !yield(res.Ok[source.Record](rec)) {
				stopped = true
				return errors.New("stop")
			}
			return nil
		})
		if err != nil && !stopped {
			yield(res.Err[source.Record](name, errors.Wrap(err, "iterate commits")))
		}
	}
}

// subject returns the first line of a commit message
func subject(message string) string {
	if i := strings.IndexByte(message, '\n'); i >= 0 {
		return message[:i]
	}
	return message
}

// codec persists commits for the computation cache
type codec struct{}

type wire struct {
	Hash    string    `json:"hash"`
	Author  string    `json:"author"`
	Email   string    `json:"email"`
	Subject string    `json:"subject"`
	When    time.Time `json:"when"`
}

func (codec) Marshal(r source.Record) ([]byte, error) {
	c, ok := r.(Commit)
	if !ok {
		return nil, errors.Newf("unexpected record type %T", r)
	}
	return json.Marshal(wire(c))
}

func (codec) Unmarshal(b []byte) (source.Record, error) {
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	return Commit(w), nil
}
