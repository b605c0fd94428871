package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt/estuary/res"
	"github.com/veldt/estuary/source"
	"github.com/veldt/estuary/stream"
)

// initRepo creates a repository with commits at the given hour offsets
func initRepo(t *testing.T, authors []string) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	for i, author := range authors {
		name := filepath.Join(dir, "file.txt")
		require.NoError(t, os.WriteFile(name, []byte(author+"\n"), 0o644))
		_, err = wt.Add("file.txt")
		require.NoError(t, err)

		_, err = wt.Commit("change "+author, &gogit.CommitOptions{
			AllowEmptyCommits: true,
			Author: &object.Signature{
				Name:  author,
				Email: author + "@example.com",
				When:  time.Date(2021, 6, 1, 10+i, 0, 0, 0, time.UTC),
			},
		})
		require.NoError(t, err)
	}
	return dir
}

func collect(t *testing.T, h source.Handle) []res.Res[source.Record] {
	t.Helper()
	return stream.Collect(h.Produce())
}

func TestReadsCommits(t *testing.T) {
	dir := initRepo(t, []string{"alice", "bob"})
	h := NewHandle("repo", Options{Path: dir})

	got := collect(t, h)

	require.Len(t, got, 2)
	var subjects []string
	for _, r := range got {
		require.False(t, r.IsErr())
		subjects = append(subjects, r.Value().(Commit).Subject)
	}
	assert.ElementsMatch(t, []string{"change alice", "change bob"}, subjects)
}

func TestAuthorFilter(t *testing.T) {
	dir := initRepo(t, []string{"alice", "bob", "alice"})
	h := NewHandle("repo", Options{Path: dir, Author: "alice@"})

	got := collect(t, h)

	require.Len(t, got, 2)
	for _, r := range got {
		assert.Equal(t, "alice", r.Value().(Commit).Author)
	}
}

func TestMissingRepositoryIsSingleErr(t *testing.T) {
	h := NewHandle("repo", Options{Path: t.TempDir()})

	got := collect(t, h)

	require.Len(t, got, 1)
	require.True(t, got[0].IsErr())
	assert.Equal(t, "repo", got[0].Failure().Source)
}

func TestDepsFollowHead(t *testing.T) {
	dir := initRepo(t, []string{"alice"})
	h := NewHandle("repo", Options{Path: dir})
	require.True(t, h.Cacheable())

	deps1, err := h.Deps()
	require.NoError(t, err)

	// a new commit moves HEAD and must change the fingerprint input
	repo, err := gogit.PlainOpen(dir)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("more\n"), 0o644))
	_, err = wt.Add("file.txt")
	require.NoError(t, err)
	_, err = wt.Commit("another change", &gogit.CommitOptions{
		Author: &object.Signature{Name: "alice", Email: "alice@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	deps2, err := h.Deps()
	require.NoError(t, err)
	assert.NotEqual(t, deps1["head"], deps2["head"])
}

func TestCodecRoundTrip(t *testing.T) {
	h := NewHandle("repo", Options{Path: "unused"})
	c := Commit{
		Hash:    "0123456789abcdef0123456789abcdef01234567",
		Author:  "alice",
		Email:   "alice@example.com",
		Subject: "initial import",
		When:    time.Date(2021, 6, 1, 10, 0, 0, 0, time.UTC),
	}

	payload, err := h.Codec.Marshal(c)
	require.NoError(t, err)
	back, err := h.Codec.Unmarshal(payload)
	require.NoError(t, err)

	assert.Equal(t, c, back.(Commit))
	assert.Equal(t, "0123456 initial import", c.Describe())
	assert.Equal(t, c.Hash, c.DedupKey())
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "first line", subject("first line\n\nbody text"))
	assert.Equal(t, "only line", subject("only line"))
}
