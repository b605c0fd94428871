package jsonl

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt/estuary/res"
	"github.com/veldt/estuary/source"
	"github.com/veldt/estuary/stream"
)

func writeExport(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))
	return path
}

func collect(t *testing.T, h source.Handle) []res.Res[source.Record] {
	t.Helper()
	return stream.Collect(h.Produce())
}

func TestReadsTimestampedLines(t *testing.T) {
	path := writeExport(t, `{"timestamp": "2021-06-01T10:00:00Z", "title": "first"}
{"timestamp": "2021-06-01T11:00:00Z", "title": "second"}
`)
	h := NewHandle("notes", Options{Path: path})

	got := collect(t, h)

	require.Len(t, got, 2)
	e := got[0].Value().(Entry)
	assert.Equal(t, time.Date(2021, 6, 1, 10, 0, 0, 0, time.UTC), e.When)
	assert.Equal(t, "first", e.Describe())
}

func TestBrokenLineBecomesErrAndRestSurvives(t *testing.T) {
	path := writeExport(t, `{"timestamp": "2021-06-01T10:00:00Z"}
{not json at all
{"timestamp": "2021-06-01T12:00:00Z"}
`)
	h := NewHandle("notes", Options{Path: path})

	got := collect(t, h)

	require.Len(t, got, 3)
	assert.False(t, got[0].IsErr())
	require.True(t, got[1].IsErr())
	assert.Contains(t, got[1].Failure().Msg, "line 2")
	assert.Equal(t, "notes", got[1].Failure().Source)
	assert.False(t, got[2].IsErr())
}

func TestMissingTimestampBecomesErr(t *testing.T) {
	path := writeExport(t, `{"title": "no time here"}
`)
	h := NewHandle("notes", Options{Path: path})

	got := collect(t, h)

	require.Len(t, got, 1)
	assert.True(t, got[0].IsErr())
}

func TestTimeFieldVariants(t *testing.T) {
	path := writeExport(t, `{"created_at": "2021-06-01"}
{"dt": 1622548800}
{"time": 1622548800000}
`)
	h := NewHandle("notes", Options{Path: path})

	got := collect(t, h)

	require.Len(t, got, 3)
	assert.Equal(t, 2021, got[0].Value().Timestamp().Year())
	assert.Equal(t, time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC), got[1].Value().Timestamp())
	assert.Equal(t, got[1].Value().Timestamp(), got[2].Value().Timestamp(), "ms and s epochs agree")
}

func TestExplicitTimeField(t *testing.T) {
	path := writeExport(t, `{"visited": "2021-06-01T10:00:00Z", "timestamp": "1999-01-01T00:00:00Z"}
`)
	h := NewHandle("notes", Options{Path: path, TimeField: "visited"})

	got := collect(t, h)

	require.Len(t, got, 1)
	assert.Equal(t, 2021, got[0].Value().Timestamp().Year(), "configured field wins over auto-detection")
}

func TestMissingFileIsSingleErr(t *testing.T) {
	h := NewHandle("notes", Options{Path: "/definitely/not/here.jsonl"})

	got := collect(t, h)

	require.Len(t, got, 1)
	assert.True(t, got[0].IsErr())
}

func TestLatLon(t *testing.T) {
	path := writeExport(t, `{"timestamp": "2021-06-01T10:00:00Z", "lat": 52.37, "lon": 4.89}
{"timestamp": "2021-06-01T11:00:00Z", "lat": 52.37, "lng": 4.89}
{"timestamp": "2021-06-01T12:00:00Z"}
`)
	h := NewHandle("walks", Options{Path: path})

	got := collect(t, h)
	require.Len(t, got, 3)

	lat, lon, ok := got[0].Value().(Entry).LatLon()
	assert.True(t, ok)
	assert.InDelta(t, 52.37, lat, 1e-9)
	assert.InDelta(t, 4.89, lon, 1e-9)

	_, _, ok = got[1].Value().(Entry).LatLon()
	assert.True(t, ok, "lng is accepted as the longitude key")

	_, _, ok = got[2].Value().(Entry).LatLon()
	assert.False(t, ok)
}

func TestCodecRoundTrip(t *testing.T) {
	h := NewHandle("notes", Options{Path: "unused"})
	e := Entry{
		When:   time.Date(2021, 6, 1, 10, 0, 0, 0, time.UTC),
		Fields: map[string]any{"title": "hello", "n": float64(3)},
	}

	payload, err := h.Codec.Marshal(e)
	require.NoError(t, err)
	back, err := h.Codec.Unmarshal(payload)
	require.NoError(t, err)

	assert.Equal(t, e, back.(Entry))
}

func TestDepsTrackTheFile(t *testing.T) {
	path := writeExport(t, `{"timestamp": "2021-06-01T10:00:00Z"}
`)
	h := NewHandle("notes", Options{Path: path})
	require.True(t, h.Cacheable())

	deps1, err := h.Deps()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"timestamp": "2021-06-01T10:00:00Z", "more": 1}
`), 0o644))
	require.NoError(t, os.Chtimes(path, time.Now(), time.Now().Add(time.Second)))

	deps2, err := h.Deps()
	require.NoError(t, err)
	assert.NotEqual(t, deps1["file"], deps2["file"])
}
