package query

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veldt/estuary/cache"
	"github.com/veldt/estuary/errors"
	itesting "github.com/veldt/estuary/internal/testing"
	"github.com/veldt/estuary/res"
	"github.com/veldt/estuary/source"
	"github.com/veldt/estuary/stream"
)

type visitCodec struct{}

type visitWire struct {
	T   time.Time `json:"t"`
	URL string    `json:"url"`
}

func (visitCodec) Marshal(r source.Record) ([]byte, error) {
	v := r.(visit)
	return json.Marshal(visitWire{T: v.t, URL: v.url})
}

func (visitCodec) Unmarshal(b []byte) (source.Record, error) {
	var w visitWire
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	return visit{t: w.T, url: w.URL}, nil
}

func TestRunUsesCacheAcrossInvocations(t *testing.T) {
	db := itesting.CreateTestDB(t)
	store := cache.NewStore(db, zap.NewNop().Sugar())

	calls := 0
	deps := map[string]string{"export": "v1"}
	h := source.Handle{
		Name: "visits",
		Produce: func() stream.Seq[source.Record] {
			calls++
			return stream.Of(visitsAt(1, 2, 3)...)
		},
		Deps:  func() (map[string]string, error) { return deps, nil },
		Codec: visitCodec{},
	}
	reg, err := source.NewRegistry(h)
	require.NoError(t, err)
	e := New(reg, store, zap.NewNop().Sugar())

	got1, _ := runAll(t, e, Spec{})
	got2, _ := runAll(t, e, Spec{})

	assert.Equal(t, 1, calls, "second run must be served from the cache")
	assert.Equal(t, hours(got1), hours(got2))

	// changing a dependency invalidates the snapshot
	deps = map[string]string{"export": "v2"}
	got3, _ := runAll(t, e, Spec{})
	assert.Equal(t, 2, calls)
	assert.Equal(t, []int{1, 2, 3}, hours(got3))
}

func TestRunCachePreservesErrEntries(t *testing.T) {
	db := itesting.CreateTestDB(t)
	store := cache.NewStore(db, zap.NewNop().Sugar())

	calls := 0
	h := source.Handle{
		Name: "flaky",
		Produce: func() stream.Seq[source.Record] {
			calls++
			return stream.Of(
				res.Ok[source.Record](visit{t: at(1), url: "u1"}),
				res.Err[source.Record]("flaky", errors.New("row 2 corrupt")),
				res.Ok[source.Record](visit{t: at(3), url: "u3"}),
			)
		},
		Deps:  func() (map[string]string, error) { return nil, nil },
		Codec: visitCodec{},
	}
	reg, err := source.NewRegistry(h)
	require.NoError(t, err)
	e := New(reg, store, zap.NewNop().Sugar())

	_, sum1 := runAll(t, e, Spec{})
	got2, sum2 := runAll(t, e, Spec{})

	require.Equal(t, 1, calls)
	assert.Equal(t, []int{1, -1, 3}, hours(got2), "cached errors replay in place")
	assert.Equal(t, sum1.PerSource["flaky"].Errors, sum2.PerSource["flaky"].Errors)
	assert.Equal(t, "row 2 corrupt", sum2.PerSource["flaky"].FirstError)
}

func TestRunDepsFailureBypassesCache(t *testing.T) {
	db := itesting.CreateTestDB(t)
	store := cache.NewStore(db, zap.NewNop().Sugar())

	calls := 0
	h := source.Handle{
		Name: "unstable",
		Produce: func() stream.Seq[source.Record] {
			calls++
			return stream.Of(visitsAt(1)...)
		},
		Deps:  func() (map[string]string, error) { return nil, errors.New("stat failed") },
		Codec: visitCodec{},
	}
	reg, err := source.NewRegistry(h)
	require.NoError(t, err)
	e := New(reg, store, zap.NewNop().Sugar())

	got1, _ := runAll(t, e, Spec{})
	got2, _ := runAll(t, e, Spec{})

	assert.Equal(t, 2, calls, "unfingerprintable sources re-extract every run")
	assert.Equal(t, []int{1}, hours(got1))
	assert.Equal(t, []int{1}, hours(got2))
}
