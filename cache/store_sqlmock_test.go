package cache

// Failure-path tests that are awkward to provoke with a real SQLite file:
// the store must keep serving freshly extracted records even when the
// backing database refuses reads or writes.

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veldt/estuary/errors"
	"github.com/veldt/estuary/res"
	"github.com/veldt/estuary/source"
	"github.com/veldt/estuary/stream"
)

func TestWriteFailureStillReturnsRecords(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	// header lookup misses, then the write transaction fails to open
	mock.ExpectQuery("SELECT fingerprint, record_count FROM cache_entries").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectBegin().WillReturnError(errors.New("disk I/O error"))

	s := NewStore(mockDB, zap.NewNop().Sugar())

	calls := 0
	h := countingHandle("notes", &calls,
		res.Ok[source.Record](noteAt(1, "one")),
		res.Ok[source.Record](noteAt(2, "two")),
	)
	fp := NewFingerprint(h.Name, h.Module, nil)

	got := stream.Collect(s.GetOrCompute(h, fp))

	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"one", "two"}, texts(got), "cache trouble never fails the query")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadErrorFallsBackToCompute(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	// header row exists with a matching fingerprint, but the records
	// query fails; the store must recompute rather than surface the error
	fp := NewFingerprint("notes", "", nil)
	mock.ExpectQuery("SELECT fingerprint, record_count FROM cache_entries").
		WillReturnRows(sqlmock.NewRows([]string{"fingerprint", "record_count"}).AddRow(fp.Hash, 1))
	mock.ExpectQuery("SELECT kind, payload, err_source, err_msg FROM cache_records").
		WillReturnError(errors.New("database is locked"))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT fingerprint FROM cache_entries").
		WillReturnRows(sqlmock.NewRows([]string{"fingerprint"}))
	mock.ExpectExec("DELETE FROM cache_entries").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO cache_entries").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectPrepare("INSERT INTO cache_records")
	mock.ExpectExec("INSERT INTO cache_records").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	s := NewStore(mockDB, zap.NewNop().Sugar())

	calls := 0
	h := countingHandle("notes", &calls, res.Ok[source.Record](noteAt(1, "one")))

	got := stream.Collect(s.GetOrCompute(h, fp))

	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"one"}, texts(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}
