package cache

import (
	"database/sql"
	"sync"

	"go.uber.org/zap"

	"github.com/veldt/estuary/db"
	"github.com/veldt/estuary/errors"
	"github.com/veldt/estuary/res"
	"github.com/veldt/estuary/source"
	"github.com/veldt/estuary/stream"
)

// Store is the persistent computation cache. One Store is shared by all
// sources of an invocation; the underlying SQLite file is shared across
// process invocations.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
	ownsDB bool

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-fingerprint computation locks
}

// Open opens (and migrates) the cache database at path
func Open(path string, logger *zap.SugaredLogger) (*Store, error) {
	database, err := db.Open(path, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open cache store at %s", path)
	}
	if err := db.Migrate(database, logger); err != nil {
		database.Close()
		return nil, errors.Wrapf(err, "failed to migrate cache store at %s", path)
	}
	s := NewStore(database, logger)
	s.ownsDB = true
	return s, nil
}

// NewStore wraps an already-opened database. The caller keeps ownership
// of the connection; used by tests and by callers pooling connections.
func NewStore(database *sql.DB, logger *zap.SugaredLogger) *Store {
	return &Store{
		db:     database,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Close releases the store's database if the store opened it
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// GetOrCompute returns the source's record sequence, served from the
// persisted snapshot when the fingerprint still matches and recomputed
// otherwise. Sources without cache support pass straight through.
//
// The compute path materializes the adapter's full output exactly once
// and persists it in a single transaction before the first record is
// handed to the consumer, so abandoning the returned sequence mid-pull
// can never leave a partial entry behind. Concurrent callers computing
// the same fingerprint serialize on a per-fingerprint lock; the waiters
// then read the freshly written entry instead of recomputing.
func (s *Store) GetOrCompute(h source.Handle, fp Fingerprint) stream.Seq[source.Record] {
	if !h.Cacheable() {
		return h.Produce()
	}
	return func(yield func(res.Res[source.Record]) bool) {
		for _, r := range s.fetch(h, fp) {
			if !yield(r) {
				return
			}
		}
	}
}

// fetch implements the hit/miss/recompute cycle under the per-fingerprint
// lock
func (s *Store) fetch(h source.Handle, fp Fingerprint) []res.Res[source.Record] {
	lock := s.lockFor(fp.Hash)
	lock.Lock()
	defer lock.Unlock()

	buf, err := s.read(h, fp)
	if err == nil {
		s.logger.Debugw("cache hit",
			"source", h.Name,
			"records", len(buf),
		)
		return buf
	}
	if errors.Is(err, errors.ErrCacheMiss) {
		s.logger.Debugw("cache miss", "source", h.Name)
	} else {
		// corrupt entries are recoverable: recompute, never surface
		s.logger.Warnw("cache entry unreadable, recomputing",
			"source", h.Name,
			"error", err,
		)
	}

	returned, rows := s.materialize(h)
	if err := s.write(h, fp, rows); err != nil {
		// a broken cache write must not fail the query
		s.logger.Warnw("cache write failed",
			"source", h.Name,
			"error", err,
		)
	}
	return returned
}

// row is one persisted record of a snapshot
type row struct {
	kind      string
	payload   []byte
	errSource string
	errMsg    string
}

// materialize runs the adapter's real extraction, buffering its complete
// output. It returns the results for the current call alongside the rows
// to persist. A record the codec cannot serialize is dropped from the
// persisted rows but converted to an Err for the current call, so it is
// never silently lost.
func (s *Store) materialize(h source.Handle) ([]res.Res[source.Record], []row) {
	var returned []res.Res[source.Record]
	var rows []row

	for r := range h.Produce() {
		if f := r.Failure(); f != nil {
			returned = append(returned, r)
			rows = append(rows, row{kind: "err", errSource: f.Source, errMsg: f.Msg})
			continue
		}
		payload, err := h.Codec.Marshal(r.Value())
		if err != nil {
			s.logger.Warnw("record not serializable, dropped from cache",
				"source", h.Name,
				"error", err,
			)
			returned = append(returned, res.Err[source.Record](h.Name, errors.Wrap(err, "record not serializable")))
			continue
		}
		returned = append(returned, r)
		rows = append(rows, row{kind: "ok", payload: payload})
	}
	return returned, rows
}

// read loads a snapshot, returning ErrCacheMiss for absent or
// fingerprint-mismatched entries and a descriptive error for corrupt ones.
// Both cases make the caller recompute.
func (s *Store) read(h source.Handle, fp Fingerprint) ([]res.Res[source.Record], error) {
	var storedFP string
	var count int
	err := s.db.QueryRow(
		"SELECT fingerprint, record_count FROM cache_entries WHERE source = ?", h.Name,
	).Scan(&storedFP, &count)
	if err == sql.ErrNoRows {
		return nil, errors.ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, "read cache entry header")
	}
	if storedFP != fp.Hash {
		return nil, errors.Wrap(errors.ErrCacheMiss, "fingerprint mismatch")
	}

	rows, err := s.db.Query(
		"SELECT kind, payload, err_source, err_msg FROM cache_records WHERE source = ? ORDER BY pos", h.Name,
	)
	if err != nil {
		return nil, errors.Wrap(err, "read cache records")
	}
	defer rows.Close()

	var buf []res.Res[source.Record]
	for rows.Next() {
		var kind string
		var payload []byte
		var errSource, errMsg sql.NullString
		if err := rows.Scan(&kind, &payload, &errSource, &errMsg); err != nil {
			return nil, errors.Wrap(err, "scan cache record")
		}
		switch kind {
		case "ok":
			rec, err := h.Codec.Unmarshal(payload)
			if err != nil {
				return nil, errors.Wrap(err, "decode cached record")
			}
			buf = append(buf, res.Ok(rec))
		case "err":
			buf = append(buf, res.FromFailure[source.Record](&res.Failure{
				Msg:    errMsg.String,
				Source: errSource.String,
			}))
		default:
			return nil, errors.Newf("unknown cache record kind %q", kind)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate cache records")
	}
	if len(buf) != count {
		return nil, errors.Newf("truncated cache entry: %d records, header says %d", len(buf), count)
	}
	return buf, nil
}

// write atomically replaces the source's snapshot. The delete and all
// inserts share one transaction: readers either see the previous complete
// entry or the new complete entry, never a partial write.
func (s *Store) write(h source.Handle, fp Fingerprint, rows []row) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin cache write")
	}
	defer tx.Rollback()

	// another invocation may have finished the same computation while we
	// were extracting; keep its entry
	var existing string
	err = tx.QueryRow("SELECT fingerprint FROM cache_entries WHERE source = ?", h.Name).Scan(&existing)
	if err == nil && existing == fp.Hash {
		return nil
	}
	if err != nil && err != sql.ErrNoRows {
		return errors.Wrap(err, "check existing cache entry")
	}

	if _, err := tx.Exec("DELETE FROM cache_entries WHERE source = ?", h.Name); err != nil {
		return errors.Wrap(err, "evict stale cache entry")
	}
	if _, err := tx.Exec(
		"INSERT INTO cache_entries (source, fingerprint, record_count) VALUES (?, ?, ?)",
		h.Name, fp.Hash, len(rows),
	); err != nil {
		return errors.Wrap(err, "insert cache entry")
	}

	stmt, err := tx.Prepare(
		"INSERT INTO cache_records (source, pos, kind, payload, err_source, err_msg) VALUES (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return errors.Wrap(err, "prepare record insert")
	}
	defer stmt.Close()

	for pos, r := range rows {
		if _, err := stmt.Exec(h.Name, pos, r.kind, r.payload, r.errSource, r.errMsg); err != nil {
			return errors.Wrapf(err, "insert cache record %d", pos)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit cache write")
	}
	s.logger.Debugw("cache entry written",
		"source", h.Name,
		"records", len(rows),
	)
	return nil
}

func (s *Store) lockFor(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Purge removes every cached entry
func (s *Store) Purge() error {
	if _, err := s.db.Exec("DELETE FROM cache_entries"); err != nil {
		return errors.Wrap(err, "purge cache")
	}
	return nil
}

// PurgeSource removes one source's cached entry
func (s *Store) PurgeSource(name string) error {
	if _, err := s.db.Exec("DELETE FROM cache_entries WHERE source = ?", name); err != nil {
		return errors.Wrapf(err, "purge cache for %s", name)
	}
	return nil
}

// EntryInfo describes one cached snapshot for inspection
type EntryInfo struct {
	Source      string
	Fingerprint string
	Records     int
	CreatedAt   string
}

// Entries lists cached snapshots for the cache stats command
func (s *Store) Entries() ([]EntryInfo, error) {
	rows, err := s.db.Query(
		"SELECT source, fingerprint, record_count, created_at FROM cache_entries ORDER BY source",
	)
	if err != nil {
		return nil, errors.Wrap(err, "list cache entries")
	}
	defer rows.Close()

	var out []EntryInfo
	for rows.Next() {
		var e EntryInfo
		if err := rows.Scan(&e.Source, &e.Fingerprint, &e.Records, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan cache entry")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
