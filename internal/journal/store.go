// Package journal persists the lifecycle of pricing attempts in SQLite so
// that superseded and committed attempts can be inspected after the fact.
package journal

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
)

// Entry is one attempt. Settlement fields are empty until it completes.
type Entry struct {
	SessionID    string
	Sequence     uint64
	Trigger      string
	ProductID    string
	ConfigDigest string
	IssuedAt     time.Time
	SettledAt    time.Time
	Outcome      string
	Duration     time.Duration
	RequestID    string
	Error        string
}

// Settled reports whether the attempt's completion was recorded.
func (e Entry) Settled() bool { return e.Outcome != "" }

// Session summarises the attempts of one coordinator session.
type Session struct {
	SessionID string
	ProductID string
	Attempts  int
	Committed int
	Failed    int
	Discarded int
	FirstSeen time.Time
	LastSeen  time.Time
}

// Query filters List. Zero values mean no filter; Limit <= 0 means 100.
type Query struct {
	SessionID string
	Outcome   string
	Limit     int
}

// Store is an SQLite backed attempt journal.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (or creates) the journal at path. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryJournal, "open sqlite database").
			WithContext("path", path).
			Build()
	}
	// One connection: an in-memory database is private to its connection,
	// and SQLite serialises writers anyway.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryJournal, "initialize journal schema").Build()
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attempts (
		session_id    TEXT NOT NULL,
		sequence      INTEGER NOT NULL,
		trigger_kind  TEXT NOT NULL,
		product_id    TEXT NOT NULL,
		config_digest TEXT NOT NULL,
		issued_at     INTEGER NOT NULL,
		settled_at    INTEGER,
		outcome       TEXT,
		duration_ms   INTEGER,
		request_id    TEXT,
		error         TEXT,
		PRIMARY KEY (session_id, sequence)
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_issued ON attempts(issued_at);
	CREATE INDEX IF NOT EXISTS idx_attempts_outcome ON attempts(outcome);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordIssued inserts a new attempt.
func (s *Store) RecordIssued(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (session_id, sequence, trigger_kind, product_id, config_digest, issued_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, sequence) DO NOTHING`,
		e.SessionID, int64(e.Sequence), e.Trigger, e.ProductID, e.ConfigDigest, e.IssuedAt.UnixMilli(),
	)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryJournal, "insert attempt").
			WithContext("session_id", e.SessionID).
			WithContext("sequence", e.Sequence).
			Build()
	}
	return nil
}

// RecordSettled stores the outcome of an attempt. A settlement for an
// attempt never seen as issued is inserted as a complete row.
func (s *Store) RecordSettled(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (session_id, sequence, trigger_kind, product_id, config_digest, issued_at,
		                       settled_at, outcome, duration_ms, request_id, error)
		 VALUES (?, ?, ?, '', '', ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, sequence) DO UPDATE SET
		   settled_at  = excluded.settled_at,
		   outcome     = excluded.outcome,
		   duration_ms = excluded.duration_ms,
		   request_id  = excluded.request_id,
		   error       = excluded.error`,
		e.SessionID, int64(e.Sequence), e.Trigger, e.SettledAt.Add(-e.Duration).UnixMilli(),
		e.SettledAt.UnixMilli(), e.Outcome, e.Duration.Milliseconds(), e.RequestID, e.Error,
	)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryJournal, "record settlement").
			WithContext("session_id", e.SessionID).
			WithContext("sequence", e.Sequence).
			Build()
	}
	return nil
}

// List returns attempts, newest first.
func (s *Store) List(ctx context.Context, q Query) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, sequence, trigger_kind, product_id, config_digest, issued_at,
		        settled_at, outcome, duration_ms, request_id, error
		 FROM attempts
		 WHERE (? = '' OR session_id = ?) AND (? = '' OR outcome = ?)
		 ORDER BY issued_at DESC, sequence DESC
		 LIMIT ?`,
		q.SessionID, q.SessionID, q.Outcome, q.Outcome, limit,
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryJournal, "query attempts").Build()
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                   Entry
			seq, issued         int64
			settled, durationMS sql.NullInt64
			outcome, requestID  sql.NullString
			errText             sql.NullString
		)
		if err := rows.Scan(&e.SessionID, &seq, &e.Trigger, &e.ProductID, &e.ConfigDigest, &issued,
			&settled, &outcome, &durationMS, &requestID, &errText); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryJournal, "scan attempt").Build()
		}
		e.Sequence = uint64(seq)
		e.IssuedAt = time.UnixMilli(issued)
		if settled.Valid {
			e.SettledAt = time.UnixMilli(settled.Int64)
		}
		e.Outcome = outcome.String
		e.Duration = time.Duration(durationMS.Int64) * time.Millisecond
		e.RequestID = requestID.String
		e.Error = errText.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryJournal, "iterate attempts").Build()
	}
	return out, nil
}

// Sessions summarises every recorded session, most recent first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, MAX(product_id), COUNT(*),
		        SUM(CASE WHEN outcome = 'committed' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN outcome = 'failed' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN outcome = 'discarded' THEN 1 ELSE 0 END),
		        MIN(issued_at), MAX(issued_at)
		 FROM attempts
		 GROUP BY session_id
		 ORDER BY MAX(issued_at) DESC`)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryJournal, "query sessions").Build()
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			sess        Session
			first, last int64
		)
		if err := rows.Scan(&sess.SessionID, &sess.ProductID, &sess.Attempts,
			&sess.Committed, &sess.Failed, &sess.Discarded, &first, &last); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryJournal, "scan session").Build()
		}
		sess.FirstSeen = time.UnixMilli(first)
		sess.LastSeen = time.UnixMilli(last)
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryJournal, "iterate sessions").Build()
	}
	return out, nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
