package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteDB implements the DB interface using SQLite
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens (creating if needed) the database at path. ":memory:"
// gives a private in-memory database.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // one writer; also keeps :memory: on a single connection

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Migrate creates the tables and indexes.
func (s *SQLiteDB) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			server_seed_hash TEXT NOT NULL,
			client_seed TEXT NOT NULL,
			start_nonce INTEGER NOT NULL DEFAULT 0,
			requested INTEGER NOT NULL DEFAULT 0,
			result_count INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			engine_version TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			run_index INTEGER NOT NULL,
			nonce INTEGER NOT NULL,
			result_values TEXT NOT NULL,
			recorded_at TIMESTAMP NOT NULL,
			UNIQUE(session_id, seq),
			FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_results_session_seq ON results(session_id, seq)`,
	}

	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// CreateSession inserts s, assigning an ID and timestamps when missing.
func (s *SQLiteDB) CreateSession(ctx context.Context, sess *Session) error {
	prepareSession(sess)

	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions (
		id, server_seed_hash, client_seed, start_nonce, requested, result_count,
		status, engine_version, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.ServerSeedHash, sess.ClientSeed, sess.StartNonce, sess.Requested,
		sess.ResultCount, sess.Status, sess.EngineVersion, sess.CreatedAt, sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// UpdateSession stores the mutable session fields.
func (s *SQLiteDB) UpdateSession(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET
		requested = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		sess.Requested, sess.Status, sess.UpdatedAt, sess.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", sess.ID, ErrNotFound)
	}
	return nil
}

// GetSession retrieves a session by ID
func (s *SQLiteDB) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT
		id, server_seed_hash, client_seed, start_nonce, requested, result_count,
		status, engine_version, created_at, updated_at
		FROM sessions WHERE id = ?`, id)

	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ListSessions returns sessions newest first.
func (s *SQLiteDB) ListSessions(ctx context.Context, q SessionsQuery) (*SessionsList, error) {
	q = q.normalize()

	where := ""
	var args []any
	if q.Status != "" {
		where = " WHERE status = ?"
		args = append(args, q.Status)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT
		id, server_seed_hash, client_seed, start_nonce, requested, result_count,
		status, engine_version, created_at, updated_at
		FROM sessions`+where+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		append(args, q.PerPage, (q.Page-1)*q.PerPage)...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	list := &SessionsList{
		Sessions:   []Session{},
		TotalCount: total,
		Page:       q.Page,
		PerPage:    q.PerPage,
		TotalPages: totalPages(total, q.PerPage),
	}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list.Sessions = append(list.Sessions, *sess)
	}
	return list, rows.Err()
}

// SaveResult appends r to its session.
func (s *SQLiteDB) SaveResult(ctx context.Context, r *ResultRecord) error {
	values, err := json.Marshal(r.Values)
	if err != nil {
		return err
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now()
	}
	r.RecordedAt = r.RecordedAt.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var seq int
	err = tx.QueryRowContext(ctx, "SELECT result_count FROM sessions WHERE id = ?", r.SessionID).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("session %s: %w", r.SessionID, ErrNotFound)
	}
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO results (
		session_id, seq, run_index, nonce, result_values, recorded_at
	) VALUES (?, ?, ?, ?, ?, ?)`,
		r.SessionID, seq, r.RunIndex, r.Nonce, string(values), r.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE sessions SET result_count = result_count + 1, updated_at = ? WHERE id = ?",
		time.Now().UTC(), r.SessionID); err != nil {
		return fmt.Errorf("bump result count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	r.ID = id
	r.Seq = seq
	return nil
}

// ListResults returns a session's results in log order.
func (s *SQLiteDB) ListResults(ctx context.Context, sessionID string, limit, offset int) ([]ResultRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, session_id, seq, run_index, nonce, result_values, recorded_at
		FROM results WHERE session_id = ? ORDER BY seq LIMIT ? OFFSET ?`,
		sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	out := []ResultRecord{}
	for rows.Next() {
		var r ResultRecord
		var values string
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Seq, &r.RunIndex, &r.Nonce, &values, &r.RecordedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(values), &r.Values); err != nil {
			return nil, fmt.Errorf("decode result %d values: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	err := row.Scan(
		&sess.ID, &sess.ServerSeedHash, &sess.ClientSeed, &sess.StartNonce, &sess.Requested,
		&sess.ResultCount, &sess.Status, &sess.EngineVersion, &sess.CreatedAt, &sess.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func prepareSession(sess *Session) {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	if sess.Status == "" {
		sess.Status = SessionReady
	}
	now := time.Now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now
}
