package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("not found")

// DB represents the result log storage
type DB interface {
	Close() error
	Migrate(ctx context.Context) error
	CreateSession(ctx context.Context, s *Session) error
	UpdateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, q SessionsQuery) (*SessionsList, error)
	// SaveResult appends r to the session log and bumps the session's
	// result count in the same transaction.
	SaveResult(ctx context.Context, r *ResultRecord) error
	ListResults(ctx context.Context, sessionID string, limit, offset int) ([]ResultRecord, error)
}

// Session statuses.
const (
	SessionReady    = "ready"
	SessionRunning  = "running"
	SessionFinished = "finished"
	SessionClosed   = "closed"
)

// Session is the span between two refreshes of the grid.
type Session struct {
	ID             string    `json:"id"`
	ServerSeedHash string    `json:"server_seed_hash"`
	ClientSeed     string    `json:"client_seed"`
	StartNonce     uint64    `json:"start_nonce"`
	Requested      int       `json:"requested"`
	ResultCount    int       `json:"result_count"`
	Status         string    `json:"status"`
	EngineVersion  string    `json:"engine_version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ResultRecord is one persisted result. Seq is the position in the session
// log; RunIndex is the index within its start.
type ResultRecord struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Seq        int       `json:"seq"`
	RunIndex   int       `json:"run_index"`
	Nonce      uint64    `json:"nonce"`
	Values     []int     `json:"values"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SessionsQuery represents query parameters for listing sessions
type SessionsQuery struct {
	Status  string `json:"status,omitempty"`
	Page    int    `json:"page"`
	PerPage int    `json:"perPage"`
}

// SessionsList represents a paginated sessions response
type SessionsList struct {
	Sessions   []Session `json:"sessions"`
	TotalCount int       `json:"totalCount"`
	Page       int       `json:"page"`
	PerPage    int       `json:"perPage"`
	TotalPages int       `json:"totalPages"`
}

func (q SessionsQuery) normalize() SessionsQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = 50
	}
	if q.PerPage > 500 {
		q.PerPage = 500
	}
	return q
}

func totalPages(total, perPage int) int {
	if total == 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
