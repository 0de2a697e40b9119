package api

import (
	"encoding/json"

	"github.com/reelgen/reelgen/internal/spin"
	"github.com/reelgen/reelgen/internal/store"
)

// EngineError represents a structured error response with context
type EngineError struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e EngineError) Error() string {
	return e.Message
}

// Error types
const (
	ErrTypeValidation  = "validation_error"
	ErrTypeInvalidSeed = "invalid_seed"
	ErrTypeInvalidRow  = "invalid_row"
	ErrTypeBusy        = "spin_in_progress"
	ErrTypeNotFound    = "not_found"
	ErrTypeMismatch    = "verification_mismatch"
	ErrTypeStore       = "store_error"
	ErrTypeInternal    = "internal_error"
	ErrTypeUnavailable = "service_unavailable"
)

// StartRequest is the body of POST /api/v1/start. Count is kept as text so
// that invalid input gets the same fallback as the desktop entry box.
type StartRequest struct {
	Count CountInput `json:"count"`
}

// CountInput accepts a JSON string or number.
type CountInput string

func (c *CountInput) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = CountInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*c = CountInput(n.String())
	return nil
}

// RotateRequest is the body of POST /api/v1/rows/{row}/rotate.
type RotateRequest struct {
	Steps     *int   `json:"steps"`
	Direction string `json:"direction"`
}

// StateResponse wraps a snapshot with the persisted session.
type StateResponse struct {
	Snapshot spin.Snapshot `json:"snapshot"`
	Session  store.Session `json:"session"`
}

// VerifyRequest replays seeds. With SessionID set the session's stored results
// are checked; otherwise Count results are replayed and returned.
type VerifyRequest struct {
	ServerSeed string `json:"server_seed"`
	ClientSeed string `json:"client_seed"`
	Count      int    `json:"count"`
	SessionID  string `json:"session_id,omitempty"`
}

type VerifyResponse struct {
	ServerSeedHash string        `json:"server_seed_hash"`
	ClientSeed     string        `json:"client_seed"`
	Results        []spin.Result `json:"results"`
	Verified       *bool         `json:"verified,omitempty"`
	EngineVersion  string        `json:"engine_version"`
}

type SeedHashRequest struct {
	ServerSeed string `json:"server_seed"`
}

type SeedHashResponse struct {
	Hash string `json:"hash"`
}

type ResultsResponse struct {
	SessionID string               `json:"session_id"`
	Results   []store.ResultRecord `json:"results"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
}

// VersionInfo describes the running build.
type VersionInfo struct {
	EngineVersion string `json:"engine_version"`
	GitCommit     string `json:"git_commit"`
	BuildTime     string `json:"build_time"`
}
