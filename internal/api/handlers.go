package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/reelgen/reelgen/internal/engine"
	"github.com/reelgen/reelgen/internal/reel"
	"github.com/reelgen/reelgen/internal/service"
	"github.com/reelgen/reelgen/internal/spin"
	"github.com/reelgen/reelgen/internal/store"
)

// maxVerifyCount bounds stateless replays.
const maxVerifyCount = 1000

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, StateResponse{
		Snapshot: s.reels.Snapshot(),
		Session:  s.reels.Session(),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "Invalid JSON: "+err.Error())
		return
	}

	snap, err := s.reels.Start(r.Context(), string(req.Count))
	if err != nil {
		s.errorHandler.HandleError(w, r, s.storeError(r, err))
		return
	}
	s.writeJSON(w, http.StatusAccepted, StateResponse{Snapshot: snap, Session: s.reels.Session()})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.reels.Refresh(r.Context())
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, StateResponse{Snapshot: snap, Session: s.reels.Session()})
}

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	row, err := strconv.Atoi(chi.URLParam(r, "row"))
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "row", "row must be an integer")
		return
	}

	var req RotateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "Invalid JSON: "+err.Error())
		return
	}
	dir, err := reel.ParseDirection(req.Direction)
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "direction", "direction must be left or right")
		return
	}
	if req.Steps == nil {
		s.errorHandler.HandleValidationError(w, r, "steps", "steps is required")
		return
	}

	// Zero steps leaves the row as it is.
	snap, err := s.reels.RotateRow(row, *req.Steps, dir)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, StateResponse{Snapshot: snap, Session: s.reels.Session()})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	q := store.SessionsQuery{Status: r.URL.Query().Get("status")}

	var err error
	if q.Page, err = queryInt(r, "page"); err != nil {
		s.errorHandler.HandleValidationError(w, r, "page", "page must be a positive integer")
		return
	}
	if q.PerPage, err = queryInt(r, "perPage"); err != nil {
		s.errorHandler.HandleValidationError(w, r, "perPage", "perPage must be a positive integer")
		return
	}

	list, err := s.reels.DB().ListSessions(r.Context(), q)
	if err != nil {
		s.errorHandler.HandleError(w, r, s.storeError(r, err))
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.reels.DB().GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.errorHandler.HandleError(w, r, s.storeError(r, err))
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSessionResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "limit", "limit must be a positive integer")
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "offset", "offset must be a positive integer")
		return
	}

	if _, err := s.reels.DB().GetSession(r.Context(), id); err != nil {
		s.errorHandler.HandleError(w, r, s.storeError(r, err))
		return
	}
	recs, err := s.reels.DB().ListResults(r.Context(), id, limit, offset)
	if err != nil {
		s.errorHandler.HandleError(w, r, s.storeError(r, err))
		return
	}
	s.writeJSON(w, http.StatusOK, ResultsResponse{
		SessionID: id,
		Results:   recs,
		Limit:     limit,
		Offset:    offset,
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "Invalid JSON: "+err.Error())
		return
	}
	if req.ServerSeed == "" {
		s.errorHandler.HandleValidationError(w, r, "server_seed", "server_seed is required")
		return
	}

	if req.SessionID != "" {
		s.verifySession(w, r, req)
		return
	}

	if req.ClientSeed == "" {
		s.errorHandler.HandleValidationError(w, r, "client_seed", "client_seed is required")
		return
	}
	if req.Count < 1 || req.Count > maxVerifyCount {
		s.errorHandler.HandleValidationError(w, r, "count", "count must be between 1 and "+strconv.Itoa(maxVerifyCount))
		return
	}

	seeds := engine.Seeds{Server: req.ServerSeed, Client: req.ClientSeed}
	results, err := spin.Replay(s.reels.Config(), seeds, req.Count)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, VerifyResponse{
		ServerSeedHash: engine.HashServerSeed(req.ServerSeed),
		ClientSeed:     req.ClientSeed,
		Results:        results,
		EngineVersion:  engine.Version,
	})
}

func (s *Server) verifySession(w http.ResponseWriter, r *http.Request, req VerifyRequest) {
	results, err := s.reels.VerifySession(r.Context(), req.SessionID, req.ServerSeed)
	if errors.Is(err, service.ErrSeedHash) {
		engineErr := NewError(ErrTypeInvalidSeed, "server seed does not match the session").
			WithRequestID(middleware.GetReqID(r.Context())).
			WithContext("session_id", req.SessionID).
			Build()
		s.errorHandler.logError(r, engineErr, http.StatusBadRequest)
		s.errorHandler.writeErrorResponse(w, http.StatusBadRequest, engineErr)
		return
	}

	verified := err == nil
	if err != nil && !errors.Is(err, spin.ErrMismatch) {
		s.errorHandler.HandleError(w, r, s.storeError(r, err))
		return
	}
	if !verified {
		s.logger.Warn("session failed verification",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
	}

	sess := s.reels.Session()
	if got, gerr := s.reels.DB().GetSession(r.Context(), req.SessionID); gerr == nil {
		sess = *got
	}
	s.writeJSON(w, http.StatusOK, VerifyResponse{
		ServerSeedHash: sess.ServerSeedHash,
		ClientSeed:     sess.ClientSeed,
		Results:        results,
		Verified:       &verified,
		EngineVersion:  engine.Version,
	})
}

func (s *Server) handleSeedHash(w http.ResponseWriter, r *http.Request) {
	var req SeedHashRequest
	if err := decodeJSON(r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "Invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.ServerSeed) == "" {
		s.errorHandler.HandleValidationError(w, r, "server_seed", "server_seed is required")
		return
	}
	s.writeJSON(w, http.StatusOK, SeedHashResponse{Hash: engine.HashServerSeed(req.ServerSeed)})
}

// storeError tags store failures other than not-found as store errors.
func (s *Server) storeError(r *http.Request, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return err
	}
	return NewError(ErrTypeStore, "Storage operation failed").
		WithRequestID(middleware.GetReqID(r.Context())).
		WithCause(err).
		WithContext("path", r.URL.Path).
		Build()
}

// queryInt reads a non-negative integer query parameter; absent means 0.
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}
