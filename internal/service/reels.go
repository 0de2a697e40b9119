// Package service ties a spin.Runner to the result store: every start and
// refresh is reflected in a persisted session and every result is appended
// to it.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/reelgen/reelgen/internal/engine"
	"github.com/reelgen/reelgen/internal/reel"
	"github.com/reelgen/reelgen/internal/spin"
	"github.com/reelgen/reelgen/internal/store"
)

const writeTimeout = 5 * time.Second

// ErrSeedHash is returned when a revealed server seed does not hash to the
// value stored with a session.
var ErrSeedHash = errors.New("server seed does not match session hash")

// Reels is the application service shared by the API, the desktop bindings
// and the CLI.
type Reels struct {
	runner *spin.Runner
	db     store.DB
	logger *zap.Logger
	seeds  engine.Seeds
	cfg    spin.Config

	mu      sync.Mutex
	session store.Session
}

// New builds the machine and runner and opens the first session.
func New(ctx context.Context, cfg spin.Config, seeds engine.Seeds, db store.DB, logger *zap.Logger, opts ...spin.RunnerOption) (*Reels, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m, err := spin.NewMachine(cfg, seeds)
	if err != nil {
		return nil, err
	}

	opts = append([]spin.RunnerOption{spin.WithLogger(logger.Named("spin"))}, opts...)
	s := &Reels{
		runner: spin.NewRunner(m, opts...),
		db:     db,
		logger: logger,
		seeds:  seeds,
		cfg:    cfg,
	}
	s.runner.OnResult(s.persistResult)
	s.runner.OnFinish(s.markFinished)

	if err := s.openSession(ctx, 0); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins a run for the raw requested count. Any run in progress is
// stopped first and the session is marked running before the new loop starts,
// so a fast run cannot finish ahead of it.
func (s *Reels) Start(ctx context.Context, raw string) (spin.Snapshot, error) {
	n, _ := spin.ParseRequestedCount(raw)
	s.runner.Stop()

	s.mu.Lock()
	s.session.Requested += n
	s.session.Status = store.SessionRunning
	sess := s.session
	s.mu.Unlock()

	if err := s.db.UpdateSession(ctx, &sess); err != nil {
		return s.runner.Snapshot(), fmt.Errorf("update session: %w", err)
	}

	status := s.runner.Start(raw)
	s.logger.Info("run started",
		zap.String("session", sess.ID),
		zap.Int("requested", n),
		zap.String("status", status))
	return s.runner.Snapshot(), nil
}

// Refresh replaces the grid, closes the current session and opens a new one.
func (s *Reels) Refresh(ctx context.Context) (spin.Snapshot, error) {
	snap, err := s.runner.Refresh()
	if err != nil {
		return snap, err
	}

	s.mu.Lock()
	prev := s.session
	s.mu.Unlock()

	prev.Status = store.SessionClosed
	if err := s.db.UpdateSession(ctx, &prev); err != nil {
		s.logger.Warn("failed to close session", zap.String("session", prev.ID), zap.Error(err))
	}
	if err := s.openSession(ctx, snap.Nonce); err != nil {
		return snap, err
	}
	return snap, nil
}

// RotateRow rotates one row by hand.
func (s *Reels) RotateRow(row, steps int, dir reel.Direction) (spin.Snapshot, error) {
	return s.runner.RotateRow(row, steps, dir)
}

func (s *Reels) Snapshot() spin.Snapshot { return s.runner.Snapshot() }

// Subscribe registers fn for a snapshot after every tick and manual change.
func (s *Reels) Subscribe(fn func(spin.Snapshot)) { s.runner.Subscribe(fn) }

// OnResult registers fn for every recorded result.
func (s *Reels) OnResult(fn func(spin.Result)) { s.runner.OnResult(fn) }

// Wait blocks until the current run ends.
func (s *Reels) Wait(ctx context.Context) error { return s.runner.Wait(ctx) }

// Session returns the current persisted session.
func (s *Reels) Session() store.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *Reels) Seeds() engine.Seeds { return s.seeds }
func (s *Reels) Config() spin.Config { return s.cfg }
func (s *Reels) DB() store.DB { return s.db }

// Close stops the runner and closes the session. The store stays open.
func (s *Reels) Close(ctx context.Context) error {
	s.runner.Stop()

	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()

	sess.Status = store.SessionClosed
	if err := s.db.UpdateSession(ctx, &sess); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

// VerifySession replays a stored session with its revealed server seed and
// returns the recorded results.
func (s *Reels) VerifySession(ctx context.Context, id, serverSeed string) ([]spin.Result, error) {
	return VerifySession(ctx, s.db, s.cfg, id, serverSeed)
}

// VerifySession checks the session's stored hash against serverSeed, then
// replays its log from the session's start nonce.
func VerifySession(ctx context.Context, db store.DB, cfg spin.Config, id, serverSeed string) ([]spin.Result, error) {
	sess, err := db.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if engine.HashServerSeed(serverSeed) != sess.ServerSeedHash {
		return nil, fmt.Errorf("%w: session %s", ErrSeedHash, id)
	}
	recs, err := db.ListResults(ctx, id, 0, 0)
	if err != nil {
		return nil, err
	}

	recorded := make([]spin.Result, len(recs))
	for i, rec := range recs {
		recorded[i] = spin.Result{Index: rec.RunIndex, Nonce: rec.Nonce, Values: rec.Values, RecordedAt: rec.RecordedAt}
	}
	seeds := engine.Seeds{Server: serverSeed, Client: sess.ClientSeed}
	return recorded, spin.VerifyFrom(cfg, seeds, sess.StartNonce, recorded)
}

func (s *Reels) openSession(ctx context.Context, nonce uint64) error {
	sess := store.Session{
		ServerSeedHash: engine.HashServerSeed(s.seeds.Server),
		ClientSeed:     s.seeds.Client,
		StartNonce:     nonce,
		Status:         store.SessionReady,
		EngineVersion:  engine.Version,
	}
	if err := s.db.CreateSession(ctx, &sess); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	s.logger.Info("session opened", zap.String("session", sess.ID), zap.Uint64("nonce", nonce))
	return nil
}

// persistResult runs on the spin loop goroutine.
func (s *Reels) persistResult(r spin.Result) {
	s.mu.Lock()
	id := s.session.ID
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	rec := &store.ResultRecord{
		SessionID:  id,
		RunIndex:   r.Index,
		Nonce:      r.Nonce,
		Values:     r.Values,
		RecordedAt: r.RecordedAt,
	}
	if err := s.db.SaveResult(ctx, rec); err != nil {
		s.logger.Error("failed to save result", zap.String("session", id), zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.session.ID == id {
		s.session.ResultCount++
	}
	s.mu.Unlock()
}

func (s *Reels) markFinished(spin.Snapshot) {
	s.mu.Lock()
	s.session.Status = store.SessionFinished
	sess := s.session
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.db.UpdateSession(ctx, &sess); err != nil {
		s.logger.Error("failed to mark session finished", zap.String("session", sess.ID), zap.Error(err))
	}
}
