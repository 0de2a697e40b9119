// Package bindings exposes the reel service to the desktop frontend. Every
// exported App method is bound by wails and callable from JavaScript.
package bindings

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"github.com/reelgen/reelgen/internal/config"
	"github.com/reelgen/reelgen/internal/engine"
	"github.com/reelgen/reelgen/internal/reel"
	"github.com/reelgen/reelgen/internal/service"
	"github.com/reelgen/reelgen/internal/spin"
	"github.com/reelgen/reelgen/internal/store"
)

// Events emitted to the frontend.
const (
	EventTick   = "reels:tick"
	EventResult = "reels:result"
)

// ErrNotReady is returned by calls made before Startup has succeeded.
var ErrNotReady = errors.New("reels not started")

// Emitter sends an event to the frontend.
type Emitter func(ctx context.Context, event string, data ...any)

type Option func(*App)

// WithEmitter replaces runtime.EventsEmit.
func WithEmitter(e Emitter) Option {
	return func(a *App) { a.emit = e }
}

// WithStore uses db instead of opening the configured store. App does not
// close a store it did not open.
func WithStore(db store.DB) Option {
	return func(a *App) { a.db = db }
}

// WithRunnerOptions passes options through to the spin runner.
func WithRunnerOptions(opts ...spin.RunnerOption) Option {
	return func(a *App) { a.runnerOpts = append(a.runnerOpts, opts...) }
}

// WithOnReady registers fn to run once Startup has built the service, for
// wiring extra surfaces such as the local HTTP API.
func WithOnReady(fn func(ctx context.Context, reels *service.Reels)) Option {
	return func(a *App) { a.onReady = append(a.onReady, fn) }
}

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	emit       Emitter
	runnerOpts []spin.RunnerOption
	onReady    []func(context.Context, *service.Reels)

	mu      sync.RWMutex
	ctx     context.Context
	db      store.DB
	ownsDB  bool
	reels   *service.Reels
	startup error
}

func New(cfg config.Config, logger *zap.Logger, opts ...Option) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:    cfg,
		logger: logger.Named("bindings"),
		emit:   runtime.EventsEmit,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Startup opens the store and the reel service. A failure is kept and
// returned from every later call so the window can still show it.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ctx = ctx
	a.startup = a.init(ctx)
	if a.startup != nil {
		a.logger.Error("startup failed", zap.Error(a.startup))
	}
}

func (a *App) init(ctx context.Context) error {
	seeds, err := a.cfg.Seeds.Resolve()
	if err != nil {
		return err
	}

	if a.db == nil {
		db, err := store.Open(ctx, a.cfg.Store)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		a.db, a.ownsDB = db, true
	}

	opts := append([]spin.RunnerOption{spin.WithSpeed(a.cfg.Speed)}, a.runnerOpts...)
	reels, err := service.New(ctx, a.cfg.Spin, seeds, a.db, a.logger, opts...)
	if err != nil {
		return err
	}
	reels.Subscribe(func(snap spin.Snapshot) { a.emit(ctx, EventTick, snap) })
	reels.OnResult(func(r spin.Result) { a.emit(ctx, EventResult, r) })
	a.reels = reels
	for _, fn := range a.onReady {
		fn(ctx, reels)
	}

	a.logger.Info("reels ready",
		zap.String("server_seed_hash", engine.HashServerSeed(seeds.Server)),
		zap.String("client_seed", seeds.Client),
		zap.String("store", a.cfg.Store.Driver))
	return nil
}

// Shutdown stops any run and closes the store if App opened it.
func (a *App) Shutdown(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.reels != nil {
		if err := a.reels.Close(ctx); err != nil {
			a.logger.Warn("failed to close session", zap.Error(err))
		}
		a.reels = nil
	}
	if a.db != nil && a.ownsDB {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close store", zap.Error(err))
		}
		a.db = nil
	}
}

func (a *App) ready() (*service.Reels, context.Context, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.startup != nil {
		return nil, nil, a.startup
	}
	if a.reels == nil {
		return nil, nil, ErrNotReady
	}
	return a.reels, a.ctx, nil
}

// Start begins a run. count is the raw text from the entry box.
func (a *App) Start(count string) (spin.Snapshot, error) {
	r, ctx, err := a.ready()
	if err != nil {
		return spin.Snapshot{}, err
	}
	return r.Start(ctx, count)
}

func (a *App) Refresh() (spin.Snapshot, error) {
	r, ctx, err := a.ready()
	if err != nil {
		return spin.Snapshot{}, err
	}
	return r.Refresh(ctx)
}

// RotateRow applies a drag of steps positions to one row.
func (a *App) RotateRow(row, steps int, direction string) (spin.Snapshot, error) {
	r, _, err := a.ready()
	if err != nil {
		return spin.Snapshot{}, err
	}
	dir, err := reel.ParseDirection(direction)
	if err != nil {
		return r.Snapshot(), err
	}
	return r.RotateRow(row, steps, dir)
}

func (a *App) Snapshot() (spin.Snapshot, error) {
	r, _, err := a.ready()
	if err != nil {
		return spin.Snapshot{}, err
	}
	return r.Snapshot(), nil
}

func (a *App) Session() (store.Session, error) {
	r, _, err := a.ready()
	if err != nil {
		return store.Session{}, err
	}
	return r.Session(), nil
}

func (a *App) Sessions(status string, page, perPage int) (*store.SessionsList, error) {
	r, ctx, err := a.ready()
	if err != nil {
		return nil, err
	}
	return r.DB().ListSessions(ctx, store.SessionsQuery{Status: status, Page: page, PerPage: perPage})
}

func (a *App) Results(sessionID string, limit, offset int) ([]store.ResultRecord, error) {
	r, ctx, err := a.ready()
	if err != nil {
		return nil, err
	}
	return r.DB().ListResults(ctx, sessionID, limit, offset)
}

// VerifyResult reports a session replay.
type VerifyResult struct {
	SessionID string        `json:"session_id"`
	Verified  bool          `json:"verified"`
	Message   string        `json:"message,omitempty"`
	Results   []spin.Result `json:"results"`
}

// Verify replays a stored session with its revealed server seed. A mismatch
// is reported in the result, not as an error.
func (a *App) Verify(sessionID, serverSeed string) (VerifyResult, error) {
	r, ctx, err := a.ready()
	if err != nil {
		return VerifyResult{}, err
	}
	results, err := r.VerifySession(ctx, sessionID, serverSeed)
	res := VerifyResult{SessionID: sessionID, Results: results, Verified: err == nil}
	switch {
	case err == nil:
	case errors.Is(err, spin.ErrMismatch), errors.Is(err, service.ErrSeedHash):
		res.Message = err.Error()
	default:
		return VerifyResult{}, err
	}
	return res, nil
}

func (a *App) HashServerSeed(server string) string {
	return engine.HashServerSeed(server)
}

// VersionInfo describes the running build.
type VersionInfo struct {
	EngineVersion string `json:"engine_version"`
	GitCommit     string `json:"git_commit"`
	BuildTime     string `json:"build_time"`
}

func (a *App) Version() VersionInfo {
	return VersionInfo{
		EngineVersion: engine.Version,
		GitCommit:     engine.GitCommit,
		BuildTime:     engine.BuildTime,
	}
}
