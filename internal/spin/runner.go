package spin

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/reelgen/reelgen/internal/reel"
)

// Runner is the timer that drives a Machine. Ticks and manual operations are
// serialised by a mutex; observers run outside it, possibly from different
// goroutines.
type Runner struct {
	ctl sync.Mutex // serialises Start, Refresh and Stop
	mu  sync.Mutex // guards m, observers and the loop handles

	m      *Machine
	logger *zap.Logger
	after  func(time.Duration) <-chan time.Time
	speed  float64

	observers []func(Snapshot)
	onResult  []func(Result)
	onFinish  []func(Snapshot)

	cancel context.CancelFunc
	done   chan struct{}
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithAfter replaces the timer, mainly for tests.
func WithAfter(after func(time.Duration) <-chan time.Time) RunnerOption {
	return func(r *Runner) { r.after = after }
}

// WithSpeed divides every phase delay by s. Zero or less skips the delays.
func WithSpeed(s float64) RunnerOption {
	return func(r *Runner) { r.speed = s }
}

// NewRunner wraps m. The Runner takes ownership; do not call m directly
// afterwards.
func NewRunner(m *Machine, opts ...RunnerOption) *Runner {
	r := &Runner{
		m:      m,
		logger: zap.NewNop(),
		speed:  1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe registers fn to receive a snapshot after every event.
func (r *Runner) Subscribe(fn func(Snapshot)) {
	r.mu.Lock()
	r.observers = append(r.observers, fn)
	r.mu.Unlock()
}

// OnResult registers fn to receive every recorded result.
func (r *Runner) OnResult(fn func(Result)) {
	r.mu.Lock()
	r.onResult = append(r.onResult, fn)
	r.mu.Unlock()
}

// OnFinish registers fn to run once the last requested result is recorded.
func (r *Runner) OnFinish(fn func(Snapshot)) {
	r.mu.Lock()
	r.onFinish = append(r.onFinish, fn)
	r.mu.Unlock()
}

// Start begins a run for the raw requested count, replacing any run in
// progress, and returns the status line.
func (r *Runner) Start(raw string) string {
	return r.start(func(m *Machine) string { return m.Start(raw) })
}

// StartCount is Start with a numeric count.
func (r *Runner) StartCount(n int) string {
	return r.start(func(m *Machine) string { return m.StartCount(n) })
}

func (r *Runner) start(begin func(*Machine) string) string {
	r.ctl.Lock()
	defer r.ctl.Unlock()
	r.stopLoop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	r.mu.Lock()
	status := begin(r.m)
	snap := r.m.Snapshot()
	r.cancel, r.done = cancel, done
	observers := r.observers
	r.mu.Unlock()

	r.logger.Info("spin started",
		zap.Int("requested", snap.Requested),
		zap.Uint64("nonce", snap.Nonce),
		zap.String("status", status))
	notify(observers, snap)

	go r.loop(ctx, done)
	return status
}

// Refresh stops any run and replaces the grid.
func (r *Runner) Refresh() (Snapshot, error) {
	r.ctl.Lock()
	defer r.ctl.Unlock()
	r.stopLoop()

	r.mu.Lock()
	err := r.m.Refresh()
	snap := r.m.Snapshot()
	observers := r.observers
	r.mu.Unlock()
	if err != nil {
		return snap, err
	}

	r.logger.Info("grid refreshed", zap.Uint64("nonce", snap.Nonce))
	notify(observers, snap)
	return snap, nil
}

// RotateRow rotates one row by hand. It fails with ErrBusy during a spin.
func (r *Runner) RotateRow(row, steps int, dir reel.Direction) (Snapshot, error) {
	r.mu.Lock()
	err := r.m.RotateRow(row, steps, dir)
	snap := r.m.Snapshot()
	observers := r.observers
	r.mu.Unlock()
	if err != nil {
		return snap, err
	}

	r.logger.Debug("row rotated",
		zap.Int("row", row),
		zap.Int("steps", steps),
		zap.String("direction", string(dir)))
	notify(observers, snap)
	return snap, nil
}

// Snapshot returns the current machine view.
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m.Snapshot()
}

// Done returns a channel closed when the current run ends, or nil when no run
// was ever started.
func (r *Runner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Wait blocks until the current run ends or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	done := r.Done()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancels the current run and waits for its goroutine to exit. The
// machine keeps its state.
func (r *Runner) Stop() {
	r.ctl.Lock()
	defer r.ctl.Unlock()
	r.stopLoop()
}

// stopLoop must be called with ctl held.
func (r *Runner) stopLoop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel = nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (r *Runner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		r.mu.Lock()
		st, err := r.m.Step()
		snap := r.m.Snapshot()
		observers, onResult, onFinish := r.observers, r.onResult, r.onFinish
		r.mu.Unlock()

		if err != nil {
			r.logger.Error("spin tick failed", zap.Error(err))
			notify(observers, snap)
			return
		}
		if st.Idle {
			return
		}

		if st.Result != nil {
			r.logger.Info("result recorded",
				zap.Int("index", st.Result.Index),
				zap.Uint64("nonce", st.Result.Nonce),
				zap.Ints("values", st.Result.Values))
			for _, fn := range onResult {
				fn(*st.Result)
			}
		}
		notify(observers, snap)

		if st.Done {
			r.logger.Info("spin finished", zap.Int("results", snap.Generated))
			for _, fn := range onFinish {
				fn(snap)
			}
			return
		}

		if !r.wait(ctx, st.Delay) {
			r.logger.Debug("spin loop cancelled")
			return
		}
	}
}

// wait sleeps for the scaled delay and reports false when ctx ends first.
func (r *Runner) wait(ctx context.Context, d time.Duration) bool {
	if r.speed <= 0 {
		d = 0
	} else if r.speed != 1 {
		d = time.Duration(float64(d) / r.speed)
	}
	if d <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}

	if r.after != nil {
		select {
		case <-ctx.Done():
			return false
		case <-r.after(d):
			return true
		}
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func notify(observers []func(Snapshot), snap Snapshot) {
	for _, fn := range observers {
		fn(snap)
	}
}
