package spin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/reelgen/reelgen/internal/reel"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// blockingAfter never fires, parking the loop after its first tick.
func blockingAfter(time.Duration) <-chan time.Time {
	return make(chan time.Time)
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRunnerRunsToCompletion(t *testing.T) {
	r := NewRunner(newTestMachine(t), WithSpeed(0))

	var (
		mu      sync.Mutex
		results []Result
		snaps   int
		finals  []Snapshot
	)
	r.OnResult(func(res Result) {
		mu.Lock()
		results = append(results, res)
		mu.Unlock()
	})
	r.Subscribe(func(Snapshot) {
		mu.Lock()
		snaps++
		mu.Unlock()
	})
	r.OnFinish(func(s Snapshot) {
		mu.Lock()
		finals = append(finals, s)
		mu.Unlock()
	})

	assert.Nil(t, r.Done())
	assert.Equal(t, StatusRunning, r.Start("3"))
	require.NoError(t, r.Wait(waitCtx(t)))

	snap := r.Snapshot()
	assert.Equal(t, Finished, snap.State)
	assert.Equal(t, StatusFinished, snap.Status)
	assert.Equal(t, 3, snap.Generated)
	assert.Equal(t, 1.0, snap.Progress)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, results, 3)
	// one snapshot for the start plus one per step
	assert.Equal(t, 1+3*20, snaps)
	require.Len(t, finals, 1)
	assert.Equal(t, 3, finals[0].Generated)
}

func TestRunnerUsesPhaseDelays(t *testing.T) {
	var (
		mu     sync.Mutex
		delays []time.Duration
	)
	after := func(d time.Duration) <-chan time.Time {
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}
	r := NewRunner(newTestMachine(t), WithAfter(after), WithSpeed(2))

	r.Start("1")
	require.NoError(t, r.Wait(waitCtx(t)))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, delays, 19)
	assert.Equal(t, 25*time.Millisecond, delays[0])
	assert.Equal(t, 250*time.Millisecond, delays[18])
}

func TestRunnerStop(t *testing.T) {
	r := NewRunner(newTestMachine(t), WithAfter(blockingAfter))
	r.Start("2")

	require.Eventually(t, func() bool {
		return r.Snapshot().Tick == 1
	}, 5*time.Second, time.Millisecond)

	r.Stop()
	select {
	case <-r.Done():
	default:
		t.Fatal("loop still running after Stop")
	}

	snap := r.Snapshot()
	assert.Equal(t, Spinning, snap.State)
	assert.Equal(t, 1, snap.Tick)

	// Stop is idempotent.
	r.Stop()
}

func TestRunnerRotateRowWhileSpinning(t *testing.T) {
	r := NewRunner(newTestMachine(t), WithAfter(blockingAfter))
	r.Start("1")
	defer r.Stop()

	_, err := r.RotateRow(0, 1, reel.Left)
	assert.ErrorIs(t, err, ErrBusy)
}

func TestRunnerRotateRowWhenIdle(t *testing.T) {
	r := NewRunner(newTestMachine(t))
	before := r.Snapshot().Rows[2]

	var got []Snapshot
	r.Subscribe(func(s Snapshot) { got = append(got, s) })

	snap, err := r.RotateRow(2, 1, reel.Right)
	require.NoError(t, err)
	assert.NotEqual(t, before, snap.Rows[2])
	assert.Len(t, got, 1)

	_, err = r.RotateRow(9, 1, reel.Right)
	assert.ErrorIs(t, err, reel.ErrRowOutOfRange)
	assert.Len(t, got, 1)
}

func TestRunnerRefreshAbandonsRun(t *testing.T) {
	r := NewRunner(newTestMachine(t), WithAfter(blockingAfter))
	r.Start("5")

	require.Eventually(t, func() bool {
		return r.Snapshot().Tick == 1
	}, 5*time.Second, time.Millisecond)

	snap, err := r.Refresh()
	require.NoError(t, err)
	assert.Equal(t, Idle, snap.State)
	assert.Equal(t, StatusReady, snap.Status)
	assert.Empty(t, snap.Results)
	assert.Zero(t, snap.Progress)

	require.NoError(t, r.Wait(waitCtx(t)))
}

func TestRunnerRestart(t *testing.T) {
	r := NewRunner(newTestMachine(t), WithAfter(blockingAfter))
	r.Start("5")
	require.Eventually(t, func() bool {
		return r.Snapshot().Tick == 1
	}, 5*time.Second, time.Millisecond)
	first := r.Done()

	assert.Equal(t, StatusInvalidCount, r.Start("x"))
	defer r.Stop()

	select {
	case <-first:
	default:
		t.Fatal("previous loop still running")
	}
	snap := r.Snapshot()
	assert.Equal(t, 1, snap.Requested)
	assert.Equal(t, uint64(2), snap.Nonce)
}

func TestRunnerWaitCancelled(t *testing.T) {
	r := NewRunner(newTestMachine(t), WithAfter(blockingAfter))
	r.Start("1")
	defer r.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.Canceled)
}
