package spin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelgen/reelgen/internal/engine"
	"github.com/reelgen/reelgen/internal/reel"
)

func TestReplayDeterministic(t *testing.T) {
	a, err := Replay(DefaultConfig(), testSeeds, 4)
	require.NoError(t, err)
	b, err := Replay(DefaultConfig(), testSeeds, 4)
	require.NoError(t, err)

	require.Len(t, a, 4)
	for i := range a {
		assert.Equal(t, a[i].Values, b[i].Values)
		assert.Equal(t, a[i].Nonce, b[i].Nonce)
	}

	other, err := Replay(DefaultConfig(), engine.Seeds{Server: "other", Client: testSeeds.Client}, 4)
	require.NoError(t, err)
	assert.NotEqual(t, a[0].Values, other[0].Values)
}

func TestReplayMatchesMachine(t *testing.T) {
	m := newTestMachine(t)
	m.Start("3")
	runToCompletion(t, m)

	replayed, err := Replay(DefaultConfig(), testSeeds, 3)
	require.NoError(t, err)
	for i, r := range m.Results() {
		assert.Equal(t, r.Values, replayed[i].Values)
	}
}

func TestReplayInvalidCount(t *testing.T) {
	_, err := Replay(DefaultConfig(), testSeeds, 0)
	assert.ErrorIs(t, err, ErrInvalidCount)
}

func TestVerify(t *testing.T) {
	results, err := Replay(DefaultConfig(), testSeeds, 2)
	require.NoError(t, err)

	require.NoError(t, Verify(DefaultConfig(), testSeeds, results))
	require.NoError(t, Verify(DefaultConfig(), testSeeds, nil))

	tampered := append([]Result(nil), results...)
	tampered[1].Values = append([]int(nil), results[1].Values...)
	tampered[1].Values[0]++
	assert.ErrorIs(t, Verify(DefaultConfig(), testSeeds, tampered), ErrMismatch)

	wrongSeeds := engine.Seeds{Server: "nope", Client: testSeeds.Client}
	assert.ErrorIs(t, Verify(DefaultConfig(), wrongSeeds, results), ErrMismatch)
}

func TestVerifyAcrossStarts(t *testing.T) {
	m := newTestMachine(t)
	m.Start("2")
	runToCompletion(t, m)
	m.Start("1")
	runToCompletion(t, m)

	require.Len(t, m.Results(), 3)
	assert.NoError(t, Verify(DefaultConfig(), testSeeds, m.Results()))
}

func TestVerifyAfterRefresh(t *testing.T) {
	m := newTestMachine(t)
	m.Start("1")
	runToCompletion(t, m)
	require.NoError(t, m.Refresh())
	gridNonce := m.Nonce()

	m.Start("2")
	runToCompletion(t, m)

	assert.NoError(t, VerifyFrom(DefaultConfig(), testSeeds, gridNonce, m.Results()))
	assert.ErrorIs(t, Verify(DefaultConfig(), testSeeds, m.Results()), ErrMismatch)
}

func TestVerifyBrokenByManualRotation(t *testing.T) {
	m := newTestMachine(t)
	require.NoError(t, m.RotateRow(0, 1, reel.Left))
	m.Start("1")
	runToCompletion(t, m)

	err := Verify(DefaultConfig(), testSeeds, m.Results())
	assert.ErrorIs(t, err, ErrMismatch)
}
