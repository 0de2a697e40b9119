package spin

import (
	"errors"
	"fmt"
	"slices"

	"github.com/reelgen/reelgen/internal/engine"
)

// ErrMismatch reports a recorded result that the seeds do not reproduce.
var ErrMismatch = errors.New("result does not match replay")

// Replay runs a fresh machine for count results without delays. The output
// depends only on cfg, seeds and count.
func Replay(cfg Config, seeds engine.Seeds, count int) ([]Result, error) {
	return ReplayFrom(cfg, seeds, 0, count)
}

// ReplayFrom is Replay for a grid drawn from gridNonce, as after a refresh.
func ReplayFrom(cfg Config, seeds engine.Seeds, gridNonce uint64, count int) ([]Result, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}
	m, err := newMachineAt(cfg, seeds, gridNonce)
	if err != nil {
		return nil, err
	}
	m.StartCount(count)

	for {
		st, err := m.Step()
		if err != nil {
			return nil, err
		}
		if st.Done || st.Idle {
			break
		}
	}
	return m.Results(), nil
}

// Verify replays seeds and compares the values and nonces of recorded, which
// must be the complete log of a fresh grid. Several starts in a row replay
// like one start of their combined count; a manual rotation or an abandoned
// run breaks the chain.
func Verify(cfg Config, seeds engine.Seeds, recorded []Result) error {
	return VerifyFrom(cfg, seeds, 0, recorded)
}

// VerifyFrom is Verify for a grid drawn from gridNonce.
func VerifyFrom(cfg Config, seeds engine.Seeds, gridNonce uint64, recorded []Result) error {
	if len(recorded) == 0 {
		return nil
	}
	want, err := ReplayFrom(cfg, seeds, gridNonce, len(recorded))
	if err != nil {
		return err
	}
	for i, r := range recorded {
		w := want[i]
		if r.Nonce != w.Nonce || !slices.Equal(r.Values, w.Values) {
			return fmt.Errorf("%w: result %d: got nonce %d %v, replay nonce %d %v",
				ErrMismatch, i, r.Nonce, r.Values, w.Nonce, w.Values)
		}
	}
	return nil
}
