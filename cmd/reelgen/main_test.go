package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelgen/reelgen/internal/engine"
	"github.com/reelgen/reelgen/internal/spin"
	"github.com/reelgen/reelgen/internal/store"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("REELGEN_CONFIG", "")
	t.Setenv("REELGEN_DB_DRIVER", "sqlite")
	t.Setenv("REELGEN_DB_PATH", filepath.Join(t.TempDir(), "reelgen.db"))
	t.Setenv("REELGEN_SERVER_SEED", "cli_server")
	t.Setenv("REELGEN_CLIENT_SEED", "cli_client")
	t.Setenv("REELGEN_LOG_LEVEL", "error")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env", filepath.Join(t.TempDir(), "missing.env")}, args...))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

var sessionLine = regexp.MustCompile(`session\s+(\S+)`)

func TestRunThenVerifySession(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "run", "--count", "2", "--speed", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Result 0:")
	assert.Contains(t, out, "Result 1:")
	assert.Contains(t, out, spin.StatusFinished)
	assert.Contains(t, out, engine.HashServerSeed("cli_server"))

	m := sessionLine.FindStringSubmatch(out)
	require.Len(t, m, 2)
	id := m[1]

	out, err = execute(t, "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, store.SessionClosed)

	out, err = execute(t, "verify", "--server", "cli_server", "--session", id)
	require.NoError(t, err)
	assert.Contains(t, out, "verified, 2 results")

	out, err = execute(t, "verify", "--server", "other", "--session", id)
	require.Error(t, err)
	assert.Contains(t, out, "FAILED")
}

func TestRunInvalidCount(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "run", "--count", "abc", "--speed", "0", "--memory")
	require.NoError(t, err)
	assert.Contains(t, out, spin.StatusInvalidCount)
	assert.Contains(t, out, "Result 0:")
	assert.NotContains(t, out, "Result 1:")
}

func TestVerifyReplay(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "verify", "--server", "s1", "--client", "c1", "--count", "2")
	require.NoError(t, err)

	want, err := spin.Replay(spin.DefaultConfig(), engine.Seeds{Server: "s1", Client: "c1"}, 2)
	require.NoError(t, err)
	for _, r := range want {
		assert.Contains(t, out, r.String())
	}

	_, err = execute(t, "verify", "--client", "c1")
	assert.Error(t, err)
	_, err = execute(t, "verify", "--server", "s1")
	assert.Error(t, err)
}

func TestSeedsCommand(t *testing.T) {
	setupEnv(t)
	out, err := execute(t, "seeds")
	require.NoError(t, err)
	assert.Regexp(t, `REELGEN_SERVER_SEED=[0-9a-f]{64}`, out)
	assert.Regexp(t, `REELGEN_CLIENT_SEED=\S{10}`, out)
}

func TestBadConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("REELGEN_LOG_LEVEL", "loud")
	_, err := execute(t, "seeds")
	assert.Error(t, err)
}

func TestRenderGrid(t *testing.T) {
	snap := spin.Snapshot{
		Rows:           [][]int{{1, 2, 3}, {4, 5, 6}},
		HighlightIndex: 1,
	}
	out := renderGrid(snap)
	for v := 1; v <= 6; v++ {
		assert.Contains(t, out, fmt.Sprint(v))
	}
	assert.Equal(t, 3, strings.Count(out, "\n"))
}

func TestRenderSessions(t *testing.T) {
	list := &store.SessionsList{
		Sessions:   []store.Session{{ID: "abc", Status: store.SessionFinished, ResultCount: 3}},
		TotalCount: 1,
		Page:       1,
		TotalPages: 1,
	}
	out := renderSessions(list)
	assert.Contains(t, out, "abc")
	assert.Contains(t, out, "finished")
	assert.Contains(t, out, "page 1 of 1, 1 sessions")
}
