package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/reelgen/reelgen/internal/engine"
	"github.com/reelgen/reelgen/internal/reel"
	"github.com/reelgen/reelgen/internal/spin"
	"github.com/reelgen/reelgen/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testSeeds = engine.Seeds{Server: "service_server", Client: "service_client"}

func newTestReels(t *testing.T) (*Reels, store.DB) {
	t.Helper()
	db, err := store.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { db.Close() })

	s, err := New(context.Background(), spin.DefaultConfig(), testSeeds, db, zaptest.NewLogger(t), spin.WithSpeed(0))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s, db
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNewOpensSession(t *testing.T) {
	ctx := context.Background()
	s, db := newTestReels(t)

	sess := s.Session()
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, store.SessionReady, sess.Status)
	assert.Equal(t, engine.HashServerSeed(testSeeds.Server), sess.ServerSeedHash)

	got, err := db.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.Version, got.EngineVersion)
}

func TestStartPersistsResults(t *testing.T) {
	ctx := context.Background()
	s, db := newTestReels(t)

	_, err := s.Start(ctx, "3")
	require.NoError(t, err)
	require.NoError(t, s.Wait(waitCtx(t)))

	snap := s.Snapshot()
	assert.Equal(t, spin.Finished, snap.State)
	assert.Equal(t, 3, snap.Generated)

	sess := s.Session()
	got, err := db.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SessionFinished, got.Status)
	assert.Equal(t, 3, got.Requested)
	assert.Equal(t, 3, got.ResultCount)
	assert.Equal(t, 3, sess.ResultCount)

	recs, err := db.ListResults(ctx, sess.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i, rec := range recs {
		assert.Equal(t, snap.Results[i].Values, rec.Values)
		assert.Equal(t, snap.Results[i].Nonce, rec.Nonce)
	}

	// a session holding one uninterrupted run verifies against its seeds
	results := make([]spin.Result, len(recs))
	for i, rec := range recs {
		results[i] = spin.Result{Index: rec.RunIndex, Nonce: rec.Nonce, Values: rec.Values}
	}
	assert.NoError(t, spin.Verify(s.Config(), s.Seeds(), results))
}

func TestInvalidCountRunsOnce(t *testing.T) {
	ctx := context.Background()
	s, db := newTestReels(t)

	snap, err := s.Start(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Requested)
	require.NoError(t, s.Wait(waitCtx(t)))

	recs, err := db.ListResults(ctx, s.Session().ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestRefreshOpensNewSession(t *testing.T) {
	ctx := context.Background()
	s, db := newTestReels(t)

	_, err := s.Start(ctx, "1")
	require.NoError(t, err)
	require.NoError(t, s.Wait(waitCtx(t)))
	first := s.Session()

	snap, err := s.Refresh(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Results)
	assert.Equal(t, spin.StatusReady, snap.Status)

	second := s.Session()
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, snap.Nonce, second.StartNonce)

	old, err := db.GetSession(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SessionClosed, old.Status)

	list, err := db.ListSessions(ctx, store.SessionsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, list.TotalCount)
}

func TestRotateRowBetweenRuns(t *testing.T) {
	s, _ := newTestReels(t)
	before := s.Snapshot().Rows[0]

	snap, err := s.RotateRow(0, 2, reel.Left)
	require.NoError(t, err)
	assert.Equal(t, before[2], snap.Rows[0][0])
}

func TestVerifySession(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestReels(t)

	_, err := s.Refresh(ctx)
	require.NoError(t, err)
	_, err = s.Start(ctx, "2")
	require.NoError(t, err)
	require.NoError(t, s.Wait(waitCtx(t)))

	id := s.Session().ID
	results, err := s.VerifySession(ctx, id, testSeeds.Server)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	_, err = s.VerifySession(ctx, id, "wrong")
	assert.ErrorIs(t, err, ErrSeedHash)

	_, err = s.VerifySession(ctx, "missing", testSeeds.Server)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
