package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real server when REELGEN_TEST_PG_DSN is set.
func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("REELGEN_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("REELGEN_TEST_PG_DSN not set")
	}
	ctx := context.Background()

	db, err := NewPostgresDB(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate(ctx))

	sess := testSession()
	require.NoError(t, db.CreateSession(ctx, sess))

	for i := 0; i < 2; i++ {
		r := &ResultRecord{SessionID: sess.ID, RunIndex: i, Nonce: uint64(i + 1), Values: []int{1, 2, 3, 4, 5}}
		require.NoError(t, db.SaveResult(ctx, r))
		assert.Equal(t, i, r.Seq)
	}

	got, err := db.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ResultCount)

	results, err := db.ListResults(ctx, sess.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, results[1].Values)

	sess.Status = SessionClosed
	require.NoError(t, db.UpdateSession(ctx, sess))

	list, err := db.ListSessions(ctx, SessionsQuery{Status: SessionClosed})
	require.NoError(t, err)
	assert.NotZero(t, list.TotalCount)

	_, err = db.GetSession(ctx, "00000000-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
