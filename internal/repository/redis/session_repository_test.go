package redis

import (
	"context"
	"testing"
	"time"

	"coverage-compare-be/pkg/store"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T, ttl time.Duration) (*SessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionRepository(client, ttl), mr
}

func TestSessionRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, mr := setupRepo(t, time.Hour)

	sess := store.NewSession("s1", "u1")
	sess.ReplaceAnchor(&store.QueryAnchor{CoverageCode: "A4200_1", CoverageName: "암진단비", Intent: store.IntentCompare})
	sess.SetState(store.StateResolved)
	sess.InstallGuidance(&store.GuidanceState{ResolutionState: store.StateUnresolved, OriginalQuery: "삼성 암"})
	sess.AppendMessage(store.ChatMessage{ID: "m1", Role: store.RoleUser, Content: "삼성 암"})
	require.NoError(t, repo.Save(ctx, sess))

	assert.True(t, mr.Exists("coverage:session:s1"))
	assert.Equal(t, time.Hour, mr.TTL("coverage:session:s1"))

	got, ok, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "u1", got.UserID())
	assert.True(t, got.Anchor().Equal(sess.Anchor()))
	assert.Equal(t, store.StateResolved, got.State())
	require.NotNil(t, got.Guidance())
	assert.Equal(t, "삼성 암", got.Guidance().OriginalQuery)
	assert.Equal(t, 1, got.MessageCount())
}

func TestSessionRepository_MissingAndDelete(t *testing.T) {
	ctx := context.Background()
	repo, mr := setupRepo(t, time.Minute)

	_, ok, err := repo.Get(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Save(ctx, store.NewSession("s1", "u1")))
	require.NoError(t, repo.Delete(ctx, "s1"))
	assert.False(t, mr.Exists("coverage:session:s1"))
}

func TestSessionRepository_Expiry(t *testing.T) {
	ctx := context.Background()
	repo, mr := setupRepo(t, time.Minute)

	require.NoError(t, repo.Save(ctx, store.NewSession("s1", "u1")))
	mr.FastForward(2 * time.Minute)

	_, ok, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionRepository_CorruptPayload(t *testing.T) {
	ctx := context.Background()
	repo, mr := setupRepo(t, time.Minute)

	require.NoError(t, mr.Set("coverage:session:bad", "{not json"))
	_, _, err := repo.Get(ctx, "bad")
	assert.Error(t, err)
}
