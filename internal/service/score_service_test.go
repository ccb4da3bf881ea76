package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/chainvote/govboard/internal/model"
	"github.com/chainvote/govboard/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScoreEnv(t *testing.T) (*ledgerEnv, *miniredis.Miniredis) {
	t.Helper()

	env := newLedger(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	env.score = NewScoreService(
		repository.NewScoreRepository(env.db),
		repository.NewUserRepository(env.db),
		client,
	)
	return env, mr
}

func enqueue(t *testing.T, env *ledgerEnv, network string, userID uint, delta int, reason string) {
	t.Helper()
	require.NoError(t, env.db.Create(&model.ScoreOutbox{
		Network: network,
		UserID:  userID,
		Reason:  reason,
		Delta:   delta,
		Status:  model.OutboxPending,
	}).Error)
}

func TestApplyPendingIsIdempotent(t *testing.T) {
	env, mr := newScoreEnv(t)
	env.seedUser(t, 7, "seven")
	ctx := context.Background()

	enqueue(t, env, "polkadot", 7, 2, ReasonFirstComment)
	enqueue(t, env, "polkadot", 7, 5, ReasonPostCreated)

	applied, err := env.score.ApplyPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	score, err := env.score.GetScore(ctx, "polkadot", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, score)

	// Mirror landed in the leaderboard ZSET.
	got, err := mr.ZScore("leaderboard:polkadot", "7")
	require.NoError(t, err)
	assert.EqualValues(t, 7, got)

	// Re-running must find nothing pending.
	applied, err = env.score.ApplyPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, applied)

	score, err = env.score.GetScore(ctx, "polkadot", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, score)
}

func TestApplyPendingNegativeDelta(t *testing.T) {
	env, _ := newScoreEnv(t)
	env.seedUser(t, 7, "seven")
	ctx := context.Background()

	enqueue(t, env, "polkadot", 7, 2, ReasonFirstComment)
	enqueue(t, env, "polkadot", 7, -2, ReasonCommentRemoved)

	_, err := env.score.ApplyPending(ctx)
	require.NoError(t, err)

	score, err := env.score.GetScore(ctx, "polkadot", 7)
	require.NoError(t, err)
	assert.Zero(t, score)
}

func TestScoresArePartitionedByNetwork(t *testing.T) {
	env, _ := newScoreEnv(t)
	env.seedUser(t, 7, "seven")
	ctx := context.Background()

	enqueue(t, env, "polkadot", 7, 5, ReasonPostCreated)
	enqueue(t, env, "kusama", 7, 2, ReasonFirstComment)

	_, err := env.score.ApplyPending(ctx)
	require.NoError(t, err)

	polkadot, err := env.score.GetScore(ctx, "polkadot", 7)
	require.NoError(t, err)
	kusama, err := env.score.GetScore(ctx, "kusama", 7)
	require.NoError(t, err)
	assert.Equal(t, 5, polkadot)
	assert.Equal(t, 2, kusama)
}

func TestLeaderboardFromRedis(t *testing.T) {
	env, _ := newScoreEnv(t)
	env.seedUser(t, 1, "anna")
	env.seedUser(t, 2, "ben")
	ctx := context.Background()

	enqueue(t, env, "polkadot", 1, 5, ReasonPostCreated)
	enqueue(t, env, "polkadot", 2, 8, ReasonPostCreated)

	_, err := env.score.ApplyPending(ctx)
	require.NoError(t, err)

	entries, err := env.score.Leaderboard(ctx, "polkadot", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ben", entries[0].Username)
	assert.Equal(t, 8, entries[0].Score)
	assert.Equal(t, 1, entries[0].Position)
	assert.Equal(t, "anna", entries[1].Username)
}

func TestLeaderboardFallsBackToDatabase(t *testing.T) {
	env := newLedger(t)
	env.seedUser(t, 1, "anna")
	env.seedUser(t, 2, "ben")
	ctx := context.Background()

	enqueue(t, env, "polkadot", 1, 5, ReasonPostCreated)
	enqueue(t, env, "polkadot", 2, 8, ReasonPostCreated)
	// env.score has no redis client here.
	_, err := env.score.ApplyPending(ctx)
	require.NoError(t, err)

	entries, err := env.score.Leaderboard(ctx, "polkadot", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ben", entries[0].Username)
	assert.Equal(t, "anna", entries[1].Username)
}
