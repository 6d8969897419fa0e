package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/pronia/internal/cache"
	"github.com/d60-Lab/pronia/internal/model"
	"github.com/d60-Lab/pronia/internal/repository"
)

func TestFollow_SelfAndDuplicate(t *testing.T) {
	db := setupDB(t)
	seedUsers(t, db, "a", "b")
	svc := NewRelationshipService(repository.NewFollowRepository(db), repository.NewUserRepository(db), nil, nil, nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Follow(ctx, "a", "a"), ErrFollowSelf)
	assert.ErrorIs(t, svc.Follow(ctx, "a", "ghost"), repository.ErrNotFound)

	require.NoError(t, svc.Follow(ctx, "a", "b"))
	assert.ErrorIs(t, svc.Follow(ctx, "a", "b"), repository.ErrDuplicate)

	var b model.User
	require.NoError(t, db.First(&b, "id = ?", "b").Error)
	assert.EqualValues(t, 1, b.FollowersCount)

	ok, err := svc.IsFollowing(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.Unfollow(ctx, "a", "b"))
	assert.ErrorIs(t, svc.Unfollow(ctx, "a", "b"), repository.ErrNotFound)
	require.NoError(t, db.First(&b, "id = ?", "b").Error)
	assert.EqualValues(t, 0, b.FollowersCount)
}

func TestFollow_ReplicatedCountersAndNotification(t *testing.T) {
	db := setupDB(t)
	seedUsers(t, db, "fan1", "fan2", "star")
	users := repository.NewUserRepository(db)
	notifyRepo := repository.NewNotificationRepository(db)
	replicator := NewCounterReplicator(users, 16)
	stop := replicator.Start(2)
	svc := NewRelationshipService(repository.NewFollowRepository(db), users, replicator, nil, NewNotificationService(notifyRepo))
	ctx := context.Background()

	require.NoError(t, svc.Follow(ctx, "fan1", "star"))
	require.NoError(t, svc.Follow(ctx, "fan2", "star"))

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, stop(stopCtx))

	star, err := users.GetByID(ctx, "star")
	require.NoError(t, err)
	assert.EqualValues(t, 2, star.FollowersCount)
	fan1, err := users.GetByID(ctx, "fan1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, fan1.FollowingCount)

	notes, err := notifyRepo.List(ctx, "star", true, 10)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, model.NotificationFollow, notes[0].Kind)
}

func TestReconcileCounts_RepairsDrift(t *testing.T) {
	db := setupDB(t)
	seedUsers(t, db, "a", "b", "c")
	users := repository.NewUserRepository(db)
	svc := NewRelationshipService(repository.NewFollowRepository(db), users, nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.Follow(ctx, "a", "c"))
	require.NoError(t, svc.Follow(ctx, "b", "c"))
	require.NoError(t, svc.Follow(ctx, "c", "a"))

	// 模拟丢失的计数写入
	require.NoError(t, users.SetCounters(ctx, "c", 7, 0))

	u, err := svc.ReconcileCounts(ctx, "c")
	require.NoError(t, err)
	assert.EqualValues(t, 2, u.FollowersCount)
	assert.EqualValues(t, 1, u.FollowingCount)
}

func TestListFollowers_UsesRedisIndex(t *testing.T) {
	db := setupDB(t)
	seedUsers(t, db, "star", "f1", "f2", "f3")
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := cache.New(client, time.Minute)
	svc := NewRelationshipService(repository.NewFollowRepository(db), repository.NewUserRepository(db), nil, store, nil)
	ctx := context.Background()

	for _, f := range []string{"f1", "f2", "f3"} {
		require.NoError(t, svc.Follow(ctx, f, "star"))
	}

	page, err := svc.ListFollowers(ctx, "star", 1, 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.True(t, mr.Exists("followers:index:star"))

	rest, err := svc.ListFollowers(ctx, "star", 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
	assert.EqualValues(t, 1, store.Counters().IndexLoads)

	require.NoError(t, svc.Unfollow(ctx, "f1", "star"))
	assert.False(t, mr.Exists("followers:index:star"))
	all, err := svc.ListFollowers(ctx, "star", 1, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"f2", "f3"}, all)

	following, err := svc.ListFollowing(ctx, "f2", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"star"}, following)
}
