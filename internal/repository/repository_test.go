package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/pronia/internal/model"
	"github.com/d60-Lab/pronia/pkg/database"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedUsers(t *testing.T, db *gorm.DB, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, db.Create(&model.User{ID: id, Username: id, Email: id + "@example.com", Password: "p"}).Error)
	}
}

func TestFollowRepository_CreateIsIdempotent(t *testing.T) {
	db := setupDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, "a", "b"))
	assert.ErrorIs(t, repo.Create(ctx, "a", "b"), ErrDuplicate)

	ok, err := repo.Exists(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := repo.CountFollowers(ctx, "b")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestFollowRepository_DeleteMissing(t *testing.T) {
	repo := NewFollowRepository(setupDB(t))
	assert.ErrorIs(t, repo.Delete(context.Background(), "a", "b"), ErrNotFound)
}

func TestFollowRepository_Lists(t *testing.T) {
	db := setupDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, fmt.Sprintf("f%d", i), "star"))
	}
	require.NoError(t, repo.Create(ctx, "star", "f0"))

	followers, err := repo.ListFollowers(ctx, "star", 0, 3)
	require.NoError(t, err)
	assert.Len(t, followers, 3)

	ids, err := repo.FollowerIDs(ctx, "star")
	require.NoError(t, err)
	assert.Len(t, ids, 5)

	following, err := repo.ListFollowings(ctx, "star", 0, 10)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, "f0", following[0].FolloweeID)

	n, err := repo.CountFollowing(ctx, "star")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestMissingTableDegradesToEmpty(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	ctx := context.Background()

	followers, err := NewFollowRepository(db).ListFollowers(ctx, "x", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, followers)

	sessions, err := NewSessionRepository(db).ListByUser(ctx, "x", 0)
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)

	notes, err := NewNotificationRepository(db).List(ctx, "x", false, 10)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestUserRepository(t *testing.T) {
	db := setupDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &model.User{ID: uuid.NewString(), Username: "clara", Email: "clara@example.com", Password: "x"}
	require.NoError(t, repo.Create(ctx, u))
	assert.ErrorIs(t, repo.Create(ctx, &model.User{ID: uuid.NewString(), Username: "other", Email: "clara@example.com", Password: "x"}), ErrDuplicate)

	got, err := repo.GetByEmail(ctx, "CLARA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.IncrFollowers(ctx, u.ID, 2))
	require.NoError(t, repo.IncrFollowing(ctx, u.ID, -1))
	got, _ = repo.GetByID(ctx, u.ID)
	assert.EqualValues(t, 2, got.FollowersCount)
	assert.EqualValues(t, -1, got.FollowingCount)

	require.NoError(t, repo.SetCounters(ctx, u.ID, 0, 0))
	got, _ = repo.GetByID(ctx, u.ID)
	assert.Zero(t, got.FollowingCount)

	require.NoError(t, repo.Update(ctx, u.ID, map[string]interface{}{"bio": "cellist"}))
	assert.ErrorIs(t, repo.Update(ctx, "nope", map[string]interface{}{"bio": "x"}), ErrNotFound)

	found, err := repo.Search(ctx, "cl", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "cellist", found[0].Bio)

	found, err = repo.Search(ctx, "%", 10)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestLikeRepository_CountMovesWithEdge(t *testing.T) {
	db := setupDB(t)
	seedUsers(t, db, "a")
	now := time.Now()
	require.NoError(t, db.Create(&model.Post{ID: "p1", AuthorID: "a", Content: "scales", CreatedAt: now, UpdatedAt: now}).Error)
	repo := NewLikeRepository(db)
	ctx := context.Background()

	n, err := repo.Like(ctx, "a", "p1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = repo.Like(ctx, "a", "p1")
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = repo.Like(ctx, "a", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	liked, err := repo.LikedPostIDs(ctx, "a", []string{"p1", "p2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"p1": true}, liked)

	n, err = repo.Unlike(ctx, "a", "p1")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = repo.Unlike(ctx, "a", "p1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPieceAndSessionRepositories(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	pieces := NewPieceRepository(db)
	sessions := NewSessionRepository(db)

	p := &model.LibraryPiece{ID: "pc1", UserID: "a", Title: "Clair de Lune", Status: model.PieceLearning}
	require.NoError(t, pieces.Create(ctx, p))
	require.NoError(t, pieces.Update(ctx, "pc1", map[string]interface{}{"status": model.PiecePolishing}))
	got, err := pieces.Get(ctx, "pc1")
	require.NoError(t, err)
	assert.Equal(t, model.PiecePolishing, got.Status)
	require.NoError(t, pieces.Delete(ctx, "pc1"))
	assert.ErrorIs(t, pieces.Delete(ctx, "pc1"), ErrNotFound)

	base := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, sessions.Create(ctx, &model.PracticeSession{
			ID: fmt.Sprintf("s%d", i), UserID: "a", DurationSeconds: 60, PracticedAt: base.AddDate(0, 0, i),
		}))
	}
	list, err := sessions.ListByUser(ctx, "a", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "s2", list[0].ID)
}
