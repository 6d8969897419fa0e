package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/pronia/config"
	"github.com/d60-Lab/pronia/internal/api/handler"
	"github.com/d60-Lab/pronia/internal/repository"
	"github.com/d60-Lab/pronia/internal/service"
	"github.com/d60-Lab/pronia/pkg/auth"
	"github.com/d60-Lab/pronia/pkg/database"
)

type testServer struct {
	t      *testing.T
	engine http.Handler
	fanout *service.FanoutWorker
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })

	if cfg == nil {
		cfg = &config.Config{}
	}
	cfg.Server.Mode = "test"

	users := repository.NewUserRepository(db)
	follows := repository.NewFollowRepository(db)
	notify := service.NewNotificationService(repository.NewNotificationRepository(db))
	authSvc := service.NewAuthService(users, auth.NewJWTManager("router-test", time.Hour))
	h := handler.New(handler.Services{
		Auth:          authSvc,
		Profiles:      service.NewProfileService(users, nil),
		Practice:      service.NewPracticeService(repository.NewSessionRepository(db)),
		Library:       service.NewLibraryService(repository.NewPieceRepository(db)),
		Relations:     service.NewRelationshipService(follows, users, nil, nil, notify),
		Posts:         service.NewPostService(service.NewPublisher(db), repository.NewPostRepository(db), repository.NewLikeRepository(db), repository.NewFeedRepository(db), notify),
		Notifications: notify,
	})
	checks := map[string]HealthCheck{"db": func(ctx context.Context) error { return sqlDB.PingContext(ctx) }}
	return &testServer{t: t, engine: NewRouter(cfg, h, authSvc, checks), fanout: service.NewFanoutWorker(db, follows, 1, 100, 100, 0)}
}

func (s *testServer) do(method, path, token string, body any) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func (s *testServer) register(name string) (id, token string) {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": name, "email": name + "@example.com", "password": "correct horse",
	})
	require.Equal(s.t, http.StatusCreated, code, env.Message)
	var sess struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &sess))
	return sess.User.ID, sess.Token
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, nil)
	id, token := s.register("clara")

	code, _ := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": "clara", "email": "clara@example.com", "password": "correct horse",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "clara@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := s.do(http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	me := decode[map[string]any](t, env.Data)
	assert.Equal(t, id, me["id"])
	assert.NotContains(t, me, "password")

	code, _ = s.do(http.MethodGet, "/api/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = s.do(http.MethodGet, "/api/v1/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestProfiles(t *testing.T) {
	s := newTestServer(t, nil)
	aliceID, aliceToken := s.register("alice")
	_, bobToken := s.register("bob")

	code, env := s.do(http.MethodPatch, "/api/v1/profiles/"+aliceID, aliceToken, map[string]string{"instrument": "viola"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "viola", decode[map[string]any](t, env.Data)["instrument"])

	code, _ = s.do(http.MethodPatch, "/api/v1/profiles/"+aliceID, bobToken, map[string]string{"bio": "hacked"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(http.MethodGet, "/api/v1/profiles?q=al", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]map[string]any](t, env.Data), 1)

	code, _ = s.do(http.MethodGet, "/api/v1/profiles/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestProfiles_EmailOnlyVisibleToOwner(t *testing.T) {
	s := newTestServer(t, nil)
	aliceID, aliceToken := s.register("alice")
	_, bobToken := s.register("bob")

	code, env := s.do(http.MethodGet, "/api/v1/profiles/"+aliceID, "", nil)
	require.Equal(t, http.StatusOK, code)
	anon := decode[map[string]any](t, env.Data)
	assert.Equal(t, "alice", anon["username"])
	assert.NotContains(t, anon, "email")

	code, env = s.do(http.MethodGet, "/api/v1/profiles/"+aliceID, bobToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, decode[map[string]any](t, env.Data), "email")

	code, env = s.do(http.MethodGet, "/api/v1/profiles?q=al", "", nil)
	require.Equal(t, http.StatusOK, code)
	found := decode[[]map[string]any](t, env.Data)
	require.Len(t, found, 1)
	assert.NotContains(t, found[0], "email")

	code, env = s.do(http.MethodPost, "/api/v1/relations/"+aliceID+"/reconcile", bobToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, decode[map[string]any](t, env.Data), "email")

	code, env = s.do(http.MethodGet, "/api/v1/profiles/"+aliceID, aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice@example.com", decode[map[string]any](t, env.Data)["email"])

	code, env = s.do(http.MethodGet, "/api/v1/me", aliceToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice@example.com", decode[map[string]any](t, env.Data)["email"])
}

func TestFollowEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	aID, aToken := s.register("anna")
	bID, bToken := s.register("ben")

	code, _ := s.do(http.MethodPost, "/api/v1/relations/"+bID+"/follow", aToken, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodPost, "/api/v1/relations/"+bID+"/follow", aToken, nil)
	assert.Equal(t, http.StatusConflict, code)
	code, _ = s.do(http.MethodPost, "/api/v1/relations/"+aID+"/follow", aToken, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(http.MethodPost, "/api/v1/relations/"+bID+"/follow", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := s.do(http.MethodGet, "/api/v1/relations/"+bID+"/follow", aToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, decode[map[string]any](t, env.Data)["following"])

	code, env = s.do(http.MethodGet, "/api/v1/relations/"+bID+"/followers", "", nil)
	require.Equal(t, http.StatusOK, code)
	page := decode[struct {
		List []string `json:"list"`
	}](t, env.Data)
	assert.Equal(t, []string{aID}, page.List)

	code, env = s.do(http.MethodGet, "/api/v1/notifications?unread=true", bToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]map[string]any](t, env.Data), 1)

	code, env = s.do(http.MethodPost, "/api/v1/relations/"+bID+"/reconcile", aToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, decode[map[string]any](t, env.Data)["followers_count"])

	code, _ = s.do(http.MethodDelete, "/api/v1/relations/"+bID+"/follow", aToken, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodDelete, "/api/v1/relations/"+bID+"/follow", aToken, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPiecesAndSessions(t *testing.T) {
	s := newTestServer(t, nil)
	_, token := s.register("pianist")
	_, other := s.register("thief")

	code, _ := s.do(http.MethodPost, "/api/v1/pieces", token, map[string]string{"title": "Nocturne", "status": "forgotten"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := s.do(http.MethodPost, "/api/v1/pieces", token, map[string]string{"title": "Nocturne", "composer": "Chopin"})
	require.Equal(t, http.StatusCreated, code)
	piece := decode[map[string]any](t, env.Data)
	assert.Equal(t, "learning", piece["status"])
	path := "/api/v1/pieces/" + piece["id"].(string)

	code, env = s.do(http.MethodPatch, path, token, map[string]string{"status": "mastered"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "mastered", decode[map[string]any](t, env.Data)["status"])
	code, _ = s.do(http.MethodPatch, path, other, map[string]string{"status": "learning"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(http.MethodPost, "/api/v1/sessions", token, map[string]any{"piece": "Nocturne", "duration_seconds": 0})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(http.MethodPost, "/api/v1/sessions", token, map[string]any{"piece": "Nocturne", "duration_seconds": 1800})
	require.Equal(t, http.StatusCreated, code)

	code, env = s.do(http.MethodGet, "/api/v1/sessions/stats?tz=UTC", token, nil)
	require.Equal(t, http.StatusOK, code)
	stats := decode[service.PracticeStats](t, env.Data)
	assert.EqualValues(t, 1800, stats.TotalSeconds)
	assert.Equal(t, 1, stats.Streak)
	assert.Len(t, stats.WeeklyByDay, 7)

	code, _ = s.do(http.MethodGet, "/api/v1/sessions/stats?tz=Mars/Olympus", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPostsLikesFeed(t *testing.T) {
	s := newTestServer(t, nil)
	authorID, author := s.register("author")
	_, fan := s.register("fan")
	code, _ := s.do(http.MethodPost, "/api/v1/relations/"+authorID+"/follow", fan, nil)
	require.Equal(t, http.StatusOK, code)

	code, env := s.do(http.MethodPost, "/api/v1/posts", author, map[string]string{"content": "first recital"})
	require.Equal(t, http.StatusCreated, code)
	postID := decode[map[string]any](t, env.Data)["id"].(string)

	_, err := s.fanout.ProcessOnce(context.Background())
	require.NoError(t, err)

	code, env = s.do(http.MethodGet, "/api/v1/feed", fan, nil)
	require.Equal(t, http.StatusOK, code)
	feed := decode[struct {
		List []map[string]any `json:"list"`
	}](t, env.Data)
	require.Len(t, feed.List, 1)
	assert.Equal(t, postID, feed.List[0]["id"])
	assert.Equal(t, false, feed.List[0]["liked"])

	like := "/api/v1/posts/" + postID + "/like"
	code, env = s.do(http.MethodPost, like, fan, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, decode[map[string]any](t, env.Data)["likes_count"])
	code, _ = s.do(http.MethodPost, like, fan, nil)
	assert.Equal(t, http.StatusConflict, code)
	code, _ = s.do(http.MethodDelete, like, fan, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodDelete, like, fan, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodDelete, "/api/v1/posts/"+postID, fan, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(http.MethodDelete, "/api/v1/posts/"+postID, author, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodGet, "/api/v1/posts/"+postID, author, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRateLimit(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.RateLimit = 1
	cfg.Server.RateBurst = 2
	s := newTestServer(t, cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		code, _ := s.do(http.MethodGet, "/api/v1/profiles?q=x", "", nil)
		codes = append(codes, code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// 健康检查不受限流影响
	code, _ := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestHealthzReportsFailure(t *testing.T) {
	s := newTestServer(t, nil)
	h := handler.New(handler.Services{})
	engine := NewRouter(&config.Config{Server: config.ServerConfig{Mode: "test"}}, h, nil, map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	s.engine = engine
	code, _ := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}
