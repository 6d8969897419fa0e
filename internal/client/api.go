// Package client is the Go client for the Pronia HTTP API together with the
// feature controllers that keep a local optimistic view of the signed-in
// user's data.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/d60-Lab/pronia/internal/practice"
	"github.com/d60-Lab/pronia/pkg/optimistic"
)

// APIError is a non-2xx response that does not map to an optimistic sentinel.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pronia api: %d %s", e.Status, e.Message)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	Token() string
}

// API is a thin JSON client over /api/v1.
type API struct {
	base   string
	http   *http.Client
	tokens TokenSource
}

// NewAPI creates a client for baseURL, e.g. "https://pronia.example.com".
// httpClient may be nil.
func NewAPI(baseURL string, httpClient *http.Client, tokens TokenSource) *API {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &API{base: strings.TrimRight(baseURL, "/") + "/api/v1", http: httpClient, tokens: tokens}
}

func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if a.tokens != nil {
		if tok := a.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	switch {
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", optimistic.ErrAlreadyExists, env.Message)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", optimistic.ErrNotFound, env.Message)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", optimistic.ErrAuthRequired, env.Message)
	case resp.StatusCode >= 300:
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// Profile is the public view of a user.
type Profile struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email,omitempty"`
	DisplayName    string    `json:"display_name"`
	Bio            string    `json:"bio"`
	Instrument     string    `json:"instrument"`
	AvatarURL      string    `json:"avatar_url"`
	IsPremium      bool      `json:"is_premium"`
	FollowersCount int64     `json:"followers_count"`
	FollowingCount int64     `json:"following_count"`
	CreatedAt      time.Time `json:"created_at"`
}

type authResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      Profile   `json:"user"`
}

func (a *API) register(ctx context.Context, username, email, password string) (*authResult, error) {
	var res authResult
	err := a.do(ctx, http.MethodPost, "/auth/register", map[string]string{"username": username, "email": email, "password": password}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (a *API) login(ctx context.Context, email, password string) (*authResult, error) {
	var res authResult
	if err := a.do(ctx, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (a *API) Logout(ctx context.Context) error {
	return a.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (a *API) Me(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := a.do(ctx, http.MethodGet, "/me", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (a *API) Profile(ctx context.Context, id string) (*Profile, error) {
	var p Profile
	if err := a.do(ctx, http.MethodGet, "/profiles/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (a *API) SearchProfiles(ctx context.Context, prefix string) ([]Profile, error) {
	var list []Profile
	if err := a.do(ctx, http.MethodGet, "/profiles?q="+url.QueryEscape(prefix), nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// IsFollowing reports whether the signed-in user follows id.
func (a *API) IsFollowing(ctx context.Context, id string) (bool, error) {
	var res struct {
		Following bool `json:"following"`
	}
	if err := a.do(ctx, http.MethodGet, "/relations/"+url.PathEscape(id)+"/follow", nil, &res); err != nil {
		return false, err
	}
	return res.Following, nil
}

// Post is a feed entry as seen by the signed-in user.
type Post struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	Content    string    `json:"content"`
	SessionID  *string   `json:"session_id,omitempty"`
	LikesCount int64     `json:"likes_count"`
	Liked      bool      `json:"liked"`
	CreatedAt  time.Time `json:"created_at"`
}

func (a *API) Publish(ctx context.Context, content string, sessionID *string) (*Post, error) {
	var p Post
	body := map[string]any{"content": content}
	if sessionID != nil {
		body["session_id"] = *sessionID
	}
	if err := a.do(ctx, http.MethodPost, "/posts", body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (a *API) Feed(ctx context.Context, page, pageSize int) ([]Post, error) {
	var res struct {
		List []Post `json:"list"`
	}
	if err := a.do(ctx, http.MethodGet, fmt.Sprintf("/feed?page=%d&page_size=%d", page, pageSize), nil, &res); err != nil {
		return nil, err
	}
	return res.List, nil
}

// Stats is the server-side practice summary.
type Stats struct {
	TotalSeconds  int64               `json:"total_seconds"`
	WeeklySeconds int64               `json:"weekly_seconds"`
	WeeklyByDay   []practice.DayTotal `json:"weekly_by_day"`
	Streak        int                 `json:"streak"`
	SessionCount  int                 `json:"session_count"`
}

func (a *API) Stats(ctx context.Context, tz string) (*Stats, error) {
	var s Stats
	if err := a.do(ctx, http.MethodGet, "/sessions/stats?tz="+url.QueryEscape(tz), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
