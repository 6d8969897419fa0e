package client

import (
	"context"
	"sync"
	"time"
)

// Session is the signed-in state shared by every controller: identity,
// subscription tier and the bearer token. It is created once at the
// composition root and handed to each controller explicitly.
type Session struct {
	mu        sync.RWMutex
	userID    string
	token     string
	expiresAt time.Time
	premium   bool
	now       func() time.Time
}

func NewSession() *Session { return &Session{now: time.Now} }

// CurrentUserID implements optimistic.Identity. An expired token counts as
// signed out.
func (s *Session) CurrentUserID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.userID == "" || (!s.expiresAt.IsZero() && !s.now().Before(s.expiresAt)) {
		return "", false
	}
	return s.userID, true
}

// Token implements TokenSource.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) IsPremium() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.premium
}

func (s *Session) set(res *authResult) {
	s.mu.Lock()
	s.userID, s.token, s.expiresAt, s.premium = res.User.ID, res.Token, res.ExpiresAt, res.User.IsPremium
	s.mu.Unlock()
}

// Clear forgets the identity. Tokens are stateless so nothing else is revoked.
func (s *Session) Clear() {
	s.mu.Lock()
	s.userID, s.token, s.expiresAt, s.premium = "", "", time.Time{}, false
	s.mu.Unlock()
}

// Register creates an account and signs in.
func (s *Session) Register(ctx context.Context, api *API, username, email, password string) (*Profile, error) {
	res, err := api.register(ctx, username, email, password)
	if err != nil {
		return nil, err
	}
	s.set(res)
	return &res.User, nil
}

// SignIn exchanges credentials for a token.
func (s *Session) SignIn(ctx context.Context, api *API, email, password string) (*Profile, error) {
	res, err := api.login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.set(res)
	return &res.User, nil
}

// SignOut notifies the server (best effort) and clears local state.
func (s *Session) SignOut(ctx context.Context, api *API) {
	if s.Token() != "" {
		_ = api.Logout(ctx)
	}
	s.Clear()
}

// Refresh re-reads the profile, picking up a changed subscription tier.
func (s *Session) Refresh(ctx context.Context, api *API) (*Profile, error) {
	p, err := api.Me(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.premium = p.IsPremium
	s.mu.Unlock()
	return p, nil
}
