package client

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/d60-Lab/pronia/pkg/optimistic"
)

// App is the composition root of the client: one Session and one API shared
// by every feature controller.
type App struct {
	Session  *Session
	API      *API
	Sessions *Sessions
	Library  *Library
	Follows  *Follows
	Likes    *Likes
}

// Config configures NewApp. Zero values are usable.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
	// OnAuthRequired runs when a mutation is refused for lack of a session.
	OnAuthRequired func()
}

func NewApp(cfg Config) *App {
	session := NewSession()
	api := NewAPI(cfg.BaseURL, cfg.HTTPClient, session)
	opts := []optimistic.Option{optimistic.WithLogger(cfg.Logger), optimistic.WithAuthRequired(cfg.OnAuthRequired)}
	return &App{
		Session:  session,
		API:      api,
		Sessions: NewSessions(api, session, opts...),
		Library:  NewLibrary(api, session, opts...),
		Follows:  NewFollows(api, session, opts...),
		Likes:    NewLikes(api, session, opts...),
	}
}

// SignIn authenticates and loads the user's own collections.
func (a *App) SignIn(ctx context.Context, email, password string) (*Profile, error) {
	p, err := a.Session.SignIn(ctx, a.API, email, password)
	if err != nil {
		return nil, err
	}
	if err := a.Sessions.Load(ctx); err != nil {
		return p, err
	}
	return p, a.Library.Load(ctx)
}

// Feed loads a page and seeds the like state from it.
func (a *App) Feed(ctx context.Context, page, pageSize int) ([]Post, error) {
	posts, err := a.API.Feed(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	a.Likes.ObservePosts(posts)
	return posts, nil
}

// Wait blocks until every controller's in-flight writes settled.
func (a *App) Wait() {
	a.Sessions.Wait()
	a.Library.Wait()
	a.Follows.Wait()
	a.Likes.Wait()
}
