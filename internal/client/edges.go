package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/d60-Lab/pronia/pkg/optimistic"
)

type followRemote struct{ api *API }

func (r followRemote) Insert(ctx context.Context, userID string) error {
	return r.api.do(ctx, http.MethodPost, "/relations/"+url.PathEscape(userID)+"/follow", nil, nil)
}

func (r followRemote) Delete(ctx context.Context, userID string) error {
	return r.api.do(ctx, http.MethodDelete, "/relations/"+url.PathEscape(userID)+"/follow", nil, nil)
}

type likeRemote struct{ api *API }

func (r likeRemote) Insert(ctx context.Context, postID string) error {
	return r.api.do(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/like", nil, nil)
}

func (r likeRemote) Delete(ctx context.Context, postID string) error {
	return r.api.do(ctx, http.MethodDelete, "/posts/"+url.PathEscape(postID)+"/like", nil, nil)
}

// Follows tracks follow edges from the signed-in user, with each target's
// follower count beside the flag.
type Follows struct {
	api *API
	set *optimistic.EdgeSet
}

func NewFollows(api *API, session *Session, opts ...optimistic.Option) *Follows {
	return &Follows{api: api, set: optimistic.NewEdgeSet("follow", followRemote{api: api}, session, opts...)}
}

// Observe loads the profile and follow state of userID into the local view.
func (f *Follows) Observe(ctx context.Context, userID string) (optimistic.Edge, error) {
	p, err := f.api.Profile(ctx, userID)
	if err != nil {
		return optimistic.Edge{}, err
	}
	following, err := f.api.IsFollowing(ctx, userID)
	if err != nil {
		return optimistic.Edge{}, err
	}
	f.set.Observe(userID, following, p.FollowersCount)
	return f.set.Get(userID), nil
}

// Toggle flips the follow state as currently shown.
func (f *Follows) Toggle(ctx context.Context, userID string) (optimistic.Edge, error) {
	return f.set.Toggle(ctx, userID)
}

// ToggleObserved flips from the state the caller rendered.
func (f *Follows) ToggleObserved(ctx context.Context, userID string, shown bool) (optimistic.Edge, error) {
	return f.set.ToggleObserved(ctx, userID, shown)
}

func (f *Follows) Get(userID string) optimistic.Edge { return f.set.Get(userID) }

func (f *Follows) OnChange(fn func(optimistic.Edge)) { f.set.OnChange(fn) }

func (f *Follows) Wait() { f.set.Wait() }

// Likes tracks like edges on posts, with each post's like count.
type Likes struct {
	set *optimistic.EdgeSet
}

func NewLikes(api *API, session *Session, opts ...optimistic.Option) *Likes {
	return &Likes{set: optimistic.NewEdgeSet("like", likeRemote{api: api}, session, opts...)}
}

// ObservePosts seeds the local view from a feed page.
func (l *Likes) ObservePosts(posts []Post) {
	for _, p := range posts {
		l.set.Observe(p.ID, p.Liked, p.LikesCount)
	}
}

func (l *Likes) Toggle(ctx context.Context, postID string) (optimistic.Edge, error) {
	return l.set.Toggle(ctx, postID)
}

func (l *Likes) ToggleObserved(ctx context.Context, postID string, shown bool) (optimistic.Edge, error) {
	return l.set.ToggleObserved(ctx, postID, shown)
}

func (l *Likes) Get(postID string) optimistic.Edge { return l.set.Get(postID) }

func (l *Likes) OnChange(fn func(optimistic.Edge)) { l.set.OnChange(fn) }

func (l *Likes) Wait() { l.set.Wait() }
