package service

import (
	"context"
	"strings"

	"github.com/d60-Lab/pronia/internal/model"
	"github.com/d60-Lab/pronia/internal/repository"
)

// PostInput 发布动态，可挂一条自己的练习记录
type PostInput struct {
	Content   string  `json:"content" binding:"required,max=4000"`
	SessionID *string `json:"session_id" binding:"omitempty,uuid"`
}

// PostView 带当前用户点赞状态的动态
type PostView struct {
	*model.Post
	Liked bool `json:"liked"`
}

// LikeResult 点赞/取消后的最新状态
type LikeResult struct {
	PostID     string `json:"post_id"`
	Liked      bool   `json:"liked"`
	LikesCount int64  `json:"likes_count"`
}

type PostService interface {
	Publish(ctx context.Context, authorID string, in PostInput) (*model.Post, error)
	Get(ctx context.Context, viewerID, id string) (*PostView, error)
	Delete(ctx context.Context, userID, id string) error
	ListByAuthor(ctx context.Context, viewerID, authorID string, page, pageSize int) ([]*PostView, error)
	// Like 重复点赞返回 repository.ErrDuplicate
	Like(ctx context.Context, userID, postID string) (*LikeResult, error)
	// Unlike 未点赞返回 repository.ErrNotFound
	Unlike(ctx context.Context, userID, postID string) (*LikeResult, error)
	// Feed 读 inbox（作者本人 + 关注对象的动态），按发布时间倒序
	Feed(ctx context.Context, userID string, page, pageSize int) ([]*PostView, error)
}

type postService struct {
	publisher     *Publisher
	posts         repository.PostRepository
	likes         repository.LikeRepository
	feed          repository.FeedRepository
	notifications NotificationService
}

// NewPostService notifications 可为 nil
func NewPostService(publisher *Publisher, posts repository.PostRepository, likes repository.LikeRepository, feed repository.FeedRepository, notifications NotificationService) PostService {
	return &postService{publisher: publisher, posts: posts, likes: likes, feed: feed, notifications: notifications}
}

func (s *postService) Publish(ctx context.Context, authorID string, in PostInput) (*model.Post, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, ErrInvalidInput
	}
	return s.publisher.Publish(ctx, authorID, content, in.SessionID)
}

func (s *postService) Get(ctx context.Context, viewerID, id string) (*PostView, error) {
	p, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.decorate(ctx, viewerID, []*model.Post{p})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *postService) Delete(ctx context.Context, userID, id string) error {
	p, err := s.posts.Get(ctx, id)
	if err != nil {
		return err
	}
	if p.AuthorID != userID {
		return ErrForbidden
	}
	return s.posts.Delete(ctx, id)
}

func (s *postService) ListByAuthor(ctx context.Context, viewerID, authorID string, page, pageSize int) ([]*PostView, error) {
	page, pageSize = normalizePage(page, pageSize)
	posts, err := s.posts.ListByAuthor(ctx, authorID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	return s.decorate(ctx, viewerID, posts)
}

func (s *postService) Like(ctx context.Context, userID, postID string) (*LikeResult, error) {
	count, err := s.likes.Like(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if s.notifications != nil {
		if p, err := s.posts.Get(ctx, postID); err == nil {
			s.notifications.Notify(ctx, p.AuthorID, userID, model.NotificationLike, &postID)
		}
	}
	return &LikeResult{PostID: postID, Liked: true, LikesCount: count}, nil
}

func (s *postService) Unlike(ctx context.Context, userID, postID string) (*LikeResult, error) {
	count, err := s.likes.Unlike(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	return &LikeResult{PostID: postID, Liked: false, LikesCount: count}, nil
}

func (s *postService) Feed(ctx context.Context, userID string, page, pageSize int) ([]*PostView, error) {
	page, pageSize = normalizePage(page, pageSize)
	posts, err := s.feed.ListInbox(ctx, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	return s.decorate(ctx, userID, posts)
}

func (s *postService) decorate(ctx context.Context, viewerID string, posts []*model.Post) ([]*PostView, error) {
	views := make([]*PostView, len(posts))
	if len(posts) == 0 {
		return views, nil
	}
	liked := map[string]bool{}
	if viewerID != "" {
		ids := make([]string, len(posts))
		for i, p := range posts {
			ids[i] = p.ID
		}
		var err error
		if liked, err = s.likes.LikedPostIDs(ctx, viewerID, ids); err != nil {
			return nil, err
		}
	}
	for i, p := range posts {
		views[i] = &PostView{Post: p, Liked: liked[p.ID]}
	}
	return views, nil
}
