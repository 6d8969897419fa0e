package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/pronia/internal/model"
)

// FeedRepository 读取时间线（inbox join posts）
type FeedRepository interface {
	ListInbox(ctx context.Context, userID string, offset, limit int) ([]*model.Post, error)
}

type feedRepository struct{ db *gorm.DB }

func NewFeedRepository(db *gorm.DB) FeedRepository { return &feedRepository{db: db} }

func (r *feedRepository) ListInbox(ctx context.Context, userID string, offset, limit int) ([]*model.Post, error) {
	var res []*model.Post
	err := r.db.WithContext(ctx).
		Table("inbox").
		Select("posts.*").
		Joins("JOIN posts ON posts.id = inbox.post_id").
		Where("inbox.user_id = ?", userID).
		Order("inbox.score DESC").
		Offset(offset).Limit(limit).
		Scan(&res).Error
	return degrade(res, err)
}
