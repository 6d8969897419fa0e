package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/pronia/internal/model"
)

// LikeRepository 点赞边；likes_count 与边在同一事务内变更
type LikeRepository interface {
	Like(ctx context.Context, userID, postID string) (int64, error)
	Unlike(ctx context.Context, userID, postID string) (int64, error)
	LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
}

type likeRepository struct{ db *gorm.DB }

func NewLikeRepository(db *gorm.DB) LikeRepository { return &likeRepository{db: db} }

// Like 返回最新 likes_count；重复点赞返回 ErrDuplicate，计数不变
func (r *likeRepository) Like(ctx context.Context, userID, postID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post model.Post
		if err := tx.Select("id").Where("id = ?", postID).First(&post).Error; err != nil {
			return notFound(err)
		}
		l := &model.Like{ID: uuid.New().String(), UserID: userID, PostID: postID}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(l)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrDuplicate
		}
		return r.bump(tx, postID, 1, &count)
	})
	return count, err
}

// Unlike 未点赞时返回 ErrNotFound
func (r *likeRepository) Unlike(ctx context.Context, userID, postID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&model.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return r.bump(tx, postID, -1, &count)
	})
	return count, err
}

func (r *likeRepository) bump(tx *gorm.DB, postID string, delta int64, out *int64) error {
	if err := tx.Model(&model.Post{}).Where("id = ?", postID).
		UpdateColumn("likes_count", gorm.Expr("likes_count + ?", delta)).Error; err != nil {
		return err
	}
	return tx.Model(&model.Post{}).Select("likes_count").Where("id = ?", postID).Row().Scan(out)
}

func (r *likeRepository) LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	ids, err = degrade(ids, err)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
