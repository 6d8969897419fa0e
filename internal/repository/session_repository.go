package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/pronia/internal/model"
)

// SessionRepository 练习记录仓储
type SessionRepository interface {
	Create(ctx context.Context, s *model.PracticeSession) error
	Get(ctx context.Context, id string) (*model.PracticeSession, error)
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.PracticeSession, error)
}

type sessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &sessionRepository{db: db} }

func (r *sessionRepository) Create(ctx context.Context, s *model.PracticeSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*model.PracticeSession, error) {
	var s model.PracticeSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.PracticeSession{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByUser 按练习时间倒序；limit <= 0 表示全部
func (r *sessionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.PracticeSession, error) {
	var res []*model.PracticeSession
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("practiced_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return degrade(res, q.Find(&res).Error)
}
