package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/pronia/internal/model"
	"github.com/d60-Lab/pronia/internal/repository"
)

// Publisher 负责事务内写 posts + outbox
type Publisher struct{ db *gorm.DB }

func NewPublisher(db *gorm.DB) *Publisher { return &Publisher{db: db} }

// Publish 在一个事务内落地 Post 与 Outbox 事件；sessionID 非空时必须是作者本人的练习记录
func (p *Publisher) Publish(ctx context.Context, authorID, content string, sessionID *string) (*model.Post, error) {
	now := time.Now().UTC()
	post := &model.Post{ID: uuid.New().String(), AuthorID: authorID, Content: content, SessionID: sessionID, CreatedAt: now, UpdatedAt: now}
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if sessionID != nil {
			var sess model.PracticeSession
			if err := tx.Select("id", "user_id").Where("id = ?", *sessionID).First(&sess).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return repository.ErrNotFound
				}
				return err
			}
			if sess.UserID != authorID {
				return ErrForbidden
			}
		}
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		out := &model.Outbox{ID: uuid.New().String(), PostID: post.ID, AuthorID: authorID, CreatedAt: now, Status: model.OutboxPending}
		return tx.Create(out).Error
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}
