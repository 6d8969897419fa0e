package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/pronia/internal/model"
	"github.com/d60-Lab/pronia/internal/practice"
	"github.com/d60-Lab/pronia/internal/repository"
)

// SessionInput 新建练习记录
type SessionInput struct {
	Piece           string     `json:"piece" binding:"max=255"`
	DurationSeconds int64      `json:"duration_seconds" binding:"required,min=1,max=86400"`
	Notes           string     `json:"notes" binding:"max=4000"`
	PracticedAt     *time.Time `json:"practiced_at"`
}

// PracticeStats 练习统计
type PracticeStats struct {
	TotalSeconds  int64               `json:"total_seconds"`
	WeeklySeconds int64               `json:"weekly_seconds"`
	WeeklyByDay   []practice.DayTotal `json:"weekly_by_day"`
	Streak        int                 `json:"streak"`
	SessionCount  int                 `json:"session_count"`
}

type PracticeService interface {
	Create(ctx context.Context, userID string, in SessionInput) (*model.PracticeSession, error)
	Delete(ctx context.Context, userID, id string) error
	List(ctx context.Context, userID string, limit int) ([]*model.PracticeSession, error)
	Stats(ctx context.Context, userID string, now time.Time) (*PracticeStats, error)
}

type practiceService struct {
	repo repository.SessionRepository
	now  func() time.Time
}

func NewPracticeService(repo repository.SessionRepository) PracticeService {
	return &practiceService{repo: repo, now: time.Now}
}

func (s *practiceService) Create(ctx context.Context, userID string, in SessionInput) (*model.PracticeSession, error) {
	now := s.now().UTC()
	at := now
	if in.PracticedAt != nil {
		at = in.PracticedAt.UTC()
	}
	sess := &model.PracticeSession{
		ID:              uuid.New().String(),
		UserID:          userID,
		Piece:           in.Piece,
		DurationSeconds: in.DurationSeconds,
		Notes:           in.Notes,
		PracticedAt:     at,
		CreatedAt:       now,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *practiceService) Delete(ctx context.Context, userID, id string) error {
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if sess.UserID != userID {
		return ErrForbidden
	}
	return s.repo.Delete(ctx, id)
}

func (s *practiceService) List(ctx context.Context, userID string, limit int) ([]*model.PracticeSession, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}

// Stats 与客户端使用同一套纯函数计算
func (s *practiceService) Stats(ctx context.Context, userID string, now time.Time) (*PracticeStats, error) {
	sessions, err := s.repo.ListByUser(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	entries := make([]practice.Entry, len(sessions))
	for i, sess := range sessions {
		entries[i] = practice.Entry{At: sess.PracticedAt, Seconds: sess.DurationSeconds}
	}
	return &PracticeStats{
		TotalSeconds:  int64(practice.TotalDuration(entries).Seconds()),
		WeeklySeconds: practice.WeeklyPracticeTime(entries, now),
		WeeklyByDay:   practice.WeeklyPracticeByDay(entries, now),
		Streak:        practice.Streak(entries, now),
		SessionCount:  len(entries),
	}, nil
}
