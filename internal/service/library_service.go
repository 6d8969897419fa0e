package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/pronia/internal/model"
	"github.com/d60-Lab/pronia/internal/repository"
)

// PieceInput 新建曲目
type PieceInput struct {
	Title    string `json:"title" binding:"required,max=255"`
	Composer string `json:"composer" binding:"max=255"`
	Status   string `json:"status" binding:"omitempty,piecestatus"`
	Notes    string `json:"notes" binding:"max=4000"`
}

// PiecePatch 曲目局部更新，nil 字段不修改
type PiecePatch struct {
	Title    *string `json:"title" binding:"omitempty,min=1,max=255"`
	Composer *string `json:"composer" binding:"omitempty,max=255"`
	Status   *string `json:"status" binding:"omitempty,piecestatus"`
	Notes    *string `json:"notes" binding:"omitempty,max=4000"`
}

func (p PiecePatch) fields() map[string]interface{} {
	m := map[string]interface{}{}
	if p.Title != nil {
		m["title"] = *p.Title
	}
	if p.Composer != nil {
		m["composer"] = *p.Composer
	}
	if p.Status != nil {
		m["status"] = *p.Status
	}
	if p.Notes != nil {
		m["notes"] = *p.Notes
	}
	return m
}

// ValidPieceStatus 供 validator 自定义 tag 使用
func ValidPieceStatus(s string) bool {
	switch s {
	case model.PieceLearning, model.PiecePolishing, model.PieceMastered:
		return true
	}
	return false
}

type LibraryService interface {
	Create(ctx context.Context, userID string, in PieceInput) (*model.LibraryPiece, error)
	Get(ctx context.Context, userID, id string) (*model.LibraryPiece, error)
	Update(ctx context.Context, userID, id string, patch PiecePatch) (*model.LibraryPiece, error)
	Delete(ctx context.Context, userID, id string) error
	List(ctx context.Context, userID string) ([]*model.LibraryPiece, error)
}

type libraryService struct {
	repo repository.PieceRepository
}

func NewLibraryService(repo repository.PieceRepository) LibraryService {
	return &libraryService{repo: repo}
}

func (s *libraryService) Create(ctx context.Context, userID string, in PieceInput) (*model.LibraryPiece, error) {
	status := in.Status
	if status == "" {
		status = model.PieceLearning
	}
	if !ValidPieceStatus(status) {
		return nil, ErrInvalidInput
	}
	now := time.Now().UTC()
	p := &model.LibraryPiece{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     in.Title,
		Composer:  in.Composer,
		Status:    status,
		Notes:     in.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *libraryService) Get(ctx context.Context, userID, id string) (*model.LibraryPiece, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, ErrForbidden
	}
	return p, nil
}

func (s *libraryService) Update(ctx context.Context, userID, id string, patch PiecePatch) (*model.LibraryPiece, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	if patch.Status != nil && !ValidPieceStatus(*patch.Status) {
		return nil, ErrInvalidInput
	}
	if fields := patch.fields(); len(fields) > 0 {
		if err := s.repo.Update(ctx, id, fields); err != nil {
			return nil, err
		}
	}
	return s.repo.Get(ctx, id)
}

func (s *libraryService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *libraryService) List(ctx context.Context, userID string) ([]*model.LibraryPiece, error) {
	return s.repo.ListByUser(ctx, userID)
}
