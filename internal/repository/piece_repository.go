package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/pronia/internal/model"
)

// PieceRepository 曲库仓储
type PieceRepository interface {
	Create(ctx context.Context, p *model.LibraryPiece) error
	Get(ctx context.Context, id string) (*model.LibraryPiece, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]*model.LibraryPiece, error)
}

type pieceRepository struct{ db *gorm.DB }

func NewPieceRepository(db *gorm.DB) PieceRepository { return &pieceRepository{db: db} }

func (r *pieceRepository) Create(ctx context.Context, p *model.LibraryPiece) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *pieceRepository) Get(ctx context.Context, id string) (*model.LibraryPiece, error) {
	var p model.LibraryPiece
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *pieceRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.LibraryPiece{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pieceRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.LibraryPiece{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pieceRepository) ListByUser(ctx context.Context, userID string) ([]*model.LibraryPiece, error) {
	var res []*model.LibraryPiece
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&res).Error
	return degrade(res, err)
}
