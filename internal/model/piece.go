package model

import "time"

// 曲目学习状态
const (
	PieceLearning  = "learning"
	PiecePolishing = "polishing"
	PieceMastered  = "mastered"
)

// LibraryPiece 个人曲库中的一首曲目
type LibraryPiece struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);index:idx_piece_user;not null"`
	Title     string    `json:"title" gorm:"type:varchar(255);not null"`
	Composer  string    `json:"composer" gorm:"type:varchar(255)"`
	Status    string    `json:"status" gorm:"type:varchar(16);not null;default:learning"`
	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_piece_user"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (LibraryPiece) TableName() string { return "library_pieces" }
