package model

import "time"

// PracticeSession 练习记录
type PracticeSession struct {
	ID              string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string    `json:"user_id" gorm:"type:varchar(36);index:idx_session_user;not null"`
	Piece           string    `json:"piece" gorm:"type:varchar(255)"`
	DurationSeconds int64     `json:"duration_seconds" gorm:"not null"`
	Notes           string    `json:"notes" gorm:"type:text"`
	PracticedAt     time.Time `json:"practiced_at" gorm:"index:idx_session_user;not null"`
	CreatedAt       time.Time `json:"created_at"`
}

func (PracticeSession) TableName() string { return "practice_sessions" }
