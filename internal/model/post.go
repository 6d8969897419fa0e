package model

import "time"

// Post 动态
type Post struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AuthorID   string    `json:"author_id" gorm:"type:varchar(36);index:idx_post_author;not null"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	SessionID  *string   `json:"session_id,omitempty" gorm:"type:varchar(36)"`
	LikesCount int64     `json:"likes_count" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at" gorm:"index:idx_post_author"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Post) TableName() string { return "posts" }
