package model

import "time"

// Like 点赞（用户 -> 动态），(user_id, post_id) 唯一
type Like struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);uniqueIndex:idx_like_pair;not null"`
	PostID    string    `json:"post_id" gorm:"type:varchar(36);uniqueIndex:idx_like_pair;index:idx_like_post;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (Like) TableName() string { return "likes" }
