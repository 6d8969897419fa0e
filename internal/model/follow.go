package model

import "time"

// Follow 关注关系（A 关注 B）
type Follow struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	FollowerID string `json:"follower_id" gorm:"type:varchar(36);index:idx_follow_follower;uniqueIndex:idx_follow_pair;not null"`
	FolloweeID string `json:"followee_id" gorm:"type:varchar(36);index:idx_follow_followee;uniqueIndex:idx_follow_pair;not null"`
	// 复合唯一键，避免重复关注
	// idx_follow_pair = (follower_id, followee_id)
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_follow_followee"`
}

func (Follow) TableName() string { return "follows" }
