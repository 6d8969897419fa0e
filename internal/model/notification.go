package model

import "time"

const (
	NotificationFollow = "follow"
	NotificationLike   = "like"
)

// Notification 站内通知（被关注、被点赞）
type Notification struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);index:idx_notification_user;not null"`
	ActorID   string    `json:"actor_id" gorm:"type:varchar(36);not null"`
	Kind      string    `json:"kind" gorm:"type:varchar(16);not null"`
	PostID    *string   `json:"post_id,omitempty" gorm:"type:varchar(36)"`
	Read      bool      `json:"read" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_notification_user"`
}

func (Notification) TableName() string { return "notifications" }
