package model

import "time"

// User 用户资料；followers_count / following_count 为冗余计数，
// 由异步复制写入，可能与 follows 表短暂不一致，通过 reconcile 修复
type User struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username       string    `json:"username" gorm:"type:varchar(64);uniqueIndex;not null"`
	Email          string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Password       string    `json:"-" gorm:"type:varchar(255);not null"`
	DisplayName    string    `json:"display_name" gorm:"type:varchar(128)"`
	Bio            string    `json:"bio" gorm:"type:text"`
	Instrument     string    `json:"instrument" gorm:"type:varchar(64)"`
	AvatarURL      string    `json:"avatar_url" gorm:"type:varchar(512)"`
	IsPremium      bool      `json:"is_premium" gorm:"not null;default:false"`
	FollowersCount int64     `json:"followers_count" gorm:"not null;default:0"`
	FollowingCount int64     `json:"following_count" gorm:"not null;default:0"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// PublicProfile 对外展示的资料，不含邮箱等账号信息
type PublicProfile struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	DisplayName    string    `json:"display_name"`
	Bio            string    `json:"bio"`
	Instrument     string    `json:"instrument"`
	AvatarURL      string    `json:"avatar_url"`
	IsPremium      bool      `json:"is_premium"`
	FollowersCount int64     `json:"followers_count"`
	FollowingCount int64     `json:"following_count"`
	CreatedAt      time.Time `json:"created_at"`
}

func (u *User) Public() *PublicProfile {
	return &PublicProfile{
		ID:             u.ID,
		Username:       u.Username,
		DisplayName:    u.DisplayName,
		Bio:            u.Bio,
		Instrument:     u.Instrument,
		AvatarURL:      u.AvatarURL,
		IsPremium:      u.IsPremium,
		FollowersCount: u.FollowersCount,
		FollowingCount: u.FollowingCount,
		CreatedAt:      u.CreatedAt,
	}
}
