package model

import "time"

// UserSession 持久化的会话记录，每个会话 token 一行
type UserSession struct {
	Token     string    `gorm:"primaryKey" json:"token" yaml:"token"`
	UserID    string    `gorm:"index" json:"userId" yaml:"user_id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt" yaml:"created_at"`
}
