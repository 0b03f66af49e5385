package model

import (
	"time"
)

// User 用户（外部系统维护，本服务只读引用）
type User struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email     *string   `gorm:"size:100;uniqueIndex" json:"email,omitempty"`
	Phone     string    `gorm:"size:20" json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
