package model

import (
	"time"
)

// Plan 会员套餐（外部目录维护，本服务只读）
type Plan struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Price        float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	ValidityDays int       `gorm:"not null" json:"validity_days"`
	Status       string    `gorm:"size:20;default:active;index" json:"status"` // active, archived
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Plan) TableName() string {
	return "plans"
}

// IsBillable 套餐是否可计费
func (p *Plan) IsBillable() bool {
	return p.Status == "active" && p.ValidityDays > 0 && p.Price > 0
}
