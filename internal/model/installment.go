package model

import (
	"time"
)

// 分期整体状态，只会向前推进
const (
	InstStatusFirstPending  = "first_pending"
	InstStatusSecondPending = "second_pending"
	InstStatusCompleted     = "completed"
	InstStatusFailed        = "failed"
)

// 单笔支付状态
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// InstallmentPlan 两期分期付款记录
type InstallmentPlan struct {
	ID     int64  `gorm:"primaryKey" json:"id"`
	UserID int64  `gorm:"not null;index" json:"user_id"`
	PlanID int64  `gorm:"not null;index" json:"plan_id"`
	Status string `gorm:"size:20;default:first_pending;index" json:"status"`

	TotalAmount             float64 `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	FirstInstallmentAmount  float64 `gorm:"type:decimal(10,2);not null" json:"first_installment_amount"`
	SecondInstallmentAmount float64 `gorm:"type:decimal(10,2);not null" json:"second_installment_amount"`

	FirstOrderID       *string    `gorm:"size:100" json:"first_order_id,omitempty"`
	FirstPaymentID     *string    `gorm:"size:100;uniqueIndex" json:"first_payment_id,omitempty"`
	FirstPaymentStatus string     `gorm:"size:20;default:pending" json:"first_payment_status"`
	FirstPaidAt        *time.Time `json:"first_paid_at,omitempty"`

	SecondOrderID       *string    `gorm:"size:100" json:"second_order_id,omitempty"`
	SecondPaymentID     *string    `gorm:"size:100;uniqueIndex" json:"second_payment_id,omitempty"`
	SecondPaymentStatus string     `gorm:"size:20;default:pending" json:"second_payment_status"`
	SecondDueDate       *time.Time `gorm:"index" json:"second_due_date,omitempty"`
	SecondPaidAt        *time.Time `json:"second_paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Plan *Plan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

func (InstallmentPlan) TableName() string {
	return "payment_installments"
}

// IsTerminal 是否终态
func (p *InstallmentPlan) IsTerminal() bool {
	return p.Status == InstStatusCompleted || p.Status == InstStatusFailed
}

// IsSecondOverdue 第二期是否已逾期（只读事实，不触发自动失败）
func (p *InstallmentPlan) IsSecondOverdue(now time.Time) bool {
	return p.Status == InstStatusSecondPending && p.SecondDueDate != nil && now.After(*p.SecondDueDate)
}
