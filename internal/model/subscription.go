package model

import (
	"time"
)

// 订阅状态
const (
	SubStatusActive      = "active"
	SubStatusPaused      = "paused"
	SubStatusGracePeriod = "grace_period"
	SubStatusCancelled   = "cancelled"
	SubStatusExpired     = "expired"
)

type Subscription struct {
	ID             int64  `gorm:"primaryKey" json:"id"`
	UserID         int64  `gorm:"not null;index" json:"user_id"`
	PlanID         int64  `gorm:"not null;index" json:"plan_id"`
	Status         string `gorm:"size:20;default:active;index" json:"status"`
	AutoPayEnabled bool   `gorm:"default:false" json:"auto_pay_enabled"`

	// 网关侧标识
	PaymentMethodID       *string `gorm:"size:100" json:"payment_method_id,omitempty"`
	GatewaySubscriptionID *string `gorm:"size:100;uniqueIndex" json:"gateway_subscription_id,omitempty"`
	// 最近一次续费的网关支付ID（展示用；幂等判定走 subscription_payments 流水）
	LastPaymentID *string `gorm:"size:100;uniqueIndex" json:"last_payment_id,omitempty"`

	StartDate          time.Time  `gorm:"not null" json:"start_date"`
	CurrentPeriodStart time.Time  `gorm:"not null" json:"current_period_start"`
	CurrentPeriodEnd   time.Time  `gorm:"not null;index" json:"current_period_end"`
	NextBillingDate    *time.Time `gorm:"index" json:"next_billing_date,omitempty"`
	GracePeriodEnd     *time.Time `gorm:"index" json:"grace_period_end,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Plan *Plan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// IsTerminal 是否终态（cancelled/expired 不再参与续费与去重检查）
func (s *Subscription) IsTerminal() bool {
	return s.Status == SubStatusCancelled || s.Status == SubStatusExpired
}

// HasAccess 当前时刻是否仍可访问会员内容。
// 宽限期内不锁定；cancelled 在当前周期结束前仍然有效。
func (s *Subscription) HasAccess(now time.Time) bool {
	switch s.Status {
	case SubStatusGracePeriod:
		return true
	case SubStatusExpired:
		return false
	default:
		return now.Before(s.CurrentPeriodEnd)
	}
}
