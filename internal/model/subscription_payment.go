package model

import (
	"time"
)

// SubscriptionPayment 已入账的续费支付流水。
// (subscription_id, gateway_payment_id) 唯一，是续费回调的幂等键：
// 重复投递（包括晚到的旧支付ID）按只读 no-op 处理。
type SubscriptionPayment struct {
	ID               int64     `gorm:"primaryKey" json:"id"`
	SubscriptionID   int64     `gorm:"not null;uniqueIndex:uniq_sub_payment" json:"subscription_id"`
	GatewayPaymentID string    `gorm:"size:100;not null;uniqueIndex:uniq_sub_payment" json:"gateway_payment_id"`
	PeriodStart      time.Time `gorm:"not null" json:"period_start"`
	PeriodEnd        time.Time `gorm:"not null" json:"period_end"`
	CreatedAt        time.Time `json:"created_at"`
}

func (SubscriptionPayment) TableName() string {
	return "subscription_payments"
}
