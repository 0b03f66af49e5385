package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/billing_go_server/internal/model"
)

// 非终态集合：同一 (user_id, plan_id) 最多允许一条处于其中
var openSubStatuses = []string{
	model.SubStatusActive,
	model.SubStatusPaused,
	model.SubStatusGracePeriod,
}

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// WithTx 返回绑定到事务的仓库
func (r *SubscriptionRepository) WithTx(tx *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: tx}
}

func (r *SubscriptionRepository) Create(sub *model.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *SubscriptionRepository) GetByID(id int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("id = ?", id).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) GetByIDWithPlan(id int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Preload("Plan").Where("id = ?", id).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetOpenByUserAndPlan 查找 (user, plan) 下处于非终态的订阅
func (r *SubscriptionRepository) GetOpenByUserAndPlan(userID, planID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("user_id = ? AND plan_id = ? AND status IN ?", userID, planID, openSubStatuses).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetByGatewaySubscriptionID 按网关订阅ID查找（webhook 入口）
func (r *SubscriptionRepository) GetByGatewaySubscriptionID(gatewaySubID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Preload("Plan").Where("gateway_subscription_id = ?", gatewaySubID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListByUserID 用户的全部订阅（历史保留，含终态）
func (r *SubscriptionRepository) ListByUserID(userID int64) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.Preload("Plan").Where("user_id = ?", userID).
		Order("created_at DESC").Find(&subs).Error
	return subs, err
}

// ListUpcomingRenewals 在 [now, until] 内到期扣款的自动续费订阅
func (r *SubscriptionRepository) ListUpcomingRenewals(now, until time.Time) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.Preload("Plan").
		Where("auto_pay_enabled = ? AND status = ? AND next_billing_date IS NOT NULL AND next_billing_date <= ?",
			true, model.SubStatusActive, until).
		Order("next_billing_date ASC").Find(&subs).Error
	return subs, err
}

// ListExpiredGrace 宽限期已结束、待转 expired 的订阅
func (r *SubscriptionRepository) ListExpiredGrace(now time.Time) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.Where("status = ? AND grace_period_end IS NOT NULL AND grace_period_end < ?",
		model.SubStatusGracePeriod, now).Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.Subscription{}).Where("id = ?", id).Updates(fields).Error
}

// HasProcessedPayment 该网关支付ID是否已在此订阅上入账
func (r *SubscriptionRepository) HasProcessedPayment(subID int64, gatewayPaymentID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.SubscriptionPayment{}).
		Where("subscription_id = ? AND gateway_payment_id = ?", subID, gatewayPaymentID).
		Count(&count).Error
	return count > 0, err
}

// RecordPayment 登记已入账的续费支付，唯一索引兜底并发重复
func (r *SubscriptionRepository) RecordPayment(payment *model.SubscriptionPayment) error {
	return r.db.Create(payment).Error
}
