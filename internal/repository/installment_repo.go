package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/billing_go_server/internal/model"
)

var openInstStatuses = []string{
	model.InstStatusFirstPending,
	model.InstStatusSecondPending,
}

type InstallmentRepository struct {
	db *gorm.DB
}

func NewInstallmentRepository(db *gorm.DB) *InstallmentRepository {
	return &InstallmentRepository{db: db}
}

// WithTx 返回绑定到事务的仓库
func (r *InstallmentRepository) WithTx(tx *gorm.DB) *InstallmentRepository {
	return &InstallmentRepository{db: tx}
}

func (r *InstallmentRepository) Create(inst *model.InstallmentPlan) error {
	return r.db.Create(inst).Error
}

func (r *InstallmentRepository) GetByID(id int64) (*model.InstallmentPlan, error) {
	var inst model.InstallmentPlan
	err := r.db.Where("id = ?", id).First(&inst).Error
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// GetOpenByUserAndPlan 查找 (user, plan) 下未完结的分期
func (r *InstallmentRepository) GetOpenByUserAndPlan(userID, planID int64) (*model.InstallmentPlan, error) {
	var inst model.InstallmentPlan
	err := r.db.Where("user_id = ? AND plan_id = ? AND status IN ?", userID, planID, openInstStatuses).
		First(&inst).Error
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// GetByFirstPaymentID 幂等检查：该网关支付ID是否已核销过首期
func (r *InstallmentRepository) GetByFirstPaymentID(paymentID string) (*model.InstallmentPlan, error) {
	var inst model.InstallmentPlan
	err := r.db.Where("first_payment_id = ?", paymentID).First(&inst).Error
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// GetBySecondPaymentID 幂等检查：该网关支付ID是否已核销过二期
func (r *InstallmentRepository) GetBySecondPaymentID(paymentID string) (*model.InstallmentPlan, error) {
	var inst model.InstallmentPlan
	err := r.db.Where("second_payment_id = ?", paymentID).First(&inst).Error
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// ListPendingSecond 用户待支付二期的分期
func (r *InstallmentRepository) ListPendingSecond(userID int64) ([]*model.InstallmentPlan, error) {
	var insts []*model.InstallmentPlan
	err := r.db.Preload("Plan").
		Where("user_id = ? AND status = ?", userID, model.InstStatusSecondPending).
		Order("second_due_date ASC").Find(&insts).Error
	return insts, err
}

// ListByUserID 用户的全部分期记录（历史保留）
func (r *InstallmentRepository) ListByUserID(userID int64) ([]*model.InstallmentPlan, error) {
	var insts []*model.InstallmentPlan
	err := r.db.Preload("Plan").Where("user_id = ?", userID).
		Order("created_at DESC").Find(&insts).Error
	return insts, err
}

// ListSecondDueWithin 在 [now, until] 内到期的二期（提醒用）
func (r *InstallmentRepository) ListSecondDueWithin(now, until time.Time) ([]*model.InstallmentPlan, error) {
	var insts []*model.InstallmentPlan
	err := r.db.Where("status = ? AND second_due_date IS NOT NULL AND second_due_date BETWEEN ? AND ?",
		model.InstStatusSecondPending, now, until).
		Order("second_due_date ASC").Find(&insts).Error
	return insts, err
}

func (r *InstallmentRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.InstallmentPlan{}).Where("id = ?", id).Updates(fields).Error
}
