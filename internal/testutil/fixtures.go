package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/billing_go_server/internal/model"
)

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	email := fmt.Sprintf("test_%d@example.com", time.Now().UnixNano())
	user := &model.User{
		Username: fmt.Sprintf("testuser_%d", time.Now().UnixNano()%1000000),
		Email:    &email,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithUsername 设置用户名
func WithUsername(username string) func(*model.User) {
	return func(u *model.User) {
		u.Username = username
	}
}

// TestPlan 创建测试套餐
func TestPlan(t *testing.T, db *gorm.DB, opts ...func(*model.Plan)) *model.Plan {
	t.Helper()

	plan := &model.Plan{
		Name:         fmt.Sprintf("套餐_%d", time.Now().UnixNano()%1000000),
		Price:        1000,
		ValidityDays: 90,
		Status:       "active",
	}

	for _, opt := range opts {
		opt(plan)
	}

	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("Failed to create test plan: %v", err)
	}

	return plan
}

// WithPrice 设置套餐价格
func WithPrice(price float64) func(*model.Plan) {
	return func(p *model.Plan) {
		p.Price = price
	}
}

// WithValidityDays 设置套餐有效期天数
func WithValidityDays(days int) func(*model.Plan) {
	return func(p *model.Plan) {
		p.ValidityDays = days
	}
}

// WithPlanStatus 设置套餐状态
func WithPlanStatus(status string) func(*model.Plan) {
	return func(p *model.Plan) {
		p.Status = status
	}
}

// TestSubscription 创建测试订阅，默认 active、当前周期 90 天
func TestSubscription(t *testing.T, db *gorm.DB, userID, planID int64, opts ...func(*model.Subscription)) *model.Subscription {
	t.Helper()

	now := time.Now()
	end := now.AddDate(0, 0, 90)
	sub := &model.Subscription{
		UserID:             userID,
		PlanID:             planID,
		Status:             model.SubStatusActive,
		StartDate:          now,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   end,
	}

	for _, opt := range opts {
		opt(sub)
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}

// WithSubStatus 设置订阅状态
func WithSubStatus(status string) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.Status = status
	}
}

// WithAutoPay 开启自动续费并绑定网关订阅
func WithAutoPay(gatewaySubID string) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.AutoPayEnabled = true
		s.GatewaySubscriptionID = &gatewaySubID
		next := s.CurrentPeriodEnd
		s.NextBillingDate = &next
	}
}

// WithGracePeriodEnd 设置宽限期截止
func WithGracePeriodEnd(end time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.Status = model.SubStatusGracePeriod
		s.GracePeriodEnd = &end
	}
}

// WithPeriod 设置当前周期
func WithPeriod(start, end time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.CurrentPeriodStart = start
		s.CurrentPeriodEnd = end
	}
}

// TestInstallment 创建测试分期，默认首期待支付
func TestInstallment(t *testing.T, db *gorm.DB, userID, planID int64, opts ...func(*model.InstallmentPlan)) *model.InstallmentPlan {
	t.Helper()

	orderID := fmt.Sprintf("order_%d", time.Now().UnixNano())
	inst := &model.InstallmentPlan{
		UserID:                  userID,
		PlanID:                  planID,
		Status:                  model.InstStatusFirstPending,
		TotalAmount:             1000,
		FirstInstallmentAmount:  400,
		SecondInstallmentAmount: 600,
		FirstOrderID:            &orderID,
		FirstPaymentStatus:      model.PaymentStatusPending,
		SecondPaymentStatus:     model.PaymentStatusPending,
	}

	for _, opt := range opts {
		opt(inst)
	}

	if err := db.Create(inst).Error; err != nil {
		t.Fatalf("Failed to create test installment: %v", err)
	}

	return inst
}

// WithInstStatus 设置分期状态
func WithInstStatus(status string) func(*model.InstallmentPlan) {
	return func(p *model.InstallmentPlan) {
		p.Status = status
	}
}

// WithFirstPaid 首期已核销，进入二期待支付
func WithFirstPaid(paymentID string, paidAt time.Time, secondDue time.Time) func(*model.InstallmentPlan) {
	return func(p *model.InstallmentPlan) {
		p.Status = model.InstStatusSecondPending
		p.FirstPaymentID = &paymentID
		p.FirstPaymentStatus = model.PaymentStatusPaid
		p.FirstPaidAt = &paidAt
		p.SecondDueDate = &secondDue
	}
}

// WithSecondOrder 已创建二期订单
func WithSecondOrder(orderID string) func(*model.InstallmentPlan) {
	return func(p *model.InstallmentPlan) {
		p.SecondOrderID = &orderID
	}
}

// WithAmounts 设置分期金额
func WithAmounts(total, first float64) func(*model.InstallmentPlan) {
	return func(p *model.InstallmentPlan) {
		p.TotalAmount = total
		p.FirstInstallmentAmount = first
		p.SecondInstallmentAmount = total - first
	}
}
