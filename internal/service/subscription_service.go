package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/billing_go_server/config"
	"github.com/qs3c/billing_go_server/internal/model"
	"github.com/qs3c/billing_go_server/internal/pkg/gateway"
	"github.com/qs3c/billing_go_server/internal/pkg/pubsub"
	"github.com/qs3c/billing_go_server/internal/pkg/queue"
	"github.com/qs3c/billing_go_server/internal/repository"
)

var (
	ErrUserNotFound         = errors.New("用户不存在")
	ErrPlanNotFound         = errors.New("套餐不存在")
	ErrPlanNotBillable      = errors.New("套餐不可订购")
	ErrSubscriptionNotFound = errors.New("订阅不存在")
	ErrSubscriptionExists   = errors.New("该套餐已有进行中的订阅")
	ErrInvalidTransition    = errors.New("当前状态不允许该操作")
	ErrGateway              = errors.New("支付网关调用失败")
)

// PaymentGateway 服务依赖的网关能力，测试注入桩实现
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount float64, currency, receipt string) (*gateway.Order, error)
	CreateSubscription(ctx context.Context, planRef, paymentMethodID, customerRef string) (string, error)
}

type SubscriptionService struct {
	db          *gorm.DB
	subRepo     *repository.SubscriptionRepository
	planRepo    *repository.PlanRepository
	userRepo    *repository.UserRepository
	gateway     PaymentGateway
	notifyQueue *queue.Queue      // 可为 nil（测试、sweeper dry-run）
	publisher   *pubsub.Publisher // 可为 nil
	cfg         *config.Config
}

func NewSubscriptionService(
	db *gorm.DB,
	subRepo *repository.SubscriptionRepository,
	planRepo *repository.PlanRepository,
	userRepo *repository.UserRepository,
	gw PaymentGateway,
	notifyQueue *queue.Queue,
	publisher *pubsub.Publisher,
	cfg *config.Config,
) *SubscriptionService {
	return &SubscriptionService{
		db:          db,
		subRepo:     subRepo,
		planRepo:    planRepo,
		userRepo:    userRepo,
		gateway:     gw,
		notifyQueue: notifyQueue,
		publisher:   publisher,
		cfg:         cfg,
	}
}

// Create 创建订阅。同一 (user, plan) 不允许存在第二条非终态订阅。
func (s *SubscriptionService) Create(ctx context.Context, userID, planID int64, enableAutoPay bool) (*model.Subscription, error) {
	exists, err := s.userRepo.Exists(userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	plan, err := s.planRepo.GetByID(planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if !plan.IsBillable() {
		return nil, ErrPlanNotBillable
	}

	// 先做一次非事务去重，避免白白在网关侧建订阅
	if _, err := s.subRepo.GetOpenByUserAndPlan(userID, planID); err == nil {
		return nil, ErrSubscriptionExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now()
	periodEnd := now.AddDate(0, 0, plan.ValidityDays)

	sub := &model.Subscription{
		UserID:             userID,
		PlanID:             planID,
		Status:             model.SubStatusActive,
		AutoPayEnabled:     enableAutoPay,
		StartDate:          now,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   periodEnd,
	}

	if enableAutoPay {
		gwSubID, err := s.gateway.CreateSubscription(ctx,
			fmt.Sprintf("plan_%d", planID), "", fmt.Sprintf("user_%d", userID))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGateway, err)
		}
		sub.GatewaySubscriptionID = &gwSubID
		sub.NextBillingDate = &periodEnd
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.subRepo.WithTx(tx)
		// 事务内复查，防并发重复创建
		if _, err := repo.GetOpenByUserAndPlan(userID, planID); err == nil {
			return ErrSubscriptionExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return repo.Create(sub)
	})
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// EnableAutoPay 开启自动续费并保存支付方式。
// 从 grace_period 重新开启不会立即恢复 active，只有扣款成功才会。
func (s *SubscriptionService) EnableAutoPay(ctx context.Context, subID, userID int64, paymentMethodID string) (*model.Subscription, error) {
	sub, err := s.getOwned(subID, userID)
	if err != nil {
		return nil, err
	}
	if sub.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	gwSubID := sub.GatewaySubscriptionID
	if gwSubID == nil {
		id, err := s.gateway.CreateSubscription(ctx,
			fmt.Sprintf("plan_%d", sub.PlanID), paymentMethodID, fmt.Sprintf("user_%d", userID))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGateway, err)
		}
		gwSubID = &id
	}

	now := time.Now()
	// 周期已过则安排立即续费
	nextBilling := sub.CurrentPeriodEnd
	if now.After(sub.CurrentPeriodEnd) {
		nextBilling = now
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.subRepo.WithTx(tx)
		cur, err := repo.GetByID(subID)
		if err != nil {
			return err
		}
		if cur.IsTerminal() {
			return ErrInvalidTransition
		}
		return repo.UpdateFields(subID, map[string]interface{}{
			"auto_pay_enabled":        true,
			"payment_method_id":       paymentMethodID,
			"next_billing_date":       nextBilling,
			"gateway_subscription_id": gwSubID,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.subRepo.GetByID(subID)
}

// DisableAutoPay 关闭自动续费。状态不变，访问权保留到当前周期结束。
func (s *SubscriptionService) DisableAutoPay(ctx context.Context, subID, userID int64) (*model.Subscription, error) {
	if _, err := s.getOwned(subID, userID); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.subRepo.WithTx(tx).UpdateFields(subID, map[string]interface{}{
			"auto_pay_enabled":  false,
			"next_billing_date": nil,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.subRepo.GetByID(subID)
}

// Cancel 取消订阅。幂等：重复取消直接返回现状。
func (s *SubscriptionService) Cancel(ctx context.Context, subID, userID int64) (*model.Subscription, error) {
	sub, err := s.getOwned(subID, userID)
	if err != nil {
		return nil, err
	}
	if sub.Status == model.SubStatusCancelled {
		return sub, nil
	}
	if sub.Status == model.SubStatusExpired {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.subRepo.WithTx(tx)
		cur, err := repo.GetByID(subID)
		if err != nil {
			return err
		}
		if cur.Status == model.SubStatusCancelled {
			return nil
		}
		if cur.Status == model.SubStatusExpired {
			return ErrInvalidTransition
		}
		return repo.UpdateFields(subID, map[string]interface{}{
			"status":            model.SubStatusCancelled,
			"cancelled_at":      now,
			"auto_pay_enabled":  false,
			"next_billing_date": nil,
			"grace_period_end":  nil,
		})
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.subRepo.GetByID(subID)
	if err != nil {
		return nil, err
	}

	s.enqueue(ctx, &queue.NotificationJob{
		Type:           queue.NotifySubCancelled,
		UserID:         userID,
		SubscriptionID: subID,
		PlanID:         updated.PlanID,
	})

	return updated, nil
}

// ProcessRenewal 处理 subscription.charged 回调。
// 同一网关支付ID重复投递是只读 no-op；宽限期内扣款成功会恢复 active，
// 且新周期从原 currentPeriodEnd 顺延，用户已付时间不损失。
func (s *SubscriptionService) ProcessRenewal(ctx context.Context, gatewaySubID, gatewayPaymentID string) (*model.Subscription, error) {
	var result *model.Subscription
	var applied bool

	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.subRepo.WithTx(tx)
		sub, err := repo.GetByGatewaySubscriptionID(gatewaySubID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubscriptionNotFound
			}
			return err
		}

		// 幂等：该支付ID已入账（流水表覆盖晚到的旧支付ID重放）
		processed, err := repo.HasProcessedPayment(sub.ID, gatewayPaymentID)
		if err != nil {
			return err
		}
		if processed {
			result = sub
			return nil
		}

		// 终态订阅不再续费，迟到的回调按 no-op 处理
		if sub.IsTerminal() {
			log.Printf("Renewal webhook for terminal subscription %d (status=%s), ignored", sub.ID, sub.Status)
			result = sub
			return nil
		}

		if sub.Plan == nil {
			return ErrPlanNotFound
		}

		newStart := sub.CurrentPeriodEnd
		newEnd := newStart.AddDate(0, 0, sub.Plan.ValidityDays)

		if err := repo.UpdateFields(sub.ID, map[string]interface{}{
			"status":               model.SubStatusActive,
			"current_period_start": newStart,
			"current_period_end":   newEnd,
			"next_billing_date":    newEnd,
			"grace_period_end":     nil,
			"last_payment_id":      gatewayPaymentID,
		}); err != nil {
			return err
		}

		if err := repo.RecordPayment(&model.SubscriptionPayment{
			SubscriptionID:   sub.ID,
			GatewayPaymentID: gatewayPaymentID,
			PeriodStart:      newStart,
			PeriodEnd:        newEnd,
		}); err != nil {
			return err
		}

		applied = true
		result, err = repo.GetByID(sub.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if applied {
		s.enqueue(ctx, &queue.NotificationJob{
			Type:           queue.NotifyRenewalCharged,
			UserID:         result.UserID,
			SubscriptionID: result.ID,
			PlanID:         result.PlanID,
		})
		s.publish(ctx, &pubsub.PaymentMessage{
			UserID:         result.UserID,
			SubscriptionID: result.ID,
			Status:         "charged",
		})
	}

	return result, nil
}

// HandleFailedRenewal 处理 subscription.payment_failed 回调。
// 只允许 active → grace_period；其余状态下的失败通知是 no-op。
// 宽限期内不回收访问权。
func (s *SubscriptionService) HandleFailedRenewal(ctx context.Context, gatewaySubID string) (*model.Subscription, error) {
	var result *model.Subscription
	var entered bool

	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.subRepo.WithTx(tx)
		sub, err := repo.GetByGatewaySubscriptionID(gatewaySubID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubscriptionNotFound
			}
			return err
		}

		if sub.Status != model.SubStatusActive {
			result = sub
			return nil
		}

		graceEnd := time.Now().AddDate(0, 0, s.cfg.Billing.GracePeriodDays)
		if err := repo.UpdateFields(sub.ID, map[string]interface{}{
			"status":           model.SubStatusGracePeriod,
			"grace_period_end": graceEnd,
		}); err != nil {
			return err
		}

		entered = true
		result, err = repo.GetByID(sub.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if entered {
		s.enqueue(ctx, &queue.NotificationJob{
			Type:           queue.NotifyRenewalFailed,
			UserID:         result.UserID,
			SubscriptionID: result.ID,
			PlanID:         result.PlanID,
		})
		s.publish(ctx, &pubsub.PaymentMessage{
			UserID:         result.UserID,
			SubscriptionID: result.ID,
			Status:         "payment_failed",
		})
	}

	return result, nil
}

// SweepExpiredGracePeriods 把宽限期已结束的订阅转为 expired。
// 唯一进入 expired 的路径，由外部调度器触发。
func (s *SubscriptionService) SweepExpiredGracePeriods(ctx context.Context) (int, error) {
	now := time.Now()
	var swept []*model.Subscription

	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.subRepo.WithTx(tx)
		subs, err := repo.ListExpiredGrace(now)
		if err != nil {
			return err
		}

		for _, sub := range subs {
			if err := repo.UpdateFields(sub.ID, map[string]interface{}{
				"status":            model.SubStatusExpired,
				"grace_period_end":  nil,
				"next_billing_date": nil,
				"auto_pay_enabled":  false,
			}); err != nil {
				return err
			}
			swept = append(swept, sub)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, sub := range swept {
		s.enqueue(ctx, &queue.NotificationJob{
			Type:           queue.NotifySubExpired,
			UserID:         sub.UserID,
			SubscriptionID: sub.ID,
			PlanID:         sub.PlanID,
		})
	}

	return len(swept), nil
}

// GetForUser 查询单条订阅（校验归属）
func (s *SubscriptionService) GetForUser(subID, userID int64) (*model.Subscription, error) {
	return s.getOwned(subID, userID)
}

// ListByUser 用户全部订阅
func (s *SubscriptionService) ListByUser(userID int64) ([]*model.Subscription, error) {
	return s.subRepo.ListByUserID(userID)
}

// ListUpcomingRenewals 未来 days 天内到期扣款的订阅
func (s *SubscriptionService) ListUpcomingRenewals(days int) ([]*model.Subscription, error) {
	now := time.Now()
	return s.subRepo.ListUpcomingRenewals(now, now.AddDate(0, 0, days))
}

func (s *SubscriptionService) getOwned(subID, userID int64) (*model.Subscription, error) {
	sub, err := s.subRepo.GetByID(subID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	// 不泄露他人订阅的存在性
	if sub.UserID != userID {
		return nil, ErrSubscriptionNotFound
	}
	return sub, nil
}

// enqueue 通知入队，尽力而为，失败只记日志不影响主流程
func (s *SubscriptionService) enqueue(ctx context.Context, job *queue.NotificationJob) {
	if s.notifyQueue == nil {
		return
	}
	if err := s.notifyQueue.Push(ctx, job); err != nil {
		log.Printf("Failed to enqueue notification %s for user %d: %v", job.Type, job.UserID, err)
	}
}

func (s *SubscriptionService) publish(ctx context.Context, msg *pubsub.PaymentMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishPayment(ctx, msg); err != nil {
		log.Printf("Failed to publish payment event for user %d: %v", msg.UserID, err)
	}
}
