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
	"github.com/qs3c/billing_go_server/internal/model/dto"
	"github.com/qs3c/billing_go_server/internal/pkg/gateway"
	"github.com/qs3c/billing_go_server/internal/pkg/pubsub"
	"github.com/qs3c/billing_go_server/internal/pkg/queue"
	"github.com/qs3c/billing_go_server/internal/repository"
)

var (
	ErrInstallmentNotFound = errors.New("分期记录不存在")
	ErrInstallmentExists   = errors.New("该套餐已有进行中的分期")
	ErrInvalidFirstAmount  = errors.New("首期金额不合法")
	ErrOrderMismatch       = errors.New("订单号不匹配")
	ErrSignatureInvalid    = errors.New("签名校验失败")
)

type InstallmentService struct {
	db          *gorm.DB
	instRepo    *repository.InstallmentRepository
	planRepo    *repository.PlanRepository
	userRepo    *repository.UserRepository
	gateway     PaymentGateway
	notifyQueue *queue.Queue      // 可为 nil
	publisher   *pubsub.Publisher // 可为 nil
	cfg         *config.Config
}

func NewInstallmentService(
	db *gorm.DB,
	instRepo *repository.InstallmentRepository,
	planRepo *repository.PlanRepository,
	userRepo *repository.UserRepository,
	gw PaymentGateway,
	notifyQueue *queue.Queue,
	publisher *pubsub.Publisher,
	cfg *config.Config,
) *InstallmentService {
	return &InstallmentService{
		db:          db,
		instRepo:    instRepo,
		planRepo:    planRepo,
		userRepo:    userRepo,
		gateway:     gw,
		notifyQueue: notifyQueue,
		publisher:   publisher,
		cfg:         cfg,
	}
}

// CreateFirstOrder 创建首期网关订单并落分期记录。
// 二期金额 = 套餐价 - 首期金额。
func (s *InstallmentService) CreateFirstOrder(ctx context.Context, userID, planID int64, firstAmount float64) (*dto.InstallmentOrderResponse, error) {
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
	if firstAmount <= 0 || firstAmount >= plan.Price {
		return nil, ErrInvalidFirstAmount
	}

	if _, err := s.instRepo.GetOpenByUserAndPlan(userID, planID); err == nil {
		return nil, ErrInstallmentExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	order, err := s.gateway.CreateOrder(ctx, firstAmount, s.cfg.Billing.Currency,
		fmt.Sprintf("inst_first_u%d_p%d", userID, planID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	inst := &model.InstallmentPlan{
		UserID:                  userID,
		PlanID:                  planID,
		Status:                  model.InstStatusFirstPending,
		TotalAmount:             plan.Price,
		FirstInstallmentAmount:  firstAmount,
		SecondInstallmentAmount: plan.Price - firstAmount,
		FirstOrderID:            &order.ID,
		FirstPaymentStatus:      model.PaymentStatusPending,
		SecondPaymentStatus:     model.PaymentStatusPending,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.instRepo.WithTx(tx)
		// 事务内复查，防并发重复创建
		if _, err := repo.GetOpenByUserAndPlan(userID, planID); err == nil {
			return ErrInstallmentExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return repo.Create(inst)
	})
	if err != nil {
		return nil, err
	}

	return &dto.InstallmentOrderResponse{
		OrderID:  order.ID,
		Amount:   firstAmount,
		Currency: s.cfg.Billing.Currency,
		InstallmentDetails: &dto.InstallmentDetails{
			InstallmentID: inst.ID,
			TotalAmount:   inst.TotalAmount,
			FirstAmount:   inst.FirstInstallmentAmount,
			SecondAmount:  inst.SecondInstallmentAmount,
		},
	}, nil
}

// VerifyFirst 核销首期支付。签名不过一律硬拒绝且零状态变更；
// 同一网关支付ID重复提交返回现有记录（幂等）。
// secondDueDate 在此处一次性写入，为 firstPaidAt + 账期天数。
func (s *InstallmentService) VerifyFirst(ctx context.Context, req *dto.VerifyFirstInstallmentRequest) (*model.InstallmentPlan, error) {
	if !gateway.VerifyPaymentSignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature, s.cfg.Gateway.KeySecret) {
		log.Printf("SECURITY: first installment signature mismatch, user=%d order=%s payment=%s",
			req.UserID, req.GatewayOrderID, req.GatewayPaymentID)
		return nil, ErrSignatureInvalid
	}

	var result *model.InstallmentPlan
	var paid bool

	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.instRepo.WithTx(tx)

		// 幂等：该支付ID已核销过
		if inst, err := repo.GetByFirstPaymentID(req.GatewayPaymentID); err == nil {
			result = inst
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		inst, err := repo.GetOpenByUserAndPlan(req.UserID, req.PlanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInstallmentNotFound
			}
			return err
		}
		if inst.Status != model.InstStatusFirstPending {
			return ErrInvalidTransition
		}
		if inst.FirstOrderID == nil || *inst.FirstOrderID != req.GatewayOrderID {
			return ErrOrderMismatch
		}

		now := time.Now()
		secondDue := now.AddDate(0, 0, s.cfg.Billing.SecondDueDays)
		if err := repo.UpdateFields(inst.ID, map[string]interface{}{
			"first_payment_id":     req.GatewayPaymentID,
			"first_payment_status": model.PaymentStatusPaid,
			"first_paid_at":        now,
			"second_due_date":      secondDue,
			"status":               model.InstStatusSecondPending,
		}); err != nil {
			return err
		}

		paid = true
		result, err = repo.GetByID(inst.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if paid {
		s.enqueue(ctx, &queue.NotificationJob{
			Type:          queue.NotifyFirstPaid,
			UserID:        result.UserID,
			InstallmentID: result.ID,
			PlanID:        result.PlanID,
			Amount:        result.FirstInstallmentAmount,
			DueDate:       result.SecondDueDate,
		})
		s.publish(ctx, &pubsub.PaymentMessage{
			UserID:        result.UserID,
			InstallmentID: result.ID,
			Status:        "first_paid",
		})
	}

	return result, nil
}

// CreateSecondOrder 创建二期订单。必须首期已核销（second_pending）。
func (s *InstallmentService) CreateSecondOrder(ctx context.Context, instID, userID int64) (*dto.InstallmentOrderResponse, error) {
	inst, err := s.getOwned(instID, userID)
	if err != nil {
		return nil, err
	}
	if inst.Status != model.InstStatusSecondPending {
		return nil, ErrInvalidTransition
	}

	order, err := s.gateway.CreateOrder(ctx, inst.SecondInstallmentAmount, s.cfg.Billing.Currency,
		fmt.Sprintf("inst_second_%d", instID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.instRepo.WithTx(tx)
		cur, err := repo.GetByID(instID)
		if err != nil {
			return err
		}
		if cur.Status != model.InstStatusSecondPending {
			return ErrInvalidTransition
		}
		return repo.UpdateFields(instID, map[string]interface{}{
			"second_order_id": order.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	return &dto.InstallmentOrderResponse{
		OrderID:  order.ID,
		Amount:   inst.SecondInstallmentAmount,
		Currency: s.cfg.Billing.Currency,
	}, nil
}

// VerifySecond 核销二期支付，成功后分期完结，不再有任何流转。
func (s *InstallmentService) VerifySecond(ctx context.Context, req *dto.VerifySecondInstallmentRequest) (*model.InstallmentPlan, error) {
	if !gateway.VerifyPaymentSignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature, s.cfg.Gateway.KeySecret) {
		log.Printf("SECURITY: second installment signature mismatch, installment=%d order=%s payment=%s",
			req.InstallmentID, req.GatewayOrderID, req.GatewayPaymentID)
		return nil, ErrSignatureInvalid
	}

	var result *model.InstallmentPlan
	var completed bool

	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.instRepo.WithTx(tx)

		// 幂等：该支付ID已核销过
		if inst, err := repo.GetBySecondPaymentID(req.GatewayPaymentID); err == nil {
			result = inst
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		inst, err := repo.GetByID(req.InstallmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInstallmentNotFound
			}
			return err
		}
		if inst.Status != model.InstStatusSecondPending {
			return ErrInvalidTransition
		}
		if inst.SecondOrderID == nil || *inst.SecondOrderID != req.GatewayOrderID {
			return ErrOrderMismatch
		}

		now := time.Now()
		if err := repo.UpdateFields(inst.ID, map[string]interface{}{
			"second_payment_id":     req.GatewayPaymentID,
			"second_payment_status": model.PaymentStatusPaid,
			"second_paid_at":        now,
			"status":                model.InstStatusCompleted,
		}); err != nil {
			return err
		}

		completed = true
		result, err = repo.GetByID(inst.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if completed {
		s.enqueue(ctx, &queue.NotificationJob{
			Type:          queue.NotifyInstCompleted,
			UserID:        result.UserID,
			InstallmentID: result.ID,
			PlanID:        result.PlanID,
			Amount:        result.SecondInstallmentAmount,
		})
		s.publish(ctx, &pubsub.PaymentMessage{
			UserID:        result.UserID,
			InstallmentID: result.ID,
			Status:        "completed",
		})
	}

	return result, nil
}

// ListPending 用户待支付二期的分期。逾期是只读事实，由外部跟进。
func (s *InstallmentService) ListPending(userID int64) ([]*model.InstallmentPlan, error) {
	return s.instRepo.ListPendingSecond(userID)
}

// ListHistory 用户全部分期记录
func (s *InstallmentService) ListHistory(userID int64) ([]*model.InstallmentPlan, error) {
	return s.instRepo.ListByUserID(userID)
}

// MarkFailed 管理员手动作废分期。失败不会自动发生。
func (s *InstallmentService) MarkFailed(ctx context.Context, instID int64) (*model.InstallmentPlan, error) {
	var result *model.InstallmentPlan

	err := s.db.Transaction(func(tx *gorm.DB) error {
		repo := s.instRepo.WithTx(tx)
		inst, err := repo.GetByID(instID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInstallmentNotFound
			}
			return err
		}
		if inst.IsTerminal() {
			return ErrInvalidTransition
		}

		fields := map[string]interface{}{
			"status": model.InstStatusFailed,
		}
		// 未支付的分期腿一并标记失败
		if inst.FirstPaymentStatus == model.PaymentStatusPending {
			fields["first_payment_status"] = model.PaymentStatusFailed
		}
		if inst.SecondPaymentStatus == model.PaymentStatusPending {
			fields["second_payment_status"] = model.PaymentStatusFailed
		}
		if err := repo.UpdateFields(instID, fields); err != nil {
			return err
		}

		result, err = repo.GetByID(instID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *InstallmentService) getOwned(instID, userID int64) (*model.InstallmentPlan, error) {
	inst, err := s.instRepo.GetByID(instID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInstallmentNotFound
		}
		return nil, err
	}
	if inst.UserID != userID {
		return nil, ErrInstallmentNotFound
	}
	return inst, nil
}

func (s *InstallmentService) enqueue(ctx context.Context, job *queue.NotificationJob) {
	if s.notifyQueue == nil {
		return
	}
	if err := s.notifyQueue.Push(ctx, job); err != nil {
		log.Printf("Failed to enqueue notification %s for user %d: %v", job.Type, job.UserID, err)
	}
}

func (s *InstallmentService) publish(ctx context.Context, msg *pubsub.PaymentMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishPayment(ctx, msg); err != nil {
		log.Printf("Failed to publish payment event for user %d: %v", msg.UserID, err)
	}
}
