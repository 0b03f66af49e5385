package service

import (
	"context"
	"errors"
	"log"

	"github.com/qs3c/billing_go_server/config"
	"github.com/qs3c/billing_go_server/internal/model"
	"github.com/qs3c/billing_go_server/internal/model/dto"
	"github.com/qs3c/billing_go_server/internal/pkg/gateway"
)

// SubscriptionLifecycle 回调驱动的订阅生命周期流转
type SubscriptionLifecycle interface {
	ProcessRenewal(ctx context.Context, gatewaySubID, gatewayPaymentID string) (*model.Subscription, error)
	HandleFailedRenewal(ctx context.Context, gatewaySubID string) (*model.Subscription, error)
}

// WebhookService 网关回调对账。
// 传输层面宽松（任何报文都回 200），状态层面严格（非法流转绝不入库）。
type WebhookService struct {
	subs SubscriptionLifecycle
	cfg  *config.Config
}

func NewWebhookService(subs SubscriptionLifecycle, cfg *config.Config) *WebhookService {
	return &WebhookService{subs: subs, cfg: cfg}
}

// Process 处理一条原始回调。永远不把错误抛给网关：
// 解析失败、签名不过、业务拒绝都只记日志，由调用方统一回 200。
func (s *WebhookService) Process(ctx context.Context, body []byte, signature string) {
	if s.cfg.Gateway.WebhookSecret != "" {
		if !gateway.VerifyWebhookSignature(body, signature, s.cfg.Gateway.WebhookSecret) {
			log.Printf("SECURITY: webhook signature mismatch, dropping event")
			return
		}
	}

	evt, err := dto.ParseWebhookEvent(body)
	if err != nil {
		log.Printf("Webhook parse error: %v", err)
		return
	}

	switch evt.Event {
	case dto.EventSubscriptionCharged:
		if _, err := s.subs.ProcessRenewal(ctx, evt.Renewal.GatewaySubscriptionID, evt.Renewal.GatewayPaymentID); err != nil {
			s.logReconcileError("renewal", evt.Renewal.GatewaySubscriptionID, err)
		}
	case dto.EventSubscriptionPaymentFailed:
		if _, err := s.subs.HandleFailedRenewal(ctx, evt.Failure.GatewaySubscriptionID); err != nil {
			s.logReconcileError("payment failure", evt.Failure.GatewaySubscriptionID, err)
		}
	case dto.EventSubscriptionCancelled:
		// 网关侧取消只记录，本地取消以用户显式操作为准
		log.Printf("Webhook: gateway-side cancellation for subscription %s, no local action",
			evt.Cancellation.GatewaySubscriptionID)
	default:
		log.Printf("Webhook: ignoring unknown event %q", evt.Event)
	}
}

func (s *WebhookService) logReconcileError(kind, gatewaySubID string, err error) {
	// 找不到订阅或流转被拒都是预期内情形，降级为普通日志
	if errors.Is(err, ErrSubscriptionNotFound) || errors.Is(err, ErrInvalidTransition) {
		log.Printf("Webhook: %s for subscription %s skipped: %v", kind, gatewaySubID, err)
		return
	}
	log.Printf("Webhook: %s for subscription %s failed: %v", kind, gatewaySubID, err)
}
