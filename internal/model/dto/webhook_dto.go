package dto

import (
	"encoding/json"
	"errors"
)

// 网关回调事件类型
const (
	EventSubscriptionCharged       = "subscription.charged"
	EventSubscriptionPaymentFailed = "subscription.payment_failed"
	EventSubscriptionCancelled     = "subscription.cancelled"
)

// WebhookEnvelope 网关回调外层结构
type WebhookEnvelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// WebhookEvent 解析后的回调事件（带标签联合）
// 只有一个字段非 nil；未知事件只保留 Event 字符串。
type WebhookEvent struct {
	Event        string
	Renewal      *RenewalEvent
	Failure      *FailureEvent
	Cancellation *CancellationEvent
}

// RenewalEvent 续费成功
type RenewalEvent struct {
	GatewaySubscriptionID string `json:"subscription_id"`
	GatewayPaymentID      string `json:"payment_id"`
}

// FailureEvent 扣款失败
type FailureEvent struct {
	GatewaySubscriptionID string `json:"subscription_id"`
}

// CancellationEvent 网关侧取消通知（仅记录）
type CancellationEvent struct {
	GatewaySubscriptionID string `json:"subscription_id"`
}

var (
	ErrWebhookMalformed = errors.New("回调报文格式错误")
	ErrWebhookPayload   = errors.New("回调 payload 字段缺失")
)

// ParseWebhookEvent 在边界处把松散的回调 JSON 校验成带标签联合。
// 未知事件不报错，交给上层记录后忽略。
func ParseWebhookEvent(raw []byte) (*WebhookEvent, error) {
	var env WebhookEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ErrWebhookMalformed
	}
	if env.Event == "" {
		return nil, ErrWebhookMalformed
	}

	evt := &WebhookEvent{Event: env.Event}

	switch env.Event {
	case EventSubscriptionCharged:
		var p RenewalEvent
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.GatewaySubscriptionID == "" || p.GatewayPaymentID == "" {
			return nil, ErrWebhookPayload
		}
		evt.Renewal = &p
	case EventSubscriptionPaymentFailed:
		var p FailureEvent
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.GatewaySubscriptionID == "" {
			return nil, ErrWebhookPayload
		}
		evt.Failure = &p
	case EventSubscriptionCancelled:
		var p CancellationEvent
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.GatewaySubscriptionID == "" {
			return nil, ErrWebhookPayload
		}
		evt.Cancellation = &p
	}

	return evt, nil
}
