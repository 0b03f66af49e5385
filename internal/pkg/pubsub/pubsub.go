package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelPaymentEvents = "payment_events"
)

// PaymentMessage 支付结果消息，推送给等待结果的前端
type PaymentMessage struct {
	Type           string `json:"type"`
	UserID         int64  `json:"user_id"`
	SubscriptionID int64  `json:"subscription_id,omitempty"`
	InstallmentID  int64  `json:"installment_id,omitempty"`
	Status         string `json:"status"`
	Message        string `json:"message,omitempty"`
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishPayment 发布支付结果消息
func (p *Publisher) PublishPayment(ctx context.Context, msg *PaymentMessage) error {
	if msg.Type == "" {
		msg.Type = "payment_update"
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal payment message: %w", err)
	}

	return p.client.Publish(ctx, ChannelPaymentEvents, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅支付结果消息，阻塞直到 ctx 取消
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*PaymentMessage)) error {
	pubsub := s.client.Subscribe(ctx, ChannelPaymentEvents)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var pm PaymentMessage
			if err := json.Unmarshal([]byte(msg.Payload), &pm); err != nil {
				log.Printf("pubsub: failed to unmarshal payment message: %v", err)
				continue
			}
			handler(&pm)
		}
	}
}
