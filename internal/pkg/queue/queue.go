package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// 通知类型
const (
	NotifyRenewalCharged = "renewal_charged"
	NotifyRenewalFailed  = "renewal_failed"
	NotifySubExpired     = "subscription_expired"
	NotifySubCancelled   = "subscription_cancelled"
	NotifyFirstPaid      = "installment_first_paid"
	NotifyInstCompleted  = "installment_completed"
	NotifySecondDueSoon  = "installment_second_due_soon"
)

// NotificationJob 交给外部通知服务消费的消息
type NotificationJob struct {
	Type           string     `json:"type"`
	UserID         int64      `json:"user_id"`
	SubscriptionID int64      `json:"subscription_id,omitempty"`
	InstallmentID  int64      `json:"installment_id,omitempty"`
	PlanID         int64      `json:"plan_id,omitempty"`
	Amount         float64    `json:"amount,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
}

type Queue struct {
	client    *redis.Client
	queueName string
}

func NewQueue(client *redis.Client, queueName string) *Queue {
	return &Queue{
		client:    client,
		queueName: queueName,
	}
}

// Push 将通知加入队列
func (q *Queue) Push(ctx context.Context, job *NotificationJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	return q.client.LPush(ctx, q.queueName, data).Err()
}

// Pop 从队列获取通知（阻塞，外部通知服务使用）
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*NotificationJob, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // 超时，无消息
		}
		return nil, fmt.Errorf("failed to pop from queue: %w", err)
	}

	if len(result) < 2 {
		return nil, nil
	}

	var job NotificationJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notification: %w", err)
	}

	return &job, nil
}

// Length 获取队列长度
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueName).Result()
}
