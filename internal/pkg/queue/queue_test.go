package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, cleanup
}

func TestQueue_PushPop(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "test_notifications")
	ctx := context.Background()

	due := time.Now().AddDate(0, 0, 3)
	job := &NotificationJob{
		Type:          NotifySecondDueSoon,
		UserID:        10,
		InstallmentID: 42,
		PlanID:        7,
		Amount:        600,
		DueDate:       &due,
	}

	err := q.Push(ctx, job)
	require.NoError(t, err)

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	result, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, NotifySecondDueSoon, result.Type)
	assert.Equal(t, int64(10), result.UserID)
	assert.Equal(t, int64(42), result.InstallmentID)
	assert.Equal(t, float64(600), result.Amount)
	require.NotNil(t, result.DueDate)
	assert.WithinDuration(t, due, *result.DueDate, time.Second)
}

func TestQueue_PopFIFO(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "test_fifo")
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		err := q.Push(ctx, &NotificationJob{Type: NotifyRenewalCharged, SubscriptionID: int64(i)})
		require.NoError(t, err)
	}

	for i := 1; i <= 3; i++ {
		result, err := q.Pop(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, int64(i), result.SubscriptionID)
	}
}

func TestQueue_PopEmpty(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "test_empty")

	result, err := q.Pop(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, result)
}
