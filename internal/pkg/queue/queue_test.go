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

func TestNewQueue(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "crm_sync_jobs")

	assert.NotNil(t, q)
	assert.Equal(t, "crm_sync_jobs", q.queueName)
	assert.Equal(t, client, q.client)
}

func TestQueue_PushAndPop(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "crm_sync_jobs")
	ctx := context.Background()

	msg := &SyncMessage{
		QuoteID:     1,
		QuoteNumber: 1001,
		EventType:   "payment.capture.created",
		Email:       "alice@example.com",
		Name:        "Alice Tester",
		Note:        "首笔付款入账",
		Amount:      300.00,
	}

	require.NoError(t, q.Push(ctx, msg))

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)

	got, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, msg.QuoteNumber, got.QuoteNumber)
	assert.Equal(t, msg.EventType, got.EventType)
	assert.Equal(t, msg.Email, got.Email)
	assert.InDelta(t, msg.Amount, got.Amount, 0.001)
}

func TestQueue_PopOrder(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "crm_sync_jobs")
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, &SyncMessage{QuoteNumber: 1001}))
	require.NoError(t, q.Push(ctx, &SyncMessage{QuoteNumber: 1002}))

	// FIFO
	first, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), first.QuoteNumber)

	second, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1002), second.QuoteNumber)
}

func TestQueue_PopTimeout(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	q := NewQueue(client, "crm_sync_jobs")

	msg, err := q.Pop(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, msg)
}
