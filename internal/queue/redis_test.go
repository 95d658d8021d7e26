package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisQueue(t *testing.T) (*RedisQueue, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisQueueWithClient(client, DefaultConfig("test")), client
}

func TestRedisQueue_EnqueueDequeue(t *testing.T) {
	q, _ := setupRedisQueue(t)
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}

	require.NoError(t, q.Enqueue(ctx, payload{Name: "first"}))
	require.NoError(t, q.Enqueue(ctx, payload{Name: "second"}))

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, length)

	items, err := q.DequeueWithTimeout(ctx, 10, time.Second)
	require.NoError(t, err)
	require.Len(t, items, 2)

	var got payload
	raw, ok := items[0].(json.RawMessage)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "first", got.Name)
}

func TestRedisQueue_DequeueRespectsMaxItems(t *testing.T) {
	q, _ := setupRedisQueue(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		require.NoError(t, q.Enqueue(ctx, i))
	}

	items, err := q.DequeueWithTimeout(ctx, 4, time.Second)
	require.NoError(t, err)
	assert.Len(t, items, 4)

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, length)
}

func TestRedisDeadLetterQueue(t *testing.T) {
	_, client := setupRedisQueue(t)
	dlq := NewRedisDeadLetterQueue(client, "test")
	ctx := context.Background()

	require.NoError(t, dlq.Add(ctx, map[string]string{"k": "v"}, errors.New("boom")))

	items, err := dlq.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "boom", items[0].Error)

	require.NoError(t, dlq.Remove(ctx, items[0].ID))

	items, err = dlq.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, items)

	assert.ErrorIs(t, dlq.Remove(ctx, "nope"), ErrItemNotFound)
}
