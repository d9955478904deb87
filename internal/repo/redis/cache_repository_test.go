package redis

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/KarpovAlexandrGo/taskmaster/internal/entity"
	"github.com/KarpovAlexandrGo/taskmaster/internal/usecase"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient connects to TEST_REDIS_ADDR (default localhost:6379) on DB 15
// and skips when Redis is not reachable.
func testClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := NewClient(addr, "", 15)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("redis unavailable at %s: %v", addr, err)
	}
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func TestCacheRepository(t *testing.T) {
	client := testClient(t)
	cache := NewCacheRepository(client)
	ctx := context.Background()

	require.NoError(t, cache.Ping(ctx))

	_, ok, err := cache.GetView(ctx, "active")
	require.NoError(t, err)
	assert.False(t, ok)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tasks := []entity.Task{{
		ID:        uuid.New(),
		Title:     "cached",
		Status:    entity.StatusPending,
		Priority:  entity.PriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	gen, err := cache.Generation(ctx, "active")
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	require.NoError(t, cache.SetView(ctx, "active", gen, tasks, time.Minute))
	require.NoError(t, cache.SetView(ctx, "completed", 0, []entity.Task{}, time.Minute))

	got, ok, err := cache.GetView(ctx, "active")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tasks, got)

	ttl, err := client.TTL(ctx, keyPrefix+"active").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, cache.Invalidate(ctx, "active", "completed"))
	_, ok, err = cache.GetView(ctx, "active")
	require.NoError(t, err)
	assert.False(t, ok)

	gen, err = cache.Generation(ctx, "active")
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	assert.NoError(t, cache.Invalidate(ctx))
}

func TestCacheRepository_SetViewAfterInvalidate(t *testing.T) {
	client := testClient(t)
	cache := NewCacheRepository(client)
	ctx := context.Background()

	stale := []entity.Task{{ID: uuid.New(), Title: "before clear"}}

	gen, err := cache.Generation(ctx, "reminders")
	require.NoError(t, err)

	// A write lands while the reader is still loading.
	require.NoError(t, cache.Invalidate(ctx, "reminders"))

	err = cache.SetView(ctx, "reminders", gen, stale, time.Minute)
	assert.ErrorIs(t, err, usecase.ErrStaleView)

	_, ok, err := cache.GetView(ctx, "reminders")
	require.NoError(t, err)
	assert.False(t, ok)

	fresh, err := cache.Generation(ctx, "reminders")
	require.NoError(t, err)
	require.NoError(t, cache.SetView(ctx, "reminders", fresh, []entity.Task{}, time.Minute))
	_, ok, err = cache.GetView(ctx, "reminders")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCacheRepository_CorruptEntry(t *testing.T) {
	client := testClient(t)
	cache := NewCacheRepository(client)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, keyPrefix+"reminders", "not json", time.Minute).Err())
	_, ok, err := cache.GetView(ctx, "reminders")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestReminderPublisher(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, ReminderChannel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	note := usecase.Notification{
		TaskID:              uuid.New(),
		Title:               "Task Reminder",
		Body:                "Standup is due in 30 minutes",
		RemindAt:            time.Date(2024, 6, 1, 12, 20, 0, 0, time.UTC),
		DismissAfterSeconds: 10,
	}
	require.NoError(t, NewReminderPublisher(client).Notify(ctx, note))

	select {
	case msg := <-sub.Channel():
		var got usecase.Notification
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, note, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
