package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KarpovAlexandrGo/taskmaster/internal/entity"
	"github.com/KarpovAlexandrGo/taskmaster/internal/usecase"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "taskmaster:view:"

// CacheRepository keeps the serialized result of each query view under its own key.
type CacheRepository struct {
	client *redis.Client
	prefix string
}

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewCacheRepository(client *redis.Client) *CacheRepository {
	return &CacheRepository{client: client, prefix: keyPrefix}
}

func (c *CacheRepository) key(view string) string {
	return c.prefix + view
}

func (c *CacheRepository) genKey(view string) string {
	return c.prefix + view + ":gen"
}

// Generation returns how many times view has been invalidated; 0 if never.
func (c *CacheRepository) Generation(ctx context.Context, view string) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey(view)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("cache generation error: %w", err)
	}
	return gen, nil
}

// SetView stores tasks under view only if its generation is still gen. The
// generation key is watched, so an Invalidate that commits in between aborts
// the write.
func (c *CacheRepository) SetView(ctx context.Context, view string, gen int64, tasks []entity.Task, ttl time.Duration) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	genKey := c.genKey(view)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return usecase.ErrStaleView
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(view), data, ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case errors.Is(err, redis.TxFailedErr):
		return usecase.ErrStaleView
	case errors.Is(err, usecase.ErrStaleView):
		return err
	case err != nil:
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

// GetView reports a miss with ok=false rather than an error.
func (c *CacheRepository) GetView(ctx context.Context, view string) ([]entity.Task, bool, error) {
	data, err := c.client.Get(ctx, c.key(view)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("cache get error: %w", err)
	}

	var tasks []entity.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, false, fmt.Errorf("cache unmarshal error: %w", err)
	}
	return tasks, true, nil
}

func (c *CacheRepository) Invalidate(ctx context.Context, views ...string) error {
	if len(views) == 0 {
		return nil
	}
	// The generation moves first so no fill can land between the two.
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, v := range views {
			pipe.Incr(ctx, c.genKey(v))
			pipe.Del(ctx, c.key(v))
		}
		return nil
	})
	return err
}

// Ping проверяет подключение к Redis
func (c *CacheRepository) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
