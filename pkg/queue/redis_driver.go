package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisQueueKey = "orderdesk:queue:jobs"

// RedisDriver uses LPUSH/BRPOP on one list, so jobs survive restarts and
// are shared between worker processes.
type RedisDriver struct {
	rdb *redis.Client
	key string
}

func NewRedisDriver(rdb *redis.Client) *RedisDriver {
	return &RedisDriver{rdb: rdb, key: redisQueueKey}
}

func (d *RedisDriver) Push(ctx context.Context, payload []byte) error {
	if err := d.rdb.LPush(ctx, d.key, payload).Err(); err != nil {
		return fmt.Errorf("queue/redis: push: %w", err)
	}
	return nil
}

func (d *RedisDriver) Pop(ctx context.Context) ([]byte, error) {
	res, err := d.rdb.BRPop(ctx, 5*time.Second, d.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("queue/redis: pop: %w", err)
	}
	if len(res) < 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}
