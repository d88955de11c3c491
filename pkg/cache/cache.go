// Package cache is a small key/value store with TTLs, backed by Redis when
// REDIS_ADDR is set and by process memory otherwise.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mmsi/orderdesk/config"
	"github.com/redis/go-redis/v9"
)

type Store interface {
	// Get unmarshals the value into dest; false on miss.
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Has(ctx context.Context, key string) (bool, error)
}

// Connect returns a Redis-backed store and its client when Redis is
// configured and reachable, or a memory store otherwise.
func Connect(ctx context.Context) (Store, *redis.Client, error) {
	addr := config.RedisAddr()
	if addr == "" {
		return NewMemory(), nil, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: config.RedisPassword()})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return NewMemory(), nil, fmt.Errorf("cache: redis ping: %w", err)
	}
	return NewRedis(rdb), rdb, nil
}

// Remember returns the cached value for key, or calls load and caches it.
func Remember[T any](ctx context.Context, s Store, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	var v T
	if hit, err := s.Get(ctx, key, &v); err == nil && hit {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	_ = s.Set(ctx, key, v, ttl)
	return v, nil
}

// ── Redis ────────────────────────────────────────────────────────────────────

type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis { return &Redis{rdb: rdb} }

func (r *Redis) Get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(val, dest)
}

func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, key, data, ttl).Err()
}

func (r *Redis) Del(ctx context.Context, keys ...string) error {
	return r.rdb.Del(ctx, keys...).Err()
}

func (r *Redis) Has(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// ── Memory ───────────────────────────────────────────────────────────────────

type item struct {
	data      []byte
	expiresAt time.Time
}

type Memory struct {
	mu    sync.Mutex
	items map[string]item
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]item), now: time.Now}
}

func (m *Memory) lookup(key string) (item, bool) {
	it, ok := m.items[key]
	if ok && !it.expiresAt.IsZero() && m.now().After(it.expiresAt) {
		delete(m.items, key)
		return item{}, false
	}
	return it, ok
}

func (m *Memory) Get(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	it, ok := m.lookup(key)
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(it.data, dest)
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	it := item{data: data}
	if ttl > 0 {
		it.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.items[key] = it
	m.mu.Unlock()
	return nil
}

func (m *Memory) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

func (m *Memory) Has(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lookup(key)
	return ok, nil
}
