// Package ratelimit считает запросы в фиксированном окне по ключу
// "идентификатор вызывающего + маршрут".
//
// Redis-бэкенд общий для всех экземпляров API, memory-бэкенд живёт в одном
// процессе и обнуляется при перезапуске.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Бэкенды счётчика.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Limiter решает, пропускать ли очередной запрос по ключу.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

func windowKey(key string, window time.Duration, now time.Time) string {
	return "rl:" + key + ":" + strconv.FormatInt(now.Truncate(window).Unix(), 10)
}

// RedisLimiter счётчик на INCR + EXPIRE.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedis создаёт RedisLimiter на limit запросов за window.
func NewRedis(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window, now: time.Now}
}

// Allow увеличивает счётчик окна и сравнивает его с лимитом.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	const op = "ratelimit.RedisLimiter.Allow"
	k := windowKey(key, l.window, l.now())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return incr.Val() <= int64(l.limit), nil
}

// MemoryLimiter счётчик в памяти процесса.
type MemoryLimiter struct {
	store  *gocache.Cache
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewMemory создаёт MemoryLimiter на limit запросов за window.
func NewMemory(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		store:  gocache.New(window, 2*window),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow увеличивает счётчик окна и сравнивает его с лимитом.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	k := windowKey(key, l.window, l.now())
	if err := l.store.Add(k, 1, l.window); err == nil {
		return l.limit >= 1, nil
	}
	n, err := l.store.IncrementInt(k, 1)
	if err != nil {
		// ключ успел истечь между Add и IncrementInt
		l.store.Set(k, 1, l.window)
		return l.limit >= 1, nil
	}
	return n <= l.limit, nil
}
