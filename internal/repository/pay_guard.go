package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/logging"
)

const payLockPrefix = "taproom:pay_lock:"

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Ensure RedisPayGuard implements PayGuard
var _ PayGuard = (*RedisPayGuard)(nil)

// RedisPayGuard implements PayGuard with SET NX locks, so the guard holds
// across replicas.
type RedisPayGuard struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.LoggerV2
}

// NewRedisPayGuard creates a Redis-backed pay guard. ttl bounds how long a
// crashed submission can block retries.
func NewRedisPayGuard(client *redis.Client, ttl time.Duration) *RedisPayGuard {
	return &RedisPayGuard{
		client: client,
		ttl:    ttl,
		logger: logging.NewLoggerV2("pay-guard"),
	}
}

func (g *RedisPayGuard) Acquire(ctx context.Context, orderID string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, payLockPrefix+orderID, token, g.ttl).Result()
	if err != nil {
		g.logger.Error("Pay lock acquire failed", logging.Fields{
			"order_id": orderID,
			"error":    err.Error(),
		})
		return "", false, err
	}
	if !ok {
		g.logger.Warn("Pay already in flight", logging.Fields{"order_id": orderID})
		return "", false, nil
	}
	return token, true, nil
}

func (g *RedisPayGuard) Release(ctx context.Context, orderID, token string) error {
	return releaseScript.Run(ctx, g.client, []string{payLockPrefix + orderID}, token).Err()
}

// Ensure MemoryPayGuard implements PayGuard
var _ PayGuard = (*MemoryPayGuard)(nil)

// MemoryPayGuard is a single-process PayGuard used when Redis is disabled.
type MemoryPayGuard struct {
	mu    sync.Mutex
	ttl   time.Duration
	locks map[string]payLock
	now   func() time.Time
}

type payLock struct {
	token   string
	expires time.Time
}

// NewMemoryPayGuard creates an in-process pay guard.
func NewMemoryPayGuard(ttl time.Duration) *MemoryPayGuard {
	return &MemoryPayGuard{
		ttl:   ttl,
		locks: make(map[string]payLock),
		now:   time.Now,
	}
}

func (g *MemoryPayGuard) Acquire(ctx context.Context, orderID string) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if held, ok := g.locks[orderID]; ok && now.Before(held.expires) {
		return "", false, nil
	}

	token := uuid.NewString()
	g.locks[orderID] = payLock{token: token, expires: now.Add(g.ttl)}
	return token, true, nil
}

func (g *MemoryPayGuard) Release(ctx context.Context, orderID, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if held, ok := g.locks[orderID]; ok && held.token == token {
		delete(g.locks, orderID)
	}
	return nil
}
