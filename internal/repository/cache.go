package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/config"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/logging"
	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/models"
)

const (
	stockKey        = "taproom:stock"
	defaultCacheTTL = time.Minute
)

// NewRedisClient builds the shared Redis client.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ensure RedisStockCache implements StockCache
var _ StockCache = (*RedisStockCache)(nil)

// RedisStockCache implements StockCache using Redis.
type RedisStockCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.LoggerV2
}

// NewRedisStockCache creates a new Redis-based stock cache.
func NewRedisStockCache(client *redis.Client, ttl time.Duration) *RedisStockCache {
	if ttl == 0 {
		ttl = defaultCacheTTL
	}

	return &RedisStockCache{
		client: client,
		ttl:    ttl,
		logger: logging.NewLoggerV2("stock-cache"),
	}
}

// GetStock retrieves the stock list from cache.
func (c *RedisStockCache) GetStock(ctx context.Context) ([]models.Beer, bool, error) {
	data, err := c.client.Get(ctx, stockKey).Bytes()
	if err == redis.Nil {
		c.logger.Debug("Cache miss", logging.Fields{"key": stockKey})
		return nil, false, nil
	}
	if err != nil {
		c.logger.Error("Cache get error", logging.Fields{"error": err.Error()})
		return nil, false, err
	}

	var beers []models.Beer
	if err := json.Unmarshal(data, &beers); err != nil {
		return nil, false, err
	}

	c.logger.Debug("Cache hit", logging.Fields{"key": stockKey, "count": len(beers)})
	return beers, true, nil
}

// SetStock stores the stock list in cache.
func (c *RedisStockCache) SetStock(ctx context.Context, beers []models.Beer) error {
	data, err := json.Marshal(beers)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, stockKey, data, c.ttl).Err(); err != nil {
		c.logger.Error("Cache set error", logging.Fields{"error": err.Error()})
		return err
	}

	c.logger.Debug("Stock cached", logging.Fields{
		"count": len(beers),
		"ttl":   c.ttl.String(),
	})
	return nil
}

// InvalidateStock removes the cached stock list.
func (c *RedisStockCache) InvalidateStock(ctx context.Context) error {
	if err := c.client.Del(ctx, stockKey).Err(); err != nil {
		c.logger.Error("Cache delete error", logging.Fields{"error": err.Error()})
		return err
	}

	c.logger.Debug("Stock cache invalidated")
	return nil
}
