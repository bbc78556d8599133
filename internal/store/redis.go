package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "stocksignal/internal/errors"
	"stocksignal/internal/models"
)

// RedisCache implements ReportCache using Redis. Only the newest report per
// ticker is kept; keys expire after the configured TTL.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisCache connects to Redis and pings it.
func NewRedisCache(ctx context.Context, addr string, db int, prefix string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		PoolSize:     4,
		MinIdleConns: 1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return newRedisCache(client, prefix, ttl), nil
}

func newRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "stocksignal:report:"
	}
	if ttl <= 0 {
		ttl = DefaultCacheValidity
	}
	return &RedisCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping checks the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// GetCachedAnalysis returns the stored report when younger than validFor.
func (c *RedisCache) GetCachedAnalysis(ctx context.Context, ticker string, validFor time.Duration) (*models.Report, error) {
	data, err := c.client.Get(ctx, c.prefix+key(ticker)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var report models.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode cached report: %w", err)
	}
	if validFor <= 0 {
		validFor = DefaultCacheValidity
	}
	if c.now().Sub(report.CreatedAt) > validFor {
		return nil, apperrors.ErrCacheMiss
	}
	report.FromCache = true
	return &report, nil
}

// SaveAnalysis stores the report under its ticker.
func (c *RedisCache) SaveAnalysis(ctx context.Context, report *models.Report) error {
	if report == nil {
		return fmt.Errorf("report is required")
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = c.now()
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return c.client.Set(ctx, c.prefix+key(report.Ticker), data, c.ttl).Err()
}
