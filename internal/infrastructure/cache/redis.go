package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bimakw/lighter-tracker/internal/config"
	"github.com/bimakw/lighter-tracker/internal/domain/repositories"
)

// Ensure RedisStore implements KVStore
var (
	_ repositories.KVStore   = (*RedisStore)(nil)
	_ repositories.KeyLister = (*RedisStore)(nil)
)

// RedisStore keeps balance history values in Redis without expiry
type RedisStore struct {
	client        *redis.Client
	logger        *zap.Logger
	maxValueBytes int
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(cfg config.RedisConfig, maxValueBytes int, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
	)

	return NewRedisStoreFromClient(client, maxValueBytes, logger), nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client, maxValueBytes int, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client:        client,
		logger:        logger,
		maxValueBytes: maxValueBytes,
	}
}

// Close closes the Redis connection
func (c *RedisStore) Close() error {
	return c.client.Close()
}

// Get retrieves a raw value
func (c *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repositories.ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to get from redis: %w", err)
	}
	return val, nil
}

// Set stores a raw value with no TTL
func (c *RedisStore) Set(ctx context.Context, key, value string) error {
	if c.maxValueBytes > 0 && len(value) > c.maxValueBytes {
		return fmt.Errorf("%w: %d bytes for %s", repositories.ErrQuotaExceeded, len(value), key)
	}

	if err := c.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

// Delete removes a value
func (c *RedisStore) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// globEscaper quotes the MATCH metacharacters so a prefix matches literally
var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

// Keys lists the keys starting with prefix
func (c *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := globEscaper.Replace(prefix) + "*"
	var keys []string
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("Failed to scan keys",
			zap.String("pattern", pattern),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to scan redis keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// HealthCheck checks if Redis is reachable
func (c *RedisStore) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
