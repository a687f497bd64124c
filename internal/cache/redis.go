package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BerylCAtieno/loan-intelligence-api/internal/models"
)

const fieldKeyPrefix = "loan-intel:fields:"

// RedisFieldCache shares extracted fields between server and CLI processes.
type RedisFieldCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ FieldCache = (*RedisFieldCache)(nil)

func NewRedisFieldCache(ctx context.Context, addr string, ttl time.Duration) (*RedisFieldCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisFieldCache{client: client, ttl: ttl}, nil
}

func (c *RedisFieldCache) Get(ctx context.Context, documentID string) ([]models.ExtractedField, bool, error) {
	val, err := c.client.Get(ctx, fieldKeyPrefix+documentID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", documentID, err)
	}

	var fields []models.ExtractedField
	if err := json.Unmarshal(val, &fields); err != nil {
		return nil, false, fmt.Errorf("decode cached fields for %s: %w", documentID, err)
	}
	return fields, true, nil
}

func (c *RedisFieldCache) Set(ctx context.Context, documentID string, fields []models.ExtractedField) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode fields for %s: %w", documentID, err)
	}
	if err := c.client.Set(ctx, fieldKeyPrefix+documentID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", documentID, err)
	}
	return nil
}

func (c *RedisFieldCache) Close() error {
	return c.client.Close()
}
