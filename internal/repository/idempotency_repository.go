package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/microcourses/lms-api/internal/models"
	appErrors "github.com/microcourses/lms-api/pkg/errors"
)

const idempotencyKeyPrefix = "idempotency:"

// RedisIdempotencyRepository stores recorded responses in Redis so
// retried requests replay consistently across service replicas. Entries
// expire through Redis' native TTL.
type RedisIdempotencyRepository struct {
	client *redis.Client
}

// NewRedisIdempotencyRepository constructs the repository.
func NewRedisIdempotencyRepository(client *redis.Client) *RedisIdempotencyRepository {
	return &RedisIdempotencyRepository{client: client}
}

// Get retrieves the recorded response for a key.
func (r *RedisIdempotencyRepository) Get(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	raw, err := r.client.Get(ctx, idempotencyKeyPrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get idempotency %s: %w", key, err)
	}

	var record models.IdempotencyRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("unmarshal idempotency record %s: %w", key, err)
	}
	return &record, nil
}

// Set stores the recorded response with the given retention window.
func (r *RedisIdempotencyRepository) Set(ctx context.Context, record *models.IdempotencyRecord, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal idempotency record %s: %w", record.Key, err)
	}
	if err := r.client.Set(ctx, idempotencyKeyPrefix+record.Key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set idempotency %s: %w", record.Key, err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (r *RedisIdempotencyRepository) Close() error {
	return r.client.Close()
}
