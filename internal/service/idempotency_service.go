package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/microcourses/lms-api/internal/models"
	appErrors "github.com/microcourses/lms-api/pkg/errors"
)

// IdempotencyRepository abstracts the store for recorded POST responses.
// Implementations exist for Redis and process memory; the workflow layer
// never sees which one is active.
type IdempotencyRepository interface {
	Get(ctx context.Context, key string) (*models.IdempotencyRecord, error)
	Set(ctx context.Context, record *models.IdempotencyRecord, ttl time.Duration) error
	Close() error
}

// IdempotencyService guards side-effecting requests: the first response
// produced for a client key is recorded and replayed verbatim for the
// retention window. It does not compare payloads across retries.
type IdempotencyService struct {
	repo    IdempotencyRepository
	ttl     time.Duration
	logger  *zap.Logger
	metrics *MetricsService
}

// NewIdempotencyService constructs the service.
func NewIdempotencyService(repo IdempotencyRepository, ttl time.Duration, metrics *MetricsService, logger *zap.Logger) *IdempotencyService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdempotencyService{repo: repo, ttl: ttl, logger: logger, metrics: metrics}
}

// Check returns the recorded response for a key, or nil when the key is
// unseen or expired. Store failures are logged and treated as a miss so
// a degraded store never blocks live traffic.
func (s *IdempotencyService) Check(ctx context.Context, key string) *models.IdempotencyRecord {
	record, err := s.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("idempotency check failed", zap.String("key", key), zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordIdempotency(false)
		}
		return nil
	}
	if s.metrics != nil {
		s.metrics.RecordIdempotency(true)
	}
	return record
}

// Record stores the response produced for a key.
func (s *IdempotencyService) Record(ctx context.Context, key string, status int, body []byte) {
	record := &models.IdempotencyRecord{
		Key:      key,
		Status:   status,
		Body:     body,
		StoredAt: time.Now().UTC(),
	}
	if err := s.repo.Set(ctx, record, s.ttl); err != nil {
		s.logger.Warn("idempotency record failed", zap.String("key", key), zap.Error(err))
	}
}

// Close releases the underlying store.
func (s *IdempotencyService) Close() error {
	return s.repo.Close()
}
