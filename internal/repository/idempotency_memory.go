package repository

import (
	"context"
	"sync"
	"time"

	"github.com/microcourses/lms-api/internal/models"
	appErrors "github.com/microcourses/lms-api/pkg/errors"
)

// MemoryIdempotencyRepository is a process-local store for recorded
// responses, used when Redis is not configured. Expired entries are
// filtered on read and reclaimed by a background sweep so abandoned keys
// do not accumulate.
type MemoryIdempotencyRepository struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	stop     chan struct{}
	stopOnce sync.Once
}

type memoryEntry struct {
	record    models.IdempotencyRecord
	expiresAt time.Time
}

// NewMemoryIdempotencyRepository constructs the store and starts its
// sweeper. Callers must Close it to stop the sweep goroutine.
func NewMemoryIdempotencyRepository(sweepInterval time.Duration) *MemoryIdempotencyRepository {
	if sweepInterval <= 0 {
		sweepInterval = 10 * time.Minute
	}
	r := &MemoryIdempotencyRepository{
		entries: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
	}
	go r.sweep(sweepInterval)
	return r
}

// Get retrieves the recorded response for a key. Expired entries are
// treated as unseen.
func (r *MemoryIdempotencyRepository) Get(_ context.Context, key string) (*models.IdempotencyRecord, error) {
	r.mu.RLock()
	entry, ok := r.entries[key]
	r.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, appErrors.ErrCacheMiss
	}

	record := entry.record
	return &record, nil
}

// Set stores the recorded response with the given retention window.
func (r *MemoryIdempotencyRepository) Set(_ context.Context, record *models.IdempotencyRecord, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[record.Key] = memoryEntry{record: *record, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Close stops the background sweeper.
func (r *MemoryIdempotencyRepository) Close() error {
	r.stopOnce.Do(func() { close(r.stop) })
	return nil
}

func (r *MemoryIdempotencyRepository) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			r.mu.Lock()
			for key, entry := range r.entries {
				if now.After(entry.expiresAt) {
					delete(r.entries, key)
				}
			}
			r.mu.Unlock()
		}
	}
}
