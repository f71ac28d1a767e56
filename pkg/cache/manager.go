package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// scanBatch is the COUNT hint for SCAN during invalidation.
const scanBatch = 100

// Manager handles caching operations with Redis backend.
type Manager struct {
	redis *redis.Client
}

// NewManager creates a new cache manager with Redis backend.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{
		redis: redisClient,
	}
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist or entry is expired.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	cacheKey := key.String()

	// Load the stored response
	data, err := m.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	// Only successful GET bodies are stored; anything else is corrupt
	if entry.StatusCode != 0 && entry.StatusCode != http.StatusOK {
		_ = m.Delete(ctx, key)
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: status %d", ErrInvalidEntry, entry.StatusCode)
	}

	// Redis normally drops the key first, clock skew can leave it behind
	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("redis").Inc()

	return &entry, nil
}

// Set stores a cache entry with TTL based on the entry's Expires field.
// The entry will be automatically removed from Redis when it expires.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	data, ttl, err := encodeEntry(entry)
	if err != nil || ttl <= 0 {
		return err
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues("redis").Add(float64(len(data)))

	return nil
}

// Renew extends the lifetime of an entry after a 304 Not Modified. The
// entry is only rewritten while its key still exists, so a write that
// invalidated the path between the request and the 304 is not undone.
// Returns ErrCacheMiss in that case.
func (m *Manager) Renew(ctx context.Context, key CacheKey, entry *CacheEntry, expires time.Time) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	renewed := *entry
	renewed.Expires = expires
	renewed.CachedAt = time.Now()

	data, ttl, err := encodeEntry(&renewed)
	if err != nil || ttl <= 0 {
		return err
	}

	// SET XX: never resurrect an invalidated key
	stored, err := m.redis.SetXX(ctx, key.String(), data, ttl).Result()
	if err != nil {
		CacheErrors.WithLabelValues("renew").Inc()
		return fmt.Errorf("redis set xx: %w", err)
	}
	if !stored {
		return ErrCacheMiss
	}

	entry.Expires = expires
	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// encodeEntry marshals entry and returns its remaining lifetime. A zero
// TTL means the entry is already expired and must not be stored.
func encodeEntry(entry *CacheEntry) ([]byte, time.Duration, error) {
	if entry == nil {
		return nil, 0, fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil, 0, nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return nil, 0, fmt.Errorf("marshal cache entry: %w", err)
	}
	return data, ttl, nil
}

// InvalidatePath removes every cached variant of path, for all principals
// and query strings. Returns the number of removed entries.
func (m *Manager) InvalidatePath(ctx context.Context, path string) (int, error) {
	var keys []string
	iter := m.redis.Scan(ctx, 0, pathPattern(path), scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("invalidate").Inc()
		return 0, fmt.Errorf("redis scan: %w", err)
	}

	if len(keys) == 0 {
		return 0, nil
	}

	removed, err := m.redis.Del(ctx, keys...).Result()
	if err != nil {
		CacheErrors.WithLabelValues("invalidate").Inc()
		return 0, fmt.Errorf("redis del: %w", err)
	}

	return int(removed), nil
}
