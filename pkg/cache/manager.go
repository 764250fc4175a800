package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStaleRetention is how long an expired entry with a validator is
// kept for revalidation.
const DefaultStaleRetention = 7 * 24 * time.Hour

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager handles caching operations with Redis backend.
type Manager struct {
	redis          *redis.Client
	staleRetention time.Duration
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithStaleRetention overrides how long revalidatable entries outlive their
// freshness. Zero drops entries as soon as they expire.
func WithStaleRetention(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d >= 0 {
			m.staleRetention = d
		}
	}
}

// NewManager creates a new cache manager with Redis backend.
func NewManager(redisClient *redis.Client, opts ...ManagerOption) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	m := &Manager{
		redis:          redisClient,
		staleRetention: DefaultStaleRetention,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get retrieves a cache entry by key. The entry may be stale; callers check
// IsExpired and revalidate. Returns ErrCacheMiss if the key doesn't exist.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		_ = m.Delete(ctx, key)
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	CacheHits.WithLabelValues("redis").Inc()
	if entry.IsExpired() {
		CacheStale.Inc()
	}

	return &entry, nil
}

// Set stores an entry. Redis expiry is the entry's freshness plus the stale
// retention when the entry has a validator; otherwise freshness alone.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	retention := entry.TTL()
	if entry.HasValidator() {
		retention += m.staleRetention
	}
	if retention <= 0 {
		// Expired and not revalidatable, don't cache
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, retention).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.WithLabelValues("redis").Add(float64(len(data)))

	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// UpdateTTL extends the freshness of an existing entry.
// This is used after a 304 Not Modified response.
func (m *Manager) UpdateTTL(ctx context.Context, key Key, newExpires time.Time) error {
	entry, err := m.Get(ctx, key)
	if err != nil {
		return err
	}

	entry.Expires = newExpires

	return m.Set(ctx, key, entry)
}
