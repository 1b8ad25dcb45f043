package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/SandLosT/Attendant/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Cache remembers keys for a bounded time.
type Cache interface {
	// Seen marks key for ttl and reports whether it was already marked.
	Seen(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Forget unmarks key so the next Seen reports it as new.
	Forget(ctx context.Context, key string) error
}

// MemoryCache is a process-local Cache. Expired entries linger until Sweep.
type MemoryCache struct {
	mu      sync.Mutex
	expires map[string]time.Time
	clock   func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{expires: map[string]time.Time{}, clock: time.Now}
}

func (m *MemoryCache) Seen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock()
	if exp, ok := m.expires[key]; ok && now.Before(exp) {
		return true, nil
	}
	m.expires[key] = now.Add(ttl)
	return false, nil
}

func (m *MemoryCache) Forget(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.expires, key)
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (m *MemoryCache) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock()
	n := 0
	for k, exp := range m.expires {
		if !now.Before(exp) {
			delete(m.expires, k)
			n++
		}
	}
	return n
}

// Len is the number of tracked entries, expired or not.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.expires)
}

// RedisCache shares seen-markers across instances. Redis expires keys itself.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisCache(rdb *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "attendant:dedup:"
	}
	return &RedisCache{rdb: rdb, prefix: prefix}
}

func (r *RedisCache) Seen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	claimed, err := utils.ClaimOnce(ctx, r.rdb, r.prefix+key, ttl)
	if err != nil {
		return false, err
	}
	return !claimed, nil
}

func (r *RedisCache) Forget(ctx context.Context, key string) error {
	_, err := utils.Forget(ctx, r.rdb, r.prefix+key)
	return err
}
