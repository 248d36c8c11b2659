package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist remembers revoked token ids until the tokens would have expired
// anyway.
type Denylist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const revokedKeyPrefix = "revoked_token:"

type RedisDenylist struct {
	client *redis.Client
}

func NewRedisDenylist(client *redis.Client) *RedisDenylist {
	return &RedisDenylist{client: client}
}

func (d *RedisDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, revokedKeyPrefix+jti, 1, ttl).Err()
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := d.client.Get(ctx, revokedKeyPrefix+jti).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MemoryDenylist is the single-process fallback used when Redis is not
// configured.
type MemoryDenylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{entries: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDenylist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for k, exp := range d.entries {
		if !exp.After(now) {
			delete(d.entries, k)
		}
	}
	d.entries[jti] = now.Add(ttl)
	return nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.entries[jti]
	return ok && exp.After(d.now()), nil
}
