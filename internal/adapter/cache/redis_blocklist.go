package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mishel123hanna/sign-language/internal/revocation"
)

const defaultBlocklistPrefix = "blocklist:"

// RedisBlocklist implements revocation.Store on top of Redis key expiry.
type RedisBlocklist struct {
	client  redis.UniversalClient
	prefix  string
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
}

var _ revocation.Store = (*RedisBlocklist)(nil)

// RedisBlocklistOption customises the blocklist.
type RedisBlocklistOption func(*RedisBlocklist)

// WithKeyPrefix namespaces the keys written by the blocklist.
func WithKeyPrefix(prefix string) RedisBlocklistOption {
	return func(b *RedisBlocklist) { b.prefix = prefix }
}

// WithOperationTimeout bounds each round trip.
func WithOperationTimeout(d time.Duration) RedisBlocklistOption {
	return func(b *RedisBlocklist) { b.timeout = d }
}

// NewRedisBlocklist constructs a Redis-backed revocation store.
func NewRedisBlocklist(client redis.UniversalClient, ttl time.Duration, opts ...RedisBlocklistOption) *RedisBlocklist {
	if ttl <= 0 {
		ttl = revocation.DefaultTTL
	}
	b := &RedisBlocklist{client: client, prefix: defaultBlocklistPrefix, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Revoke stores the id with the default TTL.
func (b *RedisBlocklist) Revoke(ctx context.Context, tokenID string) error {
	return b.set(ctx, tokenID, b.ttl)
}

// RevokeUntil stores the id until the given instant.
func (b *RedisBlocklist) RevokeUntil(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(b.now())
	if tokenID != "" && ttl <= 0 {
		return nil
	}
	// Redis expiry has millisecond resolution.
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	return b.set(ctx, tokenID, ttl)
}

// IsRevoked checks for the key. Redis drops it once the TTL elapses.
func (b *RedisBlocklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	n, err := b.client.Exists(ctx, b.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("%w: lookup: %v", revocation.ErrUnavailable, err)
	}
	return n > 0, nil
}

func (b *RedisBlocklist) set(ctx context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" {
		return revocation.ErrEmptyTokenID
	}
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	if err := b.client.Set(ctx, b.prefix+tokenID, "", ttl).Err(); err != nil {
		return fmt.Errorf("%w: persist: %v", revocation.ErrUnavailable, err)
	}
	return nil
}

func (b *RedisBlocklist) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, b.timeout)
}
