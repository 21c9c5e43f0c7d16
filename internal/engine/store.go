package engine

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Store.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Store is the L2 key-value backend behind Cache.
// Implementations must be safe for concurrent use and honour per-key expiration.
type Store interface {
	// Get returns the stored bytes and their remaining lifetime, or ErrCacheMiss.
	// A zero remaining means the store cannot tell.
	Get(ctx context.Context, key string) (data []byte, remaining time.Duration, err error)
	// Set stores data under key for ttl, overwriting any previous value.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Close() error
}

// expiredPurger is implemented by stores without native expiry; Cache calls it from its cleanup loop.
type expiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}
