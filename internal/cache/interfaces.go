package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by GetValue when the key does not exist or has expired.
var ErrCacheMiss = errors.New("cache miss")

type ICache interface {
	RegisterPlatform(id string) error
	DeleteInactivePlatform() error
	StartIdentityTicker(id string)

	GetRateLimit(userIdentifier string, requestsPerMinute int) (int, error)

	TryAcquireLock(key string, instanceID string, ttlSeconds int) (bool, error)
	RefreshLock(key string, instanceID string, ttlSeconds int) (bool, error)

	SetValue(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// GetValue returns ErrCacheMiss for absent keys.
	GetValue(ctx context.Context, key string) ([]byte, error)
	DeleteValue(ctx context.Context, key string) error

	// StartCooldown opens a cooldown window of ttl on key. When a window is already
	// open it is left untouched and the time remaining in it is returned.
	StartCooldown(ctx context.Context, key string, ttl time.Duration) (time.Duration, error)

	Close() error
}
