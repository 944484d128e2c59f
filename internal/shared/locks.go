package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ProductLockKey builds redis keys for per-product stock critical sections.
func ProductLockKey(productID int64) string {
	return fmt.Sprintf("stock:product:%d:lock", productID)
}

// ProductLocker serialises stock movements of one product across app instances.
type ProductLocker struct {
	locker  *redislock.Client
	ttl     time.Duration
	backoff time.Duration
	retries int
}

// NewProductLocker builds a ProductLocker. A nil client disables locking.
func NewProductLocker(client *redis.Client, ttl time.Duration) *ProductLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	l := &ProductLocker{ttl: ttl, backoff: 50 * time.Millisecond, retries: 20}
	if client != nil {
		l.locker = redislock.New(client)
	}
	return l
}

// Lock obtains the product lock and returns the release func.
func (l *ProductLocker) Lock(ctx context.Context, productID int64) (func(), error) {
	if l == nil || l.locker == nil {
		return func() {}, nil
	}
	lock, err := l.locker.Obtain(ctx, ProductLockKey(productID), l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.backoff), l.retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("product %d: %w", productID, ErrStockBusy)
	}
	if err != nil {
		return nil, err
	}
	return func() {
		// Use a fresh context so a cancelled request still releases the key.
		_ = lock.Release(context.Background())
	}, nil
}
