package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionKey = "gestao:reports:version"
	bumpChannel     = "gestao:reports:bump"
)

// Cache stores report results in Redis under a shared generation number.
// Every stock or cash write bumps the generation so old entries are never read
// again and simply expire. The last seen generation is memoised in process and
// kept current by the bump channel.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	version atomic.Int64
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current generation, creating it on first use.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	if v := c.version.Load(); v > 0 {
		return v, nil
	}
	// SetNX keeps concurrent first readers from resetting a live generation.
	if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
		return 0, err
	}
	v, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err != nil {
		return 0, fmt.Errorf("read report cache version: %w", err)
	}
	c.remember(v)
	return v, nil
}

// BuildKey prefixes the report key with the current generation.
func (c *Cache) BuildKey(ctx context.Context, key string) (string, error) {
	v, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return "v" + strconv.FormatInt(v, 10) + ":" + key, nil
}

// FetchJSON decodes the cached value into dest, or runs loader and caches its
// result. A cache miss and a loader error leave Redis untouched.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("report cache: loader required")
	}
	if c != nil && c.client != nil {
		payload, err := c.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			return json.Unmarshal(payload, dest)
		case !errors.Is(err, redis.Nil):
			return err
		}
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c != nil && c.client != nil {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return err
		}
	}
	return json.Unmarshal(raw, dest)
}

// Bump starts a new generation and tells the other instances about it.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	v, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return err
	}
	c.remember(v)
	return c.client.Publish(ctx, bumpChannel, strconv.FormatInt(v, 10)).Err()
}

// ListenForInvalidation follows generation bumps made by other instances
// until ctx is done. An empty channel uses the default bump channel.
func (c *Cache) ListenForInvalidation(ctx context.Context, channel string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if channel == "" {
		channel = bumpChannel
	}
	pubsub := c.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				v, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil {
					// Unknown payload: forget the memo and reread on next use.
					c.version.Store(0)
					continue
				}
				c.remember(v)
			}
		}
	}()
	return nil
}

// remember only moves the memoised generation forward.
func (c *Cache) remember(v int64) {
	for {
		cur := c.version.Load()
		if v <= cur || c.version.CompareAndSwap(cur, v) {
			return
		}
	}
}

func cacheKey(parts ...string) string {
	return strings.Join(append([]string{"reports"}, parts...), ":")
}
