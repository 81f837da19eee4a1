package management

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	generationKey     = "agency:summary:generation"
	invalidateChannel = "agency.summary.invalidate"
)

// Cache keeps computed summaries in Redis. Entries are keyed by a generation
// counter so Invalidate drops every range at once without scanning keys.
// A nil Cache or client disables caching.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool { return c != nil && c.client != nil }

func (c *Cache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		// SETNX keeps a concurrent Invalidate from being overwritten.
		if err := c.client.SetNX(ctx, generationKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, generationKey).Int64()
	case err != nil:
		return 0, err
	}
	return gen, nil
}

func (c *Cache) key(ctx context.Context, from, to time.Time) (string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("agency:summary:%d:%s:%s", gen, from.Format(time.DateOnly), to.Format(time.DateOnly)), nil
}

// Lookup returns the cached summary of [from, to]. The boolean reports a hit.
func (c *Cache) Lookup(ctx context.Context, from, to time.Time) (Summary, bool, error) {
	if !c.enabled() {
		return Summary{}, false, nil
	}
	key, err := c.key(ctx, from, to)
	if err != nil {
		return Summary{}, false, err
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Summary{}, false, nil
	}
	if err != nil {
		return Summary{}, false, err
	}
	var out Summary
	if err := json.Unmarshal(raw, &out); err != nil {
		return Summary{}, false, fmt.Errorf("decode cached summary: %w", err)
	}
	return out, true, nil
}

// Put stores s under the current generation.
func (c *Cache) Put(ctx context.Context, s Summary) error {
	if !c.enabled() {
		return nil
	}
	key, err := c.key(ctx, s.From, s.To)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Invalidate moves to a new generation and announces it on the pub/sub channel.
func (c *Cache) Invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	gen, err := c.client.Incr(ctx, generationKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, invalidateChannel, strconv.FormatInt(gen, 10)).Err()
}
