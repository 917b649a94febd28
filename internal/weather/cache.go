package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// Cached serves readings from Redis and falls back to the wrapped lookup on a miss.
//
// Redis problems never surface to callers; they degrade to an uncached lookup. Nil readings
// are not cached so a transient upstream failure does not stick.
type Cached struct {
	next       Lookup
	client     *backend.Client
	ownsClient bool
	prefix     string
	ttl        time.Duration
	logger     *slog.Logger
}

type CacheOption func(*Cached)

// WithTTL sets how long readings stay cached.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cached) {
		c.ttl = ttl
	}
}

// WithPrefix sets the key prefix for cached readings.
func WithPrefix(prefix string) CacheOption {
	return func(c *Cached) {
		c.prefix = prefix
	}
}

// WithCacheLogger sets the logger used for Redis errors.
func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *Cached) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCached wraps next with a Redis cache backed by an existing client.
// The caller keeps ownership of client.
func NewCached(next Lookup, client *backend.Client, opts ...CacheOption) *Cached {
	c := &Cached{
		next:   next,
		client: client,
		prefix: "packer:weather:",
		ttl:    10 * time.Minute,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DialCached is NewCached with a client it creates and closes itself.
func DialCached(next Lookup, addr string, opts ...CacheOption) *Cached {
	c := NewCached(next, backend.NewClient(&backend.Options{Addr: addr}), opts...)
	c.ownsClient = true
	return c
}

func (c *Cached) key(latitude, longitude float64) string {
	return fmt.Sprintf("%s%.2f:%.2f", c.prefix, latitude, longitude)
}

// Get returns a cached reading when one exists for the rounded coordinates.
func (c *Cached) Get(ctx context.Context, latitude, longitude float64) *Reading {
	key := c.key(latitude, longitude)

	b, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var r Reading
		if err := json.Unmarshal(b, &r); err == nil {
			r.Latitude = latitude
			r.Longitude = longitude
			return &r
		}
		c.logger.Warn("weather cache entry unreadable", "key", key)
	case !errors.Is(err, backend.Nil):
		c.logger.Warn("weather cache read failed", "key", key, "error", err)
	}

	r := c.next.Get(ctx, latitude, longitude)
	if r == nil {
		return nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return r
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("weather cache write failed", "key", key, "error", err)
	}
	return r
}

// Close closes the wrapped lookup and, when owned, the Redis client.
func (c *Cached) Close() error {
	err := c.next.Close()
	if c.ownsClient {
		if cerr := c.client.Close(); cerr != nil && !errors.Is(cerr, backend.ErrClosed) {
			err = errors.Join(err, cerr)
		}
	}
	return err
}
