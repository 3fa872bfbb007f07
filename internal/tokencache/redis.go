package tokencache

import (
	"context"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key holding the refresh token.
const DefaultRedisKey = "bankbal:gcbad:refresh"

// RedisBackend stores the token under a single Redis key.
type RedisBackend struct {
	client *backend.Client
	key    string
	now    func() time.Time
}

// RedisOption configures a RedisBackend.
type RedisOption func(*RedisBackend)

// WithKey overrides DefaultRedisKey.
func WithKey(key string) RedisOption {
	return func(r *RedisBackend) {
		r.key = key
	}
}

// NewRedisBackend connects using a redis:// or rediss:// URL.
func NewRedisBackend(url string, opts ...RedisOption) (*RedisBackend, error) {
	o, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return NewRedisBackendFromClient(backend.NewClient(o), opts...), nil
}

// NewRedisBackendFromClient wraps an existing client.
func NewRedisBackendFromClient(client *backend.Client, opts ...RedisOption) *RedisBackend {
	r := &RedisBackend{client: client, key: DefaultRedisKey, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisBackend) Read(ctx context.Context) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("reading from redis: %w", err)
	}
	return val, nil
}

// Write sets the key with a TTL that ends at expiresAt. An expiry already in
// the past deletes the key instead.
func (r *RedisBackend) Write(ctx context.Context, data []byte, expiresAt time.Time) error {
	var ttl time.Duration
	if !expiresAt.IsZero() {
		ttl = expiresAt.Sub(r.now())
		if ttl <= 0 {
			return r.client.Del(ctx, r.key).Err()
		}
	}
	if err := r.client.Set(ctx, r.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("writing to redis: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
