// Package tokencache persists the GoCardless refresh token between runs.
//
// A Cache encodes tokens as JSON, optionally seals them, and hands the bytes
// to a Backend (a local file or Redis).
package tokencache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ExpirySkew is how long before refresh_expires_at a cached token stops being used.
const ExpirySkew = 60 * time.Second

// ErrMiss indicates there is no usable cached token.
var ErrMiss = errors.New("token cache miss")

// Token is a cached refresh token.
type Token struct {
	Refresh          string `json:"refresh"`
	RefreshExpiresAt int64  `json:"refresh_expires_at"` // unix seconds, 0 = no expiry
}

// Valid reports whether the token can still be used at now.
func (t *Token) Valid(now time.Time) bool {
	if t == nil || t.Refresh == "" {
		return false
	}
	if t.RefreshExpiresAt == 0 {
		return true
	}
	return now.Before(time.Unix(t.RefreshExpiresAt, 0).Add(-ExpirySkew))
}

// ExpiresAt returns the expiry as a time, or the zero time when the token never expires.
func (t *Token) ExpiresAt() time.Time {
	if t.RefreshExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(t.RefreshExpiresAt, 0)
}

// Backend stores the encoded token.
type Backend interface {
	// Read returns ErrMiss when nothing is stored.
	Read(ctx context.Context) ([]byte, error)
	// Write stores data. A non-zero expiresAt lets the backend drop it after that time.
	Write(ctx context.Context, data []byte, expiresAt time.Time) error
}

// Cache reads and writes tokens through a Backend.
type Cache struct {
	backend Backend
	sealer  *Sealer
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithSealer encrypts tokens at rest.
func WithSealer(s *Sealer) Option {
	return func(c *Cache) {
		c.sealer = s
	}
}

// WithClock overrides time.Now (for testing).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a Cache over backend.
func New(backend Backend, opts ...Option) *Cache {
	c := &Cache{backend: backend, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load returns the cached token if it is still valid. A missing, unreadable,
// undecryptable or expired entry yields ErrMiss wrapped with the reason.
func (c *Cache) Load(ctx context.Context) (*Token, error) {
	data, err := c.backend.Read(ctx)
	if err != nil {
		if errors.Is(err, ErrMiss) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMiss, err)
	}

	if c.sealer != nil {
		data, err = c.sealer.Open(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMiss, err)
		}
	}

	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("%w: decoding cached token: %v", ErrMiss, err)
	}
	if !tok.Valid(c.now()) {
		return nil, fmt.Errorf("%w: cached token expired", ErrMiss)
	}
	return &tok, nil
}

// Save stores tok, replacing any previous entry.
func (c *Cache) Save(ctx context.Context, tok *Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if c.sealer != nil {
		data, err = c.sealer.Seal(data)
		if err != nil {
			return err
		}
	}
	if err := c.backend.Write(ctx, data, tok.ExpiresAt()); err != nil {
		return fmt.Errorf("writing token cache: %w", err)
	}
	return nil
}
