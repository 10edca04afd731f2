package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenRepository keeps the denylist of revoked token ids until they would
// have expired anyway. Without a Redis client it falls back to process memory.
type TokenRepository struct {
	client *redis.Client
	prefix string

	mu    sync.Mutex
	local map[string]time.Time
	now   func() time.Time
}

// NewTokenRepository constructs the denylist store.
func NewTokenRepository(client *redis.Client, prefix string) *TokenRepository {
	if prefix == "" {
		prefix = "revoked:"
	}
	return &TokenRepository{client: client, prefix: prefix, local: make(map[string]time.Time), now: time.Now}
}

// Revoke denylists the token id for ttl.
func (r *TokenRepository) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if r.client != nil {
		if err := r.client.Set(ctx, r.prefix+tokenID, 1, ttl).Err(); err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for id, exp := range r.local {
		if !exp.After(now) {
			delete(r.local, id)
		}
	}
	r.local[tokenID] = now.Add(ttl)
	return nil
}

// IsRevoked reports whether the token id is on the denylist.
func (r *TokenRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if r.client != nil {
		err := r.client.Get(ctx, r.prefix+tokenID).Err()
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("check revoked token: %w", err)
		}
		return true, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.local[tokenID]
	return ok && exp.After(r.now()), nil
}
