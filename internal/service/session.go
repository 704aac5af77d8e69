package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore records the single refresh token currently valid for each
// user.  It is the authority on whether a cryptographically valid refresh
// token is still live: deleting the entry revokes it immediately.
type SessionStore interface {
	// Put replaces any existing entry for userID and resets its TTL.
	Put(ctx context.Context, userID, token string) error
	// Get returns the stored token; ok is false when there is none.
	Get(ctx context.Context, userID string) (token string, ok bool, err error)
	// Delete removes the entry.  Deleting a missing entry is not an error.
	Delete(ctx context.Context, userID string) error
}

// RedisSessionStore keeps sessions under refresh_token:<userID>.
type RedisSessionStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisSessionStore creates a Redis-backed session store whose entries
// live for ttl.
func NewRedisSessionStore(client redis.Cmdable, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, prefix: "refresh_token:", ttl: ttl}
}

func (r *RedisSessionStore) key(userID string) string {
	return r.prefix + userID
}

func (r *RedisSessionStore) Put(ctx context.Context, userID, token string) error {
	if userID == "" || token == "" {
		return errors.New("session: missing user id or token")
	}
	if err := r.client.Set(ctx, r.key(userID), token, r.ttl).Err(); err != nil {
		return fmt.Errorf("session: put: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) Get(ctx context.Context, userID string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session: get: %w", err)
	}
	return val, true, nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}
