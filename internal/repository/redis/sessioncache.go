package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionCachePrefix = "session:"
	sessionCacheTTL    = 24 * time.Hour
)

// SessionCache fronts the chat row for session-token lookups. Tokens are
// immutable for a chat's lifetime, so a long TTL is safe; the chat row stays
// authoritative.
type SessionCache struct {
	client *Client
}

// NewSessionCache creates a new session token cache
func NewSessionCache(client *Client) *SessionCache {
	return &SessionCache{client: client}
}

// Get retrieves the cached session token for a chat. A miss returns "".
func (c *SessionCache) Get(ctx context.Context, chatID uuid.UUID) (string, error) {
	key := fmt.Sprintf("%s%s", sessionCachePrefix, chatID.String())

	token, err := c.client.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil // Cache miss
	}
	if err != nil {
		return "", fmt.Errorf("failed to get session token: %w", err)
	}
	return token, nil
}

// Set caches the session token for a chat.
func (c *SessionCache) Set(ctx context.Context, chatID uuid.UUID, token string) error {
	key := fmt.Sprintf("%s%s", sessionCachePrefix, chatID.String())
	return c.client.rdb.Set(ctx, key, token, sessionCacheTTL).Err()
}

// Invalidate removes the cached token, used when a chat is deleted.
func (c *SessionCache) Invalidate(ctx context.Context, chatID uuid.UUID) error {
	key := fmt.Sprintf("%s%s", sessionCachePrefix, chatID.String())
	return c.client.rdb.Del(ctx, key).Err()
}
