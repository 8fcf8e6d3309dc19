package service

import (
	"context"
	"fmt"

	"github.com/agrilok/crop-assist/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TokenCache fronts session-token lookups. The chat row stays authoritative;
// cache failures degrade to a database read, never to an error.
type TokenCache interface {
	Get(ctx context.Context, chatID uuid.UUID) (string, error)
	Set(ctx context.Context, chatID uuid.UUID, token string) error
	Invalidate(ctx context.Context, chatID uuid.UUID) error
}

// SessionRegistry resolves the worker session token for a chat. A token is
// minted exactly once when the chat is created and never rotated, so every
// inference call for the chat reaches the worker under the same session.
type SessionRegistry struct {
	chats domain.ChatRepository
	cache TokenCache
}

// NewSessionRegistry creates a new session registry
func NewSessionRegistry(chats domain.ChatRepository, cache TokenCache) *SessionRegistry {
	return &SessionRegistry{chats: chats, cache: cache}
}

// NewSessionToken mints the token assigned to a chat at creation.
func NewSessionToken() string {
	return uuid.NewString()
}

// ResolveOrCreate returns the chat's session token, preferring the cache and
// falling back to the chat row on a miss.
func (r *SessionRegistry) ResolveOrCreate(ctx context.Context, chatID uuid.UUID) (string, error) {
	if r.cache != nil {
		token, err := r.cache.Get(ctx, chatID)
		if err != nil {
			log.Warn().Err(err).Str("chat_id", chatID.String()).Msg("session cache read failed")
		} else if token != "" {
			return token, nil
		}
	}

	chat, err := r.chats.GetByID(ctx, chatID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve session token: %w", err)
	}

	r.Prime(ctx, chatID, chat.SessionToken)
	return chat.SessionToken, nil
}

// Prime warms the cache with a known token, best effort.
func (r *SessionRegistry) Prime(ctx context.Context, chatID uuid.UUID, token string) {
	if r.cache == nil || token == "" {
		return
	}
	if err := r.cache.Set(ctx, chatID, token); err != nil {
		log.Warn().Err(err).Str("chat_id", chatID.String()).Msg("session cache write failed")
	}
}

// Forget drops the cached token, used when a chat is deleted.
func (r *SessionRegistry) Forget(ctx context.Context, chatID uuid.UUID) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx, chatID); err != nil {
		log.Warn().Err(err).Str("chat_id", chatID.String()).Msg("session cache invalidation failed")
	}
}
