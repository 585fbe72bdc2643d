package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/honeynil/BookShareService/internal/infrastructure/redis"
	"github.com/honeynil/BookShareService/internal/models"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
)

// SessionStore keeps issued token ids in Redis so sign-out can revoke them.
type SessionStore struct {
	redis redis.RedisClient
}

func NewSessionStore(redisClient redis.RedisClient) *SessionStore {
	return &SessionStore{redis: redisClient}
}

func SessionKey(tokenID string) string {
	return fmt.Sprintf("session:%s", tokenID)
}

func (s *SessionStore) Save(ctx context.Context, session models.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("%w: session already expired", pkgerrors.ErrUnauthorized)
	}
	return s.redis.Set(ctx, SessionKey(session.TokenID), session.UserID, ttl)
}

// Check returns ErrSessionNotFound when the token was revoked or the stored
// owner differs from the token subject.
func (s *SessionStore) Check(ctx context.Context, session models.Session) error {
	userID, err := s.redis.Get(ctx, SessionKey(session.TokenID))
	if stderrors.Is(err, redis.ErrKeyNotFound) {
		return pkgerrors.ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if userID != session.UserID {
		return pkgerrors.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) Revoke(ctx context.Context, tokenID string) error {
	return s.redis.Del(ctx, SessionKey(tokenID))
}
