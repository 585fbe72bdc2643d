package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/honeynil/BookShareService/internal/models"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
)

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager issues and checks HS256 access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// GenerateJWT signs a token for the user and returns the session it describes.
func (m *TokenManager) GenerateJWT(userID, email string) (string, models.Session, error) {
	if len(m.secret) == 0 {
		return "", models.Session{}, fmt.Errorf("JWT secret not set")
	}

	now := m.now()
	session := models.Session{
		UserID:    userID,
		Email:     email,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(m.ttl).UTC().Truncate(time.Second),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        session.TokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", models.Session{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, session, nil
}

// ValidateJWT parses tokenStr and returns the session it carries. It does not
// consult the session store.
func (m *TokenManager) ValidateJWT(tokenStr string) (*models.Session, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenStr, &c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method.Alg())
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrUnauthorized, err)
	}
	if c.Subject == "" || c.ID == "" {
		return nil, fmt.Errorf("%w: token without subject or id", pkgerrors.ErrUnauthorized)
	}

	return &models.Session{
		UserID:    c.Subject,
		Email:     c.Email,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
