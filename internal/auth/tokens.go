// Package auth issues and verifies the access/refresh token pair backing
// cookie-based sessions. Refresh tokens are additionally recorded in Redis
// so logout and rotation can revoke them server-side.
package auth

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// AccessTokenTTL bounds how long an access token is accepted.
	AccessTokenTTL = 15 * time.Minute
	// RefreshTokenTTL bounds the refresh token and its Redis record.
	RefreshTokenTTL = 7 * 24 * time.Hour
)

var (
	// ErrInvalidToken is returned for malformed or badly signed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for well-formed but expired tokens.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked is returned when a refresh token does not match the
	// server-side record.
	ErrTokenRevoked = errors.New("token revoked")
)

// Claims is the JWT payload for both token kinds.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenStore records the currently valid refresh token per user.
type TokenStore interface {
	SaveRefreshToken(ctx context.Context, userID, token string, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, userID string) (string, error)
	DeleteRefreshToken(ctx context.Context, userID string) error
}

// Tokens signs and verifies the token pair. Access and refresh tokens use
// separate HS256 secrets.
type Tokens struct {
	accessSecret  []byte
	refreshSecret []byte
	store         TokenStore
	now           func() time.Time
}

// NewTokens creates a Tokens manager.
func NewTokens(accessSecret, refreshSecret []byte, store TokenStore) *Tokens {
	return &Tokens{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		store:         store,
		now:           time.Now,
	}
}

// IssuePair signs a fresh access/refresh pair for the user and records the
// refresh token server-side.
func (t *Tokens) IssuePair(ctx context.Context, userID string) (access, refresh string, err error) {
	access, err = t.sign(t.accessSecret, userID, AccessTokenTTL)
	if err != nil {
		return "", "", errors.Wrap(err, "sign access token")
	}
	refresh, err = t.sign(t.refreshSecret, userID, RefreshTokenTTL)
	if err != nil {
		return "", "", errors.Wrap(err, "sign refresh token")
	}
	if err := t.store.SaveRefreshToken(ctx, userID, refresh, RefreshTokenTTL); err != nil {
		return "", "", errors.Wrap(err, "store refresh token")
	}
	return access, refresh, nil
}

// VerifyAccess validates an access token and returns the user id.
func (t *Tokens) VerifyAccess(token string) (userID string, err error) {
	return t.verify(t.accessSecret, token)
}

// Refresh validates a refresh token against both its signature and the
// server-side record, then issues a fresh access token.
func (t *Tokens) Refresh(ctx context.Context, refreshToken string) (access, userID string, err error) {
	userID, err = t.verify(t.refreshSecret, refreshToken)
	if err != nil {
		return "", "", err
	}

	stored, err := t.store.GetRefreshToken(ctx, userID)
	if err != nil {
		return "", "", errors.Wrap(err, "load refresh token")
	}
	if stored != refreshToken {
		return "", "", ErrTokenRevoked
	}

	access, err = t.sign(t.accessSecret, userID, AccessTokenTTL)
	if err != nil {
		return "", "", errors.Wrap(err, "sign access token")
	}
	return access, userID, nil
}

// Revoke drops the server-side refresh token record for the user.
func (t *Tokens) Revoke(ctx context.Context, userID string) error {
	return t.store.DeleteRefreshToken(ctx, userID)
}

func (t *Tokens) sign(secret []byte, userID string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (t *Tokens) verify(secret []byte, token string) (string, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
