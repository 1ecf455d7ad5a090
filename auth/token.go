// Package auth issues and verifies identity tokens, manages credentials and
// guards routes that require an authenticated caller.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the fixed validity window of every identity token.
const TokenTTL = time.Hour

var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated caller as asserted by a token.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Claims is the signed claim set carried by an identity token.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Email: c.Email}
}

// Mint signs an HS256 token for id that expires ttl after now.
func Mint(id Identity, secret []byte, ttl time.Duration) (string, error) {
	return mintAt(id, secret, ttl, time.Now())
}

func mintAt(id Identity, secret []byte, ttl time.Duration, issuedAt time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("signing secret is empty")
	}
	claims := Claims{
		UserID: id.UserID,
		Email:  id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of tokenString and returns its claims.
// Every failure wraps ErrInvalidToken together with the underlying jwt error.
func Verify(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithIssuedAt())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing identity claim", ErrInvalidToken)
	}
	return claims, nil
}
