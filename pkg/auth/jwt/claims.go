package jwt

import (
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

type TokenType string

const (
	ACCESS  TokenType = "access"
	REFRESH TokenType = "refresh"
)

// Subject is the user a token pair is issued for.
type Subject struct {
	ID    int
	Email string
}

type UserClaims struct {
	UserID    int       `json:"user_id"`
	Email     string    `json:"email"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

func (c *UserClaims) User() Subject {
	return Subject{ID: c.UserID, Email: c.Email}
}

// ExpiresAt reads the expiry of a token without verifying its signature.
// Used by clients that only need to report on a stored credential.
func ExpiresAt(tokenString string) (time.Time, error) {
	claims := &UserClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%w: no expiry claim", ErrInvalidToken)
	}
	return claims.ExpiresAt.Time, nil
}
