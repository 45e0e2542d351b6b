package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/opinionlab/studyctl/pkg/auth/credentials"
	"github.com/opinionlab/studyctl/pkg/persistence"
	"github.com/opinionlab/studyctl/pkg/persistence/store/memory"
)

const (
	DEFAULT_ACCESS_LIFETIME  = time.Minute * 60
	DEFAULT_REFRESH_LIFETIME = time.Hour * 24
)

type TokenManagerOption func(tm *TokenManager)

func WithAccessLifetime(d time.Duration) TokenManagerOption {
	return func(tm *TokenManager) {
		tm.accessLifetime = d
	}
}

func WithRefreshLifetime(d time.Duration) TokenManagerOption {
	return func(tm *TokenManager) {
		tm.refreshLifetime = d
	}
}

// WithBlacklist stores revoked refresh token ids in store, keyed by token id.
func WithBlacklist(store persistence.Store[time.Time]) TokenManagerOption {
	return func(tm *TokenManager) {
		tm.blacklist = store
	}
}

func WithClock(now func() time.Time) TokenManagerOption {
	return func(tm *TokenManager) {
		tm.now = now
	}
}

// TokenManager issues access/refresh pairs, rotates refresh tokens and
// blacklists every refresh token once it has been rotated or revoked.
type TokenManager struct {
	issuer          *TokenIssuer
	name            string
	accessLifetime  time.Duration
	refreshLifetime time.Duration
	blacklist       persistence.Store[time.Time]
	now             func() time.Time
}

func NewTokenManager(issuer *TokenIssuer, name string, opts ...TokenManagerOption) *TokenManager {
	tm := &TokenManager{
		issuer:          issuer,
		name:            name,
		accessLifetime:  DEFAULT_ACCESS_LIFETIME,
		refreshLifetime: DEFAULT_REFRESH_LIFETIME,
		blacklist:       memory.NewStore[time.Time](),
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(tm)
	}

	return tm
}

func (tm *TokenManager) GetSigningMethod() jwt.SigningMethod {
	return tm.issuer.signingMethod
}

func (tm *TokenManager) Issue(sub Subject) (credentials.Pair, error) {
	access, err := tm.sign(sub, ACCESS, tm.accessLifetime)
	if err != nil {
		return credentials.Pair{}, err
	}

	refresh, err := tm.sign(sub, REFRESH, tm.refreshLifetime)
	if err != nil {
		return credentials.Pair{}, err
	}

	return credentials.Pair{Access: access, Refresh: refresh}, nil
}

func (tm *TokenManager) sign(sub Subject, tokenType TokenType, lifetime time.Duration) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("could not generate token id: %w", err)
	}

	now := tm.now()
	claims := UserClaims{
		UserID:    sub.ID,
		Email:     sub.Email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.String(),
			Issuer:    tm.name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}

	token, err := tm.issuer.New(claims)
	if err != nil {
		return "", fmt.Errorf("could not generate token: %w", err)
	}
	return token, nil
}

// Validate checks signature, expiry and type of tokenString. Refresh tokens
// are also checked against the blacklist.
func (tm *TokenManager) Validate(tokenString string, expected TokenType) (*UserClaims, error) {
	tokenString = strings.TrimSpace(tokenString)

	claims := &UserClaims{}
	if _, err := tm.issuer.Parse(tokenString, claims, jwt.WithTimeFunc(tm.now), jwt.WithIssuer(tm.name)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.TokenType != expected {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrWrongTokenType, expected, claims.TokenType)
	}

	if expected == REFRESH {
		if _, err := tm.blacklist.Load(claims.ID); err == nil {
			return nil, ErrBlacklisted
		} else if !errors.Is(err, persistence.ErrNotFound) {
			return nil, fmt.Errorf("unable to read blacklist: %w", err)
		}
	}

	return claims, nil
}

// Rotate exchanges a valid refresh token for a new pair and blacklists it.
func (tm *TokenManager) Rotate(refreshToken string) (credentials.Pair, error) {
	claims, err := tm.Validate(refreshToken, REFRESH)
	if err != nil {
		return credentials.Pair{}, err
	}

	if err := tm.blacklist.Save(claims.ID, claims.ExpiresAt.Time); err != nil {
		return credentials.Pair{}, fmt.Errorf("unable to blacklist refresh token: %w", err)
	}

	return tm.Issue(claims.User())
}

// Revoke blacklists a refresh token, ending the session it belongs to.
func (tm *TokenManager) Revoke(refreshToken string) error {
	claims, err := tm.Validate(refreshToken, REFRESH)
	if err != nil {
		return err
	}

	if err := tm.blacklist.Save(claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("unable to blacklist refresh token: %w", err)
	}
	return nil
}
