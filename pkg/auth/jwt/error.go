package jwt

import (
	"errors"
	"net/http"
)

type Error string

// JWTError is written to clients whose credential was refused.
type JWTError struct {
	Code   int    `json:"-"`
	Detail string `json:"detail"`
	Reason string `json:"code"`
}

const (
	ErrUnAuthorized  = Error("UnAuthorized")
	ErrTokenNotValid = Error("TokenNotValid")
)

var (
	Errors = map[Error]*JWTError{
		ErrUnAuthorized: {
			Code:   http.StatusUnauthorized,
			Detail: "Authentication credentials were not provided.",
			Reason: "not_authenticated",
		},
		ErrTokenNotValid: {
			Code:   http.StatusUnauthorized,
			Detail: "Given token not valid for any token type",
			Reason: "token_not_valid",
		},
	}
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
	ErrBlacklisted    = errors.New("token is blacklisted")
)
