package client

import "errors"

var (
	ErrNoRefreshToken    = errors.New("no refresh token stored")
	ErrRefreshFailed     = errors.New("credential refresh failed")
	ErrRefreshRejected   = errors.New("refresh endpoint rejected the refresh token")
	ErrEmptyCredential   = errors.New("refresh endpoint returned an empty access token")
	ErrNilOption         = errors.New("option value cannot be nil")
	ErrSessionTerminated = errors.New("session terminated")
)
