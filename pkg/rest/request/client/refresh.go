package client

import (
	"context"
	"fmt"
	"io"

	"github.com/opinionlab/studyctl/pkg/auth/credentials"
	"github.com/opinionlab/studyctl/pkg/rest/request"
)

// Refresher exchanges a refresh credential for a new credential pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (credentials.Pair, error)
}

type RefreshFunc func(ctx context.Context, refreshToken string) (credentials.Pair, error)

func (f RefreshFunc) Refresh(ctx context.Context, refreshToken string) (credentials.Pair, error) {
	return f(ctx, refreshToken)
}

type refreshPayload struct {
	Refresh string `json:"refresh"`
}

// TokenRefresher calls the platform token-refresh endpoint.
type TokenRefresher struct {
	client     HTTPClient
	refreshURL string
}

func NewTokenRefresher(client HTTPClient, refreshURL string) *TokenRefresher {
	return &TokenRefresher{
		client:     client,
		refreshURL: refreshURL,
	}
}

func (tr *TokenRefresher) Refresh(ctx context.Context, refreshToken string) (credentials.Pair, error) {
	req, err := request.NewBuilder(tr.refreshURL).
		POST().
		Body(refreshPayload{Refresh: refreshToken}).
		CTX(ctx).
		Build()
	if err != nil {
		return credentials.Pair{}, err
	}

	resp, err := tr.client.Do(req)
	if err != nil {
		return credentials.Pair{}, fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return credentials.Pair{}, fmt.Errorf("%w: status code %d", ErrRefreshRejected, resp.StatusCode)
	}

	var pair credentials.Pair
	if err := request.JSONDECODE(resp.Body, &pair); err != nil {
		return credentials.Pair{}, fmt.Errorf("unable to decode refresh response: %w", err)
	}

	return pair, nil
}
