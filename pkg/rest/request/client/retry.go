package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"
)

type retryClientOption func(c *Retry) error

type Retry struct {
	client     HTTPClient
	Retryable  func(*http.Request, *http.Response, error) bool
	MaxRetries int
	Backoff    time.Duration
}

func NewRetryClient(baseClient HTTPClient, opts ...retryClientOption) (HTTPClient, error) {
	client := &Retry{
		client:     baseClient,
		MaxRetries: 3,
		Backoff:    100 * time.Millisecond,
		Retryable: func(req *http.Request, resp *http.Response, err error) bool {
			return false
		},
	}

	for _, opt := range opts {
		if err := opt(client); err != nil {
			return nil, fmt.Errorf("could not create client: %s", err.Error())
		}
	}

	return client, nil
}

func (c *Retry) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	for count := 0; count < c.MaxRetries && c.Retryable(req, resp, err); count++ {
		if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
			break // body already consumed, cannot resend
		}
		if resp != nil {
			drain(resp)
		}

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(c.Backoff * time.Duration(1<<count)):
		}

		if req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, fmt.Errorf("unable to rewind request body: %w", bodyErr)
			}
			req.Body = body
		}
		resp, err = c.client.Do(req)
	}

	return resp, err
}

var idempotentMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodOptions,
	http.MethodPut,
	http.MethodDelete,
}

// RetryOnTransientFailure retries transport errors and gateway statuses of
// idempotent requests. Refresh failures are terminal and never retried.
func RetryOnTransientFailure(req *http.Request, resp *http.Response, err error) bool {
	if req == nil && resp != nil {
		req = resp.Request
	}
	if req != nil && !slices.Contains(idempotentMethods, req.Method) {
		return false
	}

	if err != nil {
		return !errors.Is(err, ErrRefreshFailed) &&
			!errors.Is(err, context.Canceled) &&
			!errors.Is(err, context.DeadlineExceeded)
	}

	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
