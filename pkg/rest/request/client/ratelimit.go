package client

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitInterception holds every outbound request until the limiter admits it.
type RateLimitInterception struct {
	Transport http.RoundTripper
	limiter   *rate.Limiter
}

func (rl *RateLimitInterception) RoundTrip(req *http.Request) (*http.Response, error) {
	trip := rl.Transport
	if trip == nil {
		trip = http.DefaultTransport
	}

	if err := rl.limiter.Wait(req.Context()); err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, fmt.Errorf("rate limit wait aborted: %w", err)
	}

	return trip.RoundTrip(req)
}

func NewRateLimitInterception(limiter *rate.Limiter, base http.RoundTripper) http.RoundTripper {
	return &RateLimitInterception{
		Transport: base,
		limiter:   limiter,
	}
}
