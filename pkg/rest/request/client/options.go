package client

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

type optionContext struct {
	base    *Client
	wrapped HTTPClient
}

type ClientOption func(ctx *optionContext) error

// WithRetry wraps the HTTPClient with a retry client to perform retry logic on request failure
func WithRetry(maxRetries int, retryOptions ...retryClientOption) ClientOption {
	opts := make([]retryClientOption, 0, len(retryOptions))
	opts = append(opts, RetryClientWithMaxRetries(maxRetries))
	opts = append(opts, retryOptions...)

	return func(ctx *optionContext) error {
		retryClient, err := NewRetryClient(ctx.wrapped, opts...)
		if err != nil {
			return err
		}

		ctx.wrapped = retryClient
		return nil
	}
}

// WithAuthRefresh signs requests with the stored access credential and refreshes it on a 401.
// Without AuthInterceptor options naming a Refresher, a TokenRefresher calling refreshURL
// over the transport built so far is used, so the refresh call never re-enters the interceptor.
func WithAuthRefresh(creds CredentialStore, refreshURL string, terminator SessionTerminator, opts ...authInterceptorOption) ClientOption {
	return func(ctx *optionContext) error {
		base := ctx.base.Transport
		if base == nil {
			base = http.DefaultTransport
		}

		parsed, err := url.Parse(refreshURL)
		if err != nil {
			return fmt.Errorf("invalid refresh url: %s", err.Error())
		}

		refreshClient := &http.Client{
			Timeout:   ctx.base.Timeout,
			Transport: base,
		}
		refresher := NewTokenRefresher(refreshClient, refreshURL)

		all := make([]authInterceptorOption, 0, len(opts)+1)
		all = append(all, AuthInterceptorWithExcludedPaths(parsed.Path))
		all = append(all, opts...)

		interceptor, err := NewAuthInterceptor(base, creds, refresher, terminator, all...)
		if err != nil {
			return err
		}

		ctx.base.Transport = interceptor
		return nil
	}
}

// AuthInterceptorWithRefresher replaces the default TokenRefresher.
func AuthInterceptorWithRefresher(refresher Refresher) authInterceptorOption {
	return func(a *AuthInterceptor) error {
		if refresher == nil {
			return ErrNilOption
		}
		a.refresher = refresher
		return nil
	}
}

func WithRequestLogging(logger Logger) ClientOption {
	return func(ctx *optionContext) error {
		base := ctx.base.Transport
		if base == nil {
			base = http.DefaultTransport
		}

		if logger == nil {
			return fmt.Errorf("cannot add request logging with a nil logger")
		}

		ctx.base.Transport = NewLogInterception(logger, base)
		return nil
	}
}

// WithRateLimit admits at most rps requests per second with the given burst.
// Replays issued by the auth interceptor count against the limit when this option is applied first.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(ctx *optionContext) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rate limit and burst must be positive")
		}

		base := ctx.base.Transport
		if base == nil {
			base = http.DefaultTransport
		}

		ctx.base.Transport = NewRateLimitInterception(rate.NewLimiter(rate.Limit(rps), burst), base)
		return nil
	}
}

func WithCookieJar(jar http.CookieJar) ClientOption {
	return func(ctx *optionContext) error {
		ctx.base.Jar = jar
		return nil
	}
}

// RetryClientWithMaxRetries will add a maximum amount of retries if a request fails before an error is returned
func RetryClientWithMaxRetries(retries int) retryClientOption {
	return func(c *Retry) error {
		if retries < 0 {
			return fmt.Errorf("max retries cannot be negative")
		}
		c.MaxRetries = retries
		return nil
	}
}

// RetryClientWithRetryFunc sets the function that will be called to determine if a request should be retried
func RetryClientWithRetryFunc(f func(*http.Request, *http.Response, error) bool) retryClientOption {
	return func(c *Retry) error {
		if f == nil {
			return fmt.Errorf("retry function cannot be nil")
		}
		c.Retryable = f
		return nil
	}
}

func RetryClientWithBackoff(backoff time.Duration) retryClientOption {
	return func(c *Retry) error {
		if backoff < 0 {
			return fmt.Errorf("backoff cannot be negative")
		}
		c.Backoff = backoff
		return nil
	}
}
