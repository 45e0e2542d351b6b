package client

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	http.Client
}

// NewClient builds the base client and applies opts in order. Transport
// options wrap the transport built so far, so the last one applied runs first.
// The client always carries a cookie jar so server-set cookies travel with
// every request and replay.
func NewClient(timeout time.Duration, opts ...ClientOption) (HTTPClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("could not create cookie jar: %s", err.Error())
	}

	baseClient := &Client{
		http.Client{
			Timeout: timeout,
			Jar:     jar,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}

	ctx := &optionContext{
		base:    baseClient,
		wrapped: baseClient,
	}

	for _, opt := range opts {
		err := opt(ctx)
		if err != nil {
			return nil, fmt.Errorf("could not create client: %w", err)
		}
	}

	return ctx.wrapped, nil
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.Client.Do(req)
}
