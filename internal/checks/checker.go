package checks

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// Checker checks whether the platform is reachable.
type Checker interface {
	Check() error
}

// NewChecker returns a checker of type typ for the platform at baseURL.
func NewChecker(typ, baseURL string, timeout time.Duration) (Checker, error) {
	switch strings.ToUpper(typ) {
	case HTTP:
		return NewHTTPChecker(baseURL, timeout)
	case TCP_FULL, TCP_HALF:
		addr, err := HostPort(baseURL)
		if err != nil {
			return nil, err
		}
		return NewTCPChecker(strings.ToUpper(typ), addr, timeout), nil
	}

	return nil, fmt.Errorf("unknown check type: %s", typ)
}

// HostPort extracts host:port from a base url, defaulting the port from the scheme.
func HostPort(baseURL string) (string, error) {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("invalid base url: %s: no host", baseURL)
	}

	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}
