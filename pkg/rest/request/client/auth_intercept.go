package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DEFAULT_REFRESH_TIMEOUT = time.Second * 10

// CredentialStore is the credential state the interceptor reads and renews.
type CredentialStore interface {
	Access() (string, bool)
	Refresh() (string, bool)
	Set(access, refresh string) error
}

// SessionTerminator ends the local session after an unrecoverable refresh
// failure. Terminate runs while the failed refresh still holds the
// coordinator, requests failing authorization meanwhile are rejected after it
// returns, so it must not wait on them.
type SessionTerminator interface {
	Terminate(ctx context.Context, reason error)
}

type authInterceptorOption func(a *AuthInterceptor) error

// AuthInterceptor signs every request and turns 401 responses into a single
// refresh of the credential pair followed by a replay. Requests failing while
// a refresh is in flight wait for it and are replayed in arrival order.
type AuthInterceptor struct {
	Transport      http.RoundTripper
	signer         *Signer
	creds          CredentialStore
	refresher      Refresher
	terminator     SessionTerminator
	coordinator    *RefreshCoordinator
	refreshTimeout time.Duration
	excludedPaths  []string
	metrics        *Metrics
	logger         Logger
}

func NewAuthInterceptor(baseTransport http.RoundTripper, creds CredentialStore, refresher Refresher, terminator SessionTerminator, opts ...authInterceptorOption) (*AuthInterceptor, error) {
	if creds == nil || refresher == nil || terminator == nil {
		return nil, fmt.Errorf("%w: auth interceptor needs credentials, refresher and terminator", ErrNilOption)
	}

	a := &AuthInterceptor{
		Transport:      baseTransport,
		signer:         NewSigner(creds),
		creds:          creds,
		refresher:      refresher,
		terminator:     terminator,
		coordinator:    NewRefreshCoordinator(),
		refreshTimeout: DEFAULT_REFRESH_TIMEOUT,
		logger:         discardLogger{},
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, fmt.Errorf("could not create auth interceptor: %w", err)
		}
	}

	return a, nil
}

// AuthInterceptorWithExcludedPaths lists endpoints whose 401 is returned as is,
// such as the refresh endpoint itself or login.
func AuthInterceptorWithExcludedPaths(paths ...string) authInterceptorOption {
	return func(a *AuthInterceptor) error {
		for _, p := range paths {
			if p = normalizePath(p); p != "" {
				a.excludedPaths = append(a.excludedPaths, p)
			}
		}
		return nil
	}
}

func AuthInterceptorWithRefreshTimeout(timeout time.Duration) authInterceptorOption {
	return func(a *AuthInterceptor) error {
		if timeout <= 0 {
			return fmt.Errorf("refresh timeout must be positive")
		}
		a.refreshTimeout = timeout
		return nil
	}
}

func AuthInterceptorWithMetrics(metrics *Metrics) authInterceptorOption {
	return func(a *AuthInterceptor) error {
		a.metrics = metrics
		return nil
	}
}

func AuthInterceptorWithLogger(logger Logger) authInterceptorOption {
	return func(a *AuthInterceptor) error {
		if logger == nil {
			return ErrNilOption
		}
		a.logger = logger
		return nil
	}
}

func (a *AuthInterceptor) Coordinator() *RefreshCoordinator {
	return a.coordinator
}

func (a *AuthInterceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	req, err := replayable(req)
	if err != nil {
		return nil, err
	}

	resp, usedToken, err := a.send(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	if a.excluded(req) {
		a.logger.Debug("authorization failure on excluded endpoint", "endpoint", req.URL.String())
		return resp, nil
	}
	drain(resp)

	return a.recover(req, usedToken)
}

func (a *AuthInterceptor) recover(req *http.Request, usedToken string) (*http.Response, error) {
	for {
		if a.rotatedSince(usedToken) {
			a.logger.Debug("credential rotated since request was signed, replaying", "endpoint", req.URL.String())
			return a.replay(req)
		}

		if a.coordinator.BeginRefresh() {
			return a.lead(req, usedToken)
		}

		pending := newPendingRequest(req)
		if a.coordinator.Enqueue(pending) {
			a.metrics.queued()
			a.logger.Debug("refresh in flight, queueing request", "endpoint", req.URL.String())
			return a.wait(req.Context(), pending)
		}
		// the refresh finished between BeginRefresh and Enqueue, look again
	}
}

// lead runs one refresh cycle and settles every request queued behind it.
func (a *AuthInterceptor) lead(req *http.Request, usedToken string) (*http.Response, error) {
	start := time.Now()
	a.logger.Info("refreshing credentials", "endpoint", req.URL.String())

	queued, err := a.refreshCycle(req.Context(), usedToken, start)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSessionTerminated, err)
		for _, p := range queued {
			if p.claim() {
				a.metrics.replay("rejected")
				p.resolve(nil, err)
			}
		}
		return nil, err
	}

	a.metrics.refresh("success", time.Since(start))
	a.logger.Info("credentials refreshed", "queued", len(queued))

	for _, p := range queued {
		if !p.claim() {
			a.metrics.replay("abandoned")
			continue
		}
		p.resolve(a.replay(p.req))
	}

	return a.replay(req)
}

// refreshCycle returns the queued requests no matter how the refresh ends,
// and always moves the coordinator back to Idle. A failed refresh terminates
// the session before that, so requests failing authorization meanwhile are
// queued and rejected instead of starting a second cycle.
func (a *AuthInterceptor) refreshCycle(ctx context.Context, usedToken string, start time.Time) (queued []*PendingRequest, err error) {
	defer func() {
		queued = a.coordinator.EndRefresh()
		if r := recover(); r != nil {
			panicErr := fmt.Errorf("%w: panic: %v", ErrRefreshFailed, r)
			for _, p := range queued {
				if p.claim() {
					p.resolve(nil, panicErr)
				}
			}
			panic(r)
		}
	}()

	if err = a.refresh(ctx, usedToken); err != nil {
		a.metrics.refresh("failure", time.Since(start))
		a.logger.Error("credential refresh failed", "reason", err.Error(), "queued", a.coordinator.QueueLen())

		a.terminator.Terminate(context.WithoutCancel(ctx), err)
		a.metrics.terminated()
	}
	return nil, err
}

func (a *AuthInterceptor) refresh(ctx context.Context, usedToken string) error {
	if a.rotatedSince(usedToken) {
		return nil
	}

	refreshToken, ok := a.creds.Refresh()
	if !ok {
		return fmt.Errorf("%w: %w", ErrRefreshFailed, ErrNoRefreshToken)
	}

	// the refresh is shared by every queued caller, the leader giving up must not cancel it
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.refreshTimeout)
	defer cancel()

	pair, err := a.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	if pair.Access == "" {
		return fmt.Errorf("%w: %w", ErrRefreshFailed, ErrEmptyCredential)
	}

	if err := a.creds.Set(pair.Access, pair.Refresh); err != nil {
		return fmt.Errorf("%w: unable to persist credentials: %w", ErrRefreshFailed, err)
	}
	return nil
}

func (a *AuthInterceptor) wait(ctx context.Context, pending *PendingRequest) (*http.Response, error) {
	select {
	case res := <-pending.result:
		return res.resp, res.err
	case <-ctx.Done():
		if pending.abandon() {
			return nil, ctx.Err()
		}
		// already claimed by the leader, the result is on its way
		res := <-pending.result
		return res.resp, res.err
	}
}

func (a *AuthInterceptor) replay(req *http.Request) (*http.Response, error) {
	resp, _, err := a.send(req)
	if err != nil {
		a.metrics.replay("error")
	} else {
		a.metrics.replay("ok")
	}
	return resp, err
}

func (a *AuthInterceptor) send(req *http.Request) (*http.Response, string, error) {
	trip := a.Transport
	if trip == nil {
		trip = http.DefaultTransport
	}

	signed, token := a.signer.Sign(req)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, token, fmt.Errorf("unable to rewind request body: %w", err)
		}
		signed.Body = body
	}

	resp, err := trip.RoundTrip(signed)
	return resp, token, err
}

func (a *AuthInterceptor) rotatedSince(usedToken string) bool {
	current, ok := a.creds.Access()
	return ok && current != usedToken
}

func (a *AuthInterceptor) excluded(req *http.Request) bool {
	path := normalizePath(req.URL.Path)
	for _, p := range a.excludedPaths {
		if strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}

// replayable returns a copy of req whose body can be read once per attempt.
func replayable(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return out, nil
	}

	if req.GetBody == nil {
		data, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("unable to buffer request body: %w", err)
		}
		out.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
		return out, nil
	}

	req.Body.Close() // every attempt reads a fresh copy through GetBody
	return out, nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

func normalizePath(path string) string {
	return strings.TrimSuffix(strings.TrimSpace(path), "/")
}
