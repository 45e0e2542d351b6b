package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http/cookiejar"
	"strings"
	"sync/atomic"
	"time"

	"github.com/opinionlab/studyctl/internal/config"
	"github.com/opinionlab/studyctl/internal/output"
	"github.com/opinionlab/studyctl/pkg/auth/credentials"
	"github.com/opinionlab/studyctl/pkg/auth/session"
	"github.com/opinionlab/studyctl/pkg/bslog"
	"github.com/opinionlab/studyctl/pkg/persistence/store/file"
	redisstore "github.com/opinionlab/studyctl/pkg/persistence/store/redis"
	"github.com/opinionlab/studyctl/pkg/rest/request/client"
	"github.com/opinionlab/studyctl/pkg/studyapi"
	"github.com/opinionlab/studyctl/pkg/studyapi/routes"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/net/publicsuffix"
)

const (
	REDIS_KEY_PREFIX      = "studyctl:credentials:"
	DEFAULT_RETRY_BACKOFF = 200 * time.Millisecond
)

// app carries everything a command needs. The session part is built on
// first use so commands such as ping and mock-server never touch storage.
type app struct {
	stdout io.Writer
	stderr io.Writer

	noColor     bool
	metricsFile string
	dotEnv      []string

	cfg      *config.Config
	printer  *output.Printer
	logger   *bslog.Logger
	registry *prometheus.Registry

	creds      *credentials.Store
	terminator *session.Terminator
	api        *studyapi.Client
	expired    atomic.Bool
	closers    []io.Closer
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags(), a.dotEnv...)
	if err != nil {
		return &output.CLIError{
			Summary:  "invalid configuration",
			Detail:   err.Error(),
			ExitCode: output.ExitConfigError,
		}
	}
	a.cfg = cfg

	level, _ := bslog.ParseLevel(cfg.Server.LogLevel) // validated by config.Load
	a.logger = bslog.NewLogger(cfg.Server.Env, level, a.stderr)
	bslog.SetDefault(a.logger)
	a.printer = output.NewPrinter(a.stdout, a.stderr, output.ResolveColors(a.noColor))
	a.registry = prometheus.NewRegistry()
	return nil
}

// session builds the credential store, the authenticated client and the API.
func (a *app) session() (*studyapi.Client, error) {
	if a.api != nil {
		return a.api, nil
	}

	logger := a.logger.Slog()
	key, err := a.cfg.Storage.EncryptionKey()
	if err != nil {
		return nil, &output.CLIError{Summary: "invalid storage key", Detail: err.Error(), ExitCode: output.ExitConfigError}
	}

	primary, err := newFileStore(a.cfg.Storage.CredentialsPath(), key)
	if err != nil {
		return nil, &output.CLIError{
			Summary:    "unable to open credential storage",
			Detail:     err.Error(),
			Suggestion: "check STORAGE_DIR and STORAGE_KEY",
			ExitCode:   output.ExitConfigError,
		}
	}

	storeOpts := []credentials.StoreOption{credentials.WithLogger(logger)}
	if addr := a.cfg.Storage.RedisAddr; addr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: addr})
		a.closers = append(a.closers, rdb)
		mirror := redisstore.NewStore[string](rdb, REDIS_KEY_PREFIX, redisstore.WithTTL(credentials.DefaultMirrorTTL))
		storeOpts = append(storeOpts, credentials.WithMirror(mirror))
	}
	a.creds = credentials.NewStore(primary, storeOpts...)

	a.terminator = session.NewTerminator(
		session.NavigatorFunc(func(ctx context.Context, path string) {
			a.expired.Store(true)
			logger.DebugContext(ctx, "navigating to login", slog.String("path", path))
		}),
		[]session.Clearer{a.creds},
		session.WithLogger(logger),
	)

	baseURL := strings.TrimSuffix(a.cfg.API.BaseURL, "/")

	httpClient, err := a.httpClient(baseURL)
	if err != nil {
		return nil, err
	}

	a.api = studyapi.New(httpClient, baseURL, a.creds, a.terminator, studyapi.WithLogger(logger))
	return a.api, nil
}

func (a *app) httpClient(baseURL string) (client.HTTPClient, error) {
	metrics := client.NewMetrics(a.registry)
	logger := a.logger.Slog()

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, &output.CLIError{Summary: "unable to create cookie jar", Detail: err.Error(), ExitCode: output.ExitConfigError}
	}

	options := []client.ClientOption{client.WithCookieJar(jar)}
	if rps := a.cfg.API.RateLimit; rps > 0 {
		// innermost, so replays issued by the interceptor are limited too
		options = append(options, client.WithRateLimit(rps, max(1, int(rps))))
	}
	options = append(options,
		client.WithRequestLogging(logger),
		client.WithAuthRefresh(a.creds, baseURL+routes.AUTH_TOKEN_REFRESH, a.terminator,
			client.AuthInterceptorWithExcludedPaths(routes.Unauthenticated...),
			client.AuthInterceptorWithExcludedPaths(routes.AUTH_LOGOUT),
			client.AuthInterceptorWithRefreshTimeout(a.cfg.Auth.RefreshTimeout),
			client.AuthInterceptorWithMetrics(metrics),
			client.AuthInterceptorWithLogger(logger),
		),
	)
	if retries := a.cfg.API.Retries; retries > 0 {
		options = append(options, client.WithRetry(retries,
			client.RetryClientWithRetryFunc(client.RetryOnTransientFailure),
			client.RetryClientWithBackoff(DEFAULT_RETRY_BACKOFF),
		))
	}

	c, err := client.NewClient(a.cfg.API.Timeout, options...)
	if err != nil {
		return nil, &output.CLIError{Summary: "unable to create http client", Detail: err.Error(), ExitCode: output.ExitConfigError}
	}
	return c, nil
}

// teardown flushes metrics and releases connections. Errors are logged only,
// through the default logger installed by setup.
func (a *app) teardown() {
	if a.metricsFile != "" && a.registry != nil {
		if err := prometheus.WriteToTextfile(a.metricsFile, a.registry); err != nil {
			bslog.Error("unable to write metrics", slog.String("reason", err.Error()))
		}
	}

	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	if err := errors.Join(errs...); err != nil {
		bslog.Error("unable to release resources", slog.String("reason", err.Error()))
	}
}

func newFileStore(path string, key []byte) (*file.Store[string], error) {
	if key == nil {
		return file.NewStore[string](path)
	}
	store, err := file.NewStore[string](path, file.WithEncryptionKey(key))
	if err != nil {
		return nil, fmt.Errorf("encrypted storage: %w", err)
	}
	return store, nil
}
