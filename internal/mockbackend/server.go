package mockbackend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/opinionlab/studyctl/internal/model"
	"github.com/opinionlab/studyctl/internal/repositories/account"
	"github.com/opinionlab/studyctl/internal/repositories/project"
	"github.com/opinionlab/studyctl/pkg/auth"
	"github.com/opinionlab/studyctl/pkg/auth/jwt"
	"github.com/opinionlab/studyctl/pkg/persistence/store/memory"
	"github.com/opinionlab/studyctl/pkg/rest/middleware"
	"github.com/opinionlab/studyctl/pkg/studyapi"
	"github.com/opinionlab/studyctl/pkg/studyapi/routes"
	"github.com/opinionlab/studyctl/pkg/validation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ISSUER                 = "studyctl-mock"
	MAX_UPLOAD_SIZE        = 10 << 20
	SHUTDOWN_GRACE_PERIOD  = time.Second * 5
	DEFAULT_LISTEN_ADDRESS = "127.0.0.1:8000"
)

type ServerOption func(s *Server) error

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

// WithTokenOptions tunes credential lifetimes or the refresh token blacklist.
func WithTokenOptions(opts ...jwt.TokenManagerOption) ServerOption {
	return func(s *Server) error {
		s.tokenOpts = append(s.tokenOpts, opts...)
		return nil
	}
}

func WithRegistry(reg *prometheus.Registry) ServerOption {
	return func(s *Server) error {
		s.registry = reg
		return nil
	}
}

// WithAccount registers a user at startup.
func WithAccount(username, email, password string) ServerOption {
	return func(s *Server) error {
		s.seed = append(s.seed, [3]string{username, email, password})
		return nil
	}
}

// Server mimics the platform backend: authentication with rotating refresh
// tokens, projects, silicon persons, the model catalog and cost estimation.
type Server struct {
	log       *slog.Logger
	tokens    *jwt.TokenManager
	tokenOpts []jwt.TokenManagerOption
	accounts  *account.AccountRepo
	projects  *project.ProjectRepo
	persons   *project.PersonRepo
	validator *validation.Validator
	registry  *prometheus.Registry
	metrics   *metrics
	seed      [][3]string
	handler   http.Handler
}

func New(secret []byte, opts ...ServerOption) (*Server, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("jwt secret cannot be empty")
	}

	s := &Server{
		log:       slog.Default(),
		validator: validation.New(),
		persons:   project.NewPersonRepo(memory.NewStore[studyapi.SiliconPerson]()),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("could not create mock backend: %w", err)
		}
	}

	var err error
	s.accounts, err = account.NewAccountRepo(memory.NewStore[model.Account]())
	if err != nil {
		return nil, err
	}
	s.projects, err = project.NewProjectRepo(memory.NewStore[studyapi.Project]())
	if err != nil {
		return nil, err
	}

	for _, acc := range s.seed {
		if _, err := s.Register(acc[0], acc[1], acc[2]); err != nil {
			return nil, fmt.Errorf("could not seed account %s: %w", acc[1], err)
		}
	}

	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = newMetrics(s.registry)
	s.tokens = jwt.NewTokenManager(jwt.NewTokenIssuer(secret), ISSUER, s.tokenOpts...)
	s.handler = s.routes()

	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	public := middleware.Chain(middleware.WithIncomingRequestLogging(s.log), s.metrics.instrument)
	private := middleware.Chain(public, auth.WithTokenValidation(s.log, s.tokens))

	mux.HandleFunc(routes.POST_AUTH_LOGIN, public(s.Login))
	mux.HandleFunc(routes.POST_AUTH_REGISTRATION, public(s.Registration))
	mux.HandleFunc(routes.POST_AUTH_LOGOUT, public(s.Logout))
	mux.HandleFunc(routes.POST_AUTH_TOKEN_REFRESH, public(s.RefreshToken))

	mux.HandleFunc(routes.GET_PROJECTS+"{$}", private(s.GetProjects))
	mux.HandleFunc(routes.POST_PROJECT+"{$}", private(s.CreateProject))
	mux.HandleFunc(routes.GET_AI_MODELS, private(s.GetAIModels))
	mux.HandleFunc(routes.GET_SILICON_PERSONS, private(s.GetSiliconPersons))
	mux.HandleFunc(routes.POST_TOKEN_COST, private(s.TokenCost))

	mux.Handle(routes.GET_METRICS, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return mux
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Tokens() *jwt.TokenManager {
	return s.tokens
}

// Register creates an account outside of the HTTP surface.
func (s *Server) Register(username, email, password string) (studyapi.User, error) {
	acc, err := model.NewAccount(username, email, password)
	if err != nil {
		return studyapi.User{}, err
	}
	if err := s.accounts.Create(&acc); err != nil {
		return studyapi.User{}, err
	}
	return acc.User(), nil
}

// AddSiliconPerson attaches a respondent to a project.
func (s *Server) AddSiliconPerson(person studyapi.SiliconPerson) (studyapi.SiliconPerson, error) {
	if _, err := s.projects.Read(fmt.Sprint(person.Project)); err != nil {
		return studyapi.SiliconPerson{}, err
	}
	err := s.persons.Create(&person)
	return person, err
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("unable to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("mock backend listening", slog.String("address", listener.Addr().String()))
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SHUTDOWN_GRACE_PERIOD)
	defer cancel()
	s.log.Info("shutting down mock backend")
	return srv.Shutdown(shutdownCtx)
}
