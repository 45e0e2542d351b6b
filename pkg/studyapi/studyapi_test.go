package studyapi_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opinionlab/studyctl/internal/mockbackend"
	"github.com/opinionlab/studyctl/pkg/auth/credentials"
	"github.com/opinionlab/studyctl/pkg/auth/jwt"
	"github.com/opinionlab/studyctl/pkg/auth/session"
	"github.com/opinionlab/studyctl/pkg/persistence/store/memory"
	"github.com/opinionlab/studyctl/pkg/rest/request/client"
	"github.com/opinionlab/studyctl/pkg/studyapi"
	"github.com/opinionlab/studyctl/pkg/studyapi/routes"
	"github.com/opinionlab/studyctl/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	email    = "alice@example.com"
	password = "correct-horse"
)

type fixture struct {
	api        *studyapi.Client
	creds      *credentials.Store
	terminator *session.Terminator
	backend    *mockbackend.Server
	navigated  atomic.Value
}

func newFixture(t *testing.T, tokenOpts ...jwt.TokenManagerOption) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	backend, err := mockbackend.New([]byte("secret"),
		mockbackend.WithLogger(logger),
		mockbackend.WithAccount("alice", email, password),
		mockbackend.WithTokenOptions(tokenOpts...),
	)
	require.NoError(t, err)
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	f := &fixture{backend: backend}
	f.creds = credentials.NewStore(memory.NewStore[string](), credentials.WithLogger(logger))
	f.terminator = session.NewTerminator(
		session.NavigatorFunc(func(ctx context.Context, path string) { f.navigated.Store(path) }),
		[]session.Clearer{f.creds},
		session.WithLogger(logger),
	)

	httpClient, err := client.NewClient(5*time.Second,
		client.WithAuthRefresh(f.creds, srv.URL+routes.AUTH_TOKEN_REFRESH, f.terminator,
			client.AuthInterceptorWithExcludedPaths(routes.Unauthenticated...),
			client.AuthInterceptorWithExcludedPaths(routes.AUTH_LOGOUT),
		),
	)
	require.NoError(t, err)

	f.api = studyapi.New(httpClient, srv.URL, f.creds, f.terminator, studyapi.WithLogger(logger))
	return f
}

func (f *fixture) login(t *testing.T) studyapi.LoginResponse {
	t.Helper()
	resp, err := f.api.Login(context.Background(), studyapi.LoginPayload{Email: email, Password: password})
	require.NoError(t, err)
	return resp
}

func TestLoginStoresCredentials(t *testing.T) {
	f := newFixture(t)

	resp := f.login(t)
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, credentials.Pair{Access: resp.Access, Refresh: resp.Refresh}, f.creds.Pair())
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)

	_, err := f.api.Login(context.Background(), studyapi.LoginPayload{Email: email, Password: "wrong"})
	assert.ErrorIs(t, err, studyapi.ErrBadRequest)
	assert.True(t, f.creds.Pair().Empty())
	assert.Zero(t, f.terminator.Terminations(), "a refused login is not a session failure")

	_, err = f.api.Login(context.Background(), studyapi.LoginPayload{Email: "not-an-email"})
	var verr *validation.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	resp, err := f.api.Register(context.Background(), studyapi.RegisterPayload{
		Username: "bob", Email: "bob@example.com", Password1: "s3cretpass", Password2: "s3cretpass",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Detail)

	_, err = f.api.Login(context.Background(), studyapi.LoginPayload{Email: "bob@example.com", Password: "s3cretpass"})
	assert.NoError(t, err)
}

func TestProjectsLifecycle(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	created, err := f.api.CreateProject(ctx, studyapi.CreateProjectPayload{Title: "Election", Description: "2024"})
	require.NoError(t, err)

	_, err = f.api.CreateProject(ctx, studyapi.CreateProjectPayload{Title: "Election"})
	assert.ErrorIs(t, err, studyapi.ErrBadRequest)

	projects, err := f.api.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, created.ProjectID, projects[0].ID)

	_, err = f.backend.AddSiliconPerson(studyapi.SiliconPerson{Project: created.ProjectID, Name: "p1"})
	require.NoError(t, err)

	persons, err := f.api.ListSiliconPersons(ctx, created.ProjectID)
	require.NoError(t, err)
	require.Len(t, persons, 1)

	_, err = f.api.ListSiliconPersons(ctx, 42)
	assert.ErrorIs(t, err, studyapi.ErrNotFound)
}

func TestCalculateTokenCost(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	ctx := context.Background()

	fromList, err := f.api.CalculateTokenCost(ctx, studyapi.TokenCostPayload{
		ModelName: "gpt-4o-mini", NumSiliconPeople: 4, QuestionsList: []string{"Q1", "Q2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 8, fromList.SimulationDetails.TotalRequests)

	fromFile, err := f.api.CalculateTokenCost(ctx, studyapi.TokenCostPayload{
		ModelName: "gpt-4o-mini", NumSiliconPeople: 4,
		QuestionsFile: &studyapi.QuestionsFile{Name: "q.csv", Content: []byte("Q1\nQ2\n")},
	})
	require.NoError(t, err)
	assert.Equal(t, fromList, fromFile)

	_, err = f.api.CalculateTokenCost(ctx, studyapi.TokenCostPayload{ModelName: "gpt-4o", NumSiliconPeople: 1})
	assert.ErrorIs(t, err, studyapi.ErrQuestionSource)
}

func TestExpiredAccessIsRefreshedOnce(t *testing.T) {
	f := newFixture(t, jwt.WithAccessLifetime(2*time.Second))
	first := f.login(t)

	time.Sleep(3 * time.Second) // expiry has second resolution

	dash, err := f.api.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Empty(t, dash.Projects)
	assert.NotEmpty(t, dash.Models)

	pair := f.creds.Pair()
	assert.NotEqual(t, first.Access, pair.Access)
	assert.NotEqual(t, first.Refresh, pair.Refresh, "refresh token is rotated")
	assert.Zero(t, f.terminator.Terminations())
}

func TestRevokedRefreshEndsSession(t *testing.T) {
	f := newFixture(t, jwt.WithAccessLifetime(2*time.Second))
	first := f.login(t)
	require.NoError(t, f.backend.Tokens().Revoke(first.Refresh))

	time.Sleep(3 * time.Second) // expiry has second resolution

	_, err := f.api.ListProjects(context.Background())
	assert.ErrorIs(t, err, client.ErrRefreshFailed)
	assert.True(t, f.creds.Pair().Empty())
	assert.Equal(t, session.LOGIN_PATH, f.navigated.Load())
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	first := f.login(t)

	require.NoError(t, f.api.Logout(context.Background()))
	assert.True(t, f.creds.Pair().Empty())
	assert.Equal(t, session.LOGIN_PATH, f.navigated.Load())

	_, err := f.backend.Tokens().Rotate(first.Refresh)
	assert.ErrorIs(t, err, jwt.ErrBlacklisted)

	assert.ErrorIs(t, f.api.Logout(context.Background()), studyapi.ErrNotLoggedIn)
}

func TestAPIErrorIs(t *testing.T) {
	err := &studyapi.APIError{StatusCode: 503, Body: "down"}
	assert.ErrorIs(t, err, studyapi.ErrServer)
	assert.NotErrorIs(t, err, studyapi.ErrNotFound)
	assert.Contains(t, err.Error(), "503 Service Unavailable: down")
}
