package mockbackend

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opinionlab/studyctl/pkg/auth/credentials"
	"github.com/opinionlab/studyctl/pkg/auth/jwt"
	"github.com/opinionlab/studyctl/pkg/studyapi"
	"github.com/opinionlab/studyctl/pkg/studyapi/routes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "correct-horse"
)

func newTestServer(t *testing.T, opts ...ServerOption) (*Server, *httptest.Server) {
	t.Helper()

	opts = append([]ServerOption{
		WithLogger(slog.New(slog.DiscardHandler)),
		WithAccount("alice", testEmail, testPassword),
	}, opts...)
	s, err := New([]byte("test-secret"), opts...)
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv
}

func call(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func login(t *testing.T, srv *httptest.Server) studyapi.LoginResponse {
	t.Helper()
	resp := call(t, http.MethodPost, srv.URL+routes.AUTH_LOGIN, "", studyapi.LoginPayload{Email: testEmail, Password: testPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeBody[studyapi.LoginResponse](t, resp)
}

func TestLogin(t *testing.T) {
	_, srv := newTestServer(t)

	got := login(t, srv)
	assert.NotEmpty(t, got.Access)
	assert.NotEmpty(t, got.Refresh)
	assert.Equal(t, studyapi.User{PK: 1, Email: testEmail, Username: "alice"}, got.User)

	resp := call(t, http.MethodPost, srv.URL+routes.AUTH_LOGIN, "", studyapi.LoginPayload{Email: testEmail, Password: "wrong"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegistration(t *testing.T) {
	_, srv := newTestServer(t)

	payload := studyapi.RegisterPayload{Username: "bob", Email: "bob@example.com", Password1: "s3cretpass", Password2: "s3cretpass"}
	resp := call(t, http.MethodPost, srv.URL+routes.AUTH_REGISTRATION, "", payload)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = call(t, http.MethodPost, srv.URL+routes.AUTH_REGISTRATION, "", payload)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeBody[map[string][]string](t, resp), "email")

	payload.Email, payload.Password2 = "carol@example.com", "mismatch"
	resp = call(t, http.MethodPost, srv.URL+routes.AUTH_REGISTRATION, "", payload)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeBody[map[string][]string](t, resp), "password2")
}

func TestRefreshRotatesAndBlacklists(t *testing.T) {
	_, srv := newTestServer(t)
	first := login(t, srv)

	resp := call(t, http.MethodPost, srv.URL+routes.AUTH_TOKEN_REFRESH, "", refreshRequest{Refresh: first.Refresh})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rotated := decodeBody[credentials.Pair](t, resp)
	assert.NotEqual(t, first.Refresh, rotated.Refresh)

	resp = call(t, http.MethodPost, srv.URL+routes.AUTH_TOKEN_REFRESH, "", refreshRequest{Refresh: first.Refresh})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "token_not_valid", decodeBody[jwt.JWTError](t, resp).Reason)

	resp = call(t, http.MethodGet, srv.URL+routes.PROJECT, rotated.Access, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExpiredAccessIsRefused(t *testing.T) {
	_, srv := newTestServer(t, WithTokenOptions(jwt.WithAccessLifetime(time.Millisecond)))
	pair := login(t, srv)

	time.Sleep(1100 * time.Millisecond) // expiry has second resolution
	resp := call(t, http.MethodGet, srv.URL+routes.PROJECT, pair.Access, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutBlacklistsRefresh(t *testing.T) {
	_, srv := newTestServer(t)
	pair := login(t, srv)

	resp := call(t, http.MethodPost, srv.URL+routes.AUTH_LOGOUT, "", refreshRequest{Refresh: pair.Refresh})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, http.MethodPost, srv.URL+routes.AUTH_TOKEN_REFRESH, "", refreshRequest{Refresh: pair.Refresh})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProjects(t *testing.T) {
	s, srv := newTestServer(t)
	pair := login(t, srv)

	resp := call(t, http.MethodGet, srv.URL+routes.PROJECT, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = call(t, http.MethodPost, srv.URL+routes.PROJECT, pair.Access, studyapi.CreateProjectPayload{Title: "Election", Description: "2024"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[studyapi.Envelope[studyapi.CreatedProject]](t, resp)
	assert.Equal(t, 1, created.Data.ProjectID)

	resp = call(t, http.MethodPost, srv.URL+routes.PROJECT, pair.Access, studyapi.CreateProjectPayload{Title: "Election"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, http.MethodGet, srv.URL+routes.PROJECT, pair.Access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody[studyapi.Envelope[[]studyapi.Project]](t, resp)
	require.Len(t, list.Data, 1)
	assert.Equal(t, studyapi.PROJECT_DRAFT, list.Data[0].Status)

	_, err := s.AddSiliconPerson(studyapi.SiliconPerson{Project: 1, Name: "respondent"})
	require.NoError(t, err)

	resp = call(t, http.MethodGet, srv.URL+routes.SILICON_PERSON+"?project_id=1", pair.Access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	persons := decodeBody[studyapi.Envelope[[]studyapi.SiliconPerson]](t, resp)
	require.Len(t, persons.Data, 1)
	assert.Equal(t, "respondent", persons.Data[0].Name)

	resp = call(t, http.MethodGet, srv.URL+routes.SILICON_PERSON, pair.Access, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = call(t, http.MethodGet, srv.URL+routes.SILICON_PERSON+"?project_id=99", pair.Access, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSiliconPersonsOfOtherUserAreForbidden(t *testing.T) {
	s, srv := newTestServer(t)
	_, err := s.Register("mallory", "mallory@example.com", "password123")
	require.NoError(t, err)

	owner := login(t, srv)
	call(t, http.MethodPost, srv.URL+routes.PROJECT, owner.Access, studyapi.CreateProjectPayload{Title: "Private"})

	resp := call(t, http.MethodPost, srv.URL+routes.AUTH_LOGIN, "", studyapi.LoginPayload{Email: "mallory@example.com", Password: "password123"})
	other := decodeBody[studyapi.LoginResponse](t, resp)

	resp = call(t, http.MethodGet, srv.URL+routes.SILICON_PERSON+"?project_id=1", other.Access, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAIModels(t *testing.T) {
	_, srv := newTestServer(t)
	pair := login(t, srv)

	resp := call(t, http.MethodGet, srv.URL+routes.AI_MODELS, pair.Access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[studyapi.StandardResponse[[]string]](t, resp)
	assert.Equal(t, "AI_MODELS_RETRIEVED", body.Code)
	assert.Equal(t, Models(), body.Data)
}

func TestTokenCostJSON(t *testing.T) {
	_, srv := newTestServer(t)
	pair := login(t, srv)

	payload := studyapi.TokenCostPayload{ModelName: "gpt-4o", NumSiliconPeople: 5, QuestionsList: []string{"Q1", "Q2"}}
	resp := call(t, http.MethodPost, srv.URL+routes.TOKEN_COST, pair.Access, payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[studyapi.StandardResponse[studyapi.TokenCost]](t, resp)
	assert.True(t, body.Success)
	assert.Equal(t, 10, body.Data.SimulationDetails.TotalRequests)

	payload.ModelName = "gpt-0"
	resp = call(t, http.MethodPost, srv.URL+routes.TOKEN_COST, pair.Access, payload)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	payload.ModelName, payload.QuestionsList = "gpt-4o", nil
	resp = call(t, http.MethodPost, srv.URL+routes.TOKEN_COST, pair.Access, payload)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTokenCostMultipart(t *testing.T) {
	_, srv := newTestServer(t)
	pair := login(t, srv)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("model_name", "gpt-4o-mini"))
	require.NoError(t, form.WriteField("num_silicon_people", "3"))
	part, err := form.CreateFormFile(studyapi.QUESTIONS_FILE_FIELD, "questions.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("Q1\nQ2\nQ3\n"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+routes.TOKEN_COST, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+pair.Access)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[studyapi.StandardResponse[studyapi.TokenCost]](t, resp)
	assert.Equal(t, 3, body.Data.SimulationDetails.NumQuestions)
	assert.Equal(t, 9, body.Data.SimulationDetails.TotalRequests)
}

func TestMetricsEndpoint(t *testing.T) {
	_, srv := newTestServer(t)
	login(t, srv)

	resp := call(t, http.MethodGet, srv.URL+routes.METRICS, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "studyctl_mock_requests_total"))
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}
