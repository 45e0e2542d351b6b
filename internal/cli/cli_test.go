package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/opinionlab/studyctl/internal/config"
	"github.com/opinionlab/studyctl/internal/mockbackend"
	"github.com/opinionlab/studyctl/internal/output"
	"github.com/opinionlab/studyctl/pkg/auth/credentials"
	"github.com/opinionlab/studyctl/pkg/persistence/store/file"
	"github.com/opinionlab/studyctl/pkg/rest/request/client"
	"github.com/opinionlab/studyctl/pkg/studyapi"
	"github.com/opinionlab/studyctl/pkg/studyapi/routes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const (
	email    = "alice@example.com"
	password = "correct-horse"
)

type harness struct {
	baseURL    string
	storageDir string
	retries    string
}

func newHarness(t *testing.T, middleware ...func(http.Handler) http.Handler) *harness {
	t.Helper()

	t.Setenv("SRV_ENV", "prod")
	t.Setenv("SRV_LOG_LEVEL", "error")
	t.Setenv("API_RATE_LIMIT", "0")
	t.Setenv("STORAGE_KEY", "")
	t.Setenv("STORAGE_REDIS_ADDR", "")

	backend, err := mockbackend.New([]byte("cli-secret"),
		mockbackend.WithLogger(slog.New(slog.DiscardHandler)),
		mockbackend.WithAccount("alice", email, password),
	)
	require.NoError(t, err)
	handler := backend.Handler()
	for _, m := range middleware {
		handler = m(handler)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &harness{baseURL: srv.URL, storageDir: t.TempDir(), retries: "0"}
}

func (h *harness) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	all := append([]string{}, args...)
	all = append(all, "--base-url", h.baseURL, "--storage-dir", h.storageDir, "--no-color", "--retries", h.retries)
	code := Execute(context.Background(), all, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	code, stdout, stderr := h.run(t, "login", "--email", email, "--password", password)
	require.Equal(t, output.ExitSuccess, code, stderr)
	require.Contains(t, stdout, "logged in as alice")
}

func TestSessionLifecycle(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	code, stdout, stderr := h.run(t, "projects", "create", "--title", "pricing study", "--description", "price elasticity")
	require.Equal(t, output.ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "created project")

	code, stdout, _ = h.run(t, "projects", "list")
	require.Equal(t, output.ExitSuccess, code)
	assert.Contains(t, stdout, "pricing study")

	code, stdout, _ = h.run(t, "status")
	require.Equal(t, output.ExitSuccess, code)
	assert.Contains(t, stdout, "access")
	assert.Contains(t, stdout, "valid")

	code, stdout, _ = h.run(t, "logout")
	require.Equal(t, output.ExitSuccess, code)
	assert.Contains(t, stdout, "logged out")

	code, stdout, _ = h.run(t, "status")
	require.Equal(t, output.ExitSuccess, code)
	assert.Contains(t, stdout, "not logged in")
}

func TestLoginWithWrongPassword(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run(t, "login", "--email", email, "--password", "wrong-password")
	assert.Equal(t, output.ExitAuthError, code)
	assert.Contains(t, stderr, "login failed")
}

func TestRejectedRefreshEndsSession(t *testing.T) {
	h := newHarness(t)

	store, err := file.NewStore[string](filepath.Join(h.storageDir, config.CREDENTIALS_FILE))
	require.NoError(t, err)
	require.NoError(t, store.Save(credentials.AccessKey, "stale-access"))
	require.NoError(t, store.Save(credentials.RefreshKey, "stale-refresh"))

	code, _, stderr := h.run(t, "projects", "list")
	assert.Equal(t, output.ExitAuthError, code)
	assert.Contains(t, stderr, "session expired")
	assert.Contains(t, stderr, "studyctl login")

	_, err = store.Load(credentials.AccessKey)
	assert.Error(t, err, "credentials are cleared")
}

func TestLogoutWithoutSession(t *testing.T) {
	h := newHarness(t)

	code, stdout, stderr := h.run(t, "logout")
	require.Equal(t, output.ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "not logged in")
	assert.NotContains(t, stderr, "session expired")
}

func TestAsCLIError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expired  bool
		summary  string
		exitCode int
	}{
		{"not logged in after navigation", studyapi.ErrNotLoggedIn, true, "not logged in", output.ExitAuthError},
		{"terminated session", fmt.Errorf("list: %w", client.ErrSessionTerminated), false, "session expired", output.ExitAuthError},
		{"rejected by platform after navigation", &studyapi.APIError{StatusCode: http.StatusBadRequest}, true, "request rejected by the platform", output.ExitGeneral},
		{"unclassified after navigation", errors.New("boom"), true, "session expired", output.ExitAuthError},
		{"unclassified", errors.New("boom"), false, "boom", output.ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cliErr := asCLIError(tt.err, tt.expired)
			assert.Equal(t, tt.summary, cliErr.Summary)
			assert.Equal(t, tt.exitCode, cliErr.ExitCode)
		})
	}
}

func TestRetriesTransientFailures(t *testing.T) {
	var failures atomic.Int32
	h := newHarness(t, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet && r.URL.Path == routes.AI_MODELS && failures.Add(1) <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	h.login(t)

	h.retries = "2"
	code, stdout, stderr := h.run(t, "models")
	require.Equal(t, output.ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "gpt-5-mini")
	assert.EqualValues(t, 3, failures.Load())
}

func TestDashboard(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	code, _, stderr := h.run(t, "projects", "create", "--title", "ballot study", "--description", "turnout")
	require.Equal(t, output.ExitSuccess, code, stderr)

	code, stdout, stderr := h.run(t, "dashboard")
	require.Equal(t, output.ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "1 projects")
	assert.Contains(t, stdout, "ballot study")
	assert.Contains(t, stdout, "gpt-5-mini")
}

func TestNotLoggedIn(t *testing.T) {
	h := newHarness(t)

	code, _, stderr := h.run(t, "models")
	assert.Equal(t, output.ExitAuthError, code)
	assert.Contains(t, stderr, "session expired")
}

func TestCostFromQuestions(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	code, stdout, stderr := h.run(t, "cost", "--model", "gpt-5-mini", "--people", "10",
		"-q", "Do you own a car?", "-q", "How often do you travel?")
	require.Equal(t, output.ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "10 silicon people x 2 questions = 20 requests")
	assert.Contains(t, stdout, "$")
}

func TestCostValidation(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	code, _, _ := h.run(t, "cost", "--model", "gpt-5-mini", "--people", "0", "-q", "why?")
	assert.Equal(t, output.ExitUsageError, code)
}

func TestCostFromFile(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	path := filepath.Join(t.TempDir(), "questions.csv")
	require.NoError(t, os.WriteFile(path, []byte("Do you own a car?\nHow often do you travel?\n"), 0o600))

	code, stdout, stderr := h.run(t, "cost", "--model", "gpt-5-mini", "--people", "3", "--file", path)
	require.Equal(t, output.ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "3 silicon people x 2 questions = 6 requests")
}

func TestCostFromWorkbook(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	f := excelize.NewFile()
	t.Cleanup(func() { f.Close() })
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "Do you own a car?"))
	require.NoError(t, f.SetCellValue(sheet, "A2", "How often do you travel?"))
	require.NoError(t, f.SetCellValue(sheet, "A3", "Would you move abroad?"))
	path := filepath.Join(t.TempDir(), "questions.xlsx")
	require.NoError(t, f.SaveAs(path))

	code, stdout, stderr := h.run(t, "cost", "--model", "gpt-4o", "--people", "2", "--file", path)
	require.Equal(t, output.ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "2 silicon people x 3 questions = 6 requests")
}

func TestPing(t *testing.T) {
	h := newHarness(t)

	code, stdout, stderr := h.run(t, "ping", "--count", "2", "--interval", "1ms")
	require.Equal(t, output.ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "2/2 succeeded")
}

func TestPingUnreachable(t *testing.T) {
	h := newHarness(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	h.baseURL = "http://" + listener.Addr().String()
	listener.Close()

	code, stdout, _ := h.run(t, "ping", "--type", "tcp-full", "--count", "1")
	assert.Equal(t, output.ExitUnreachable, code)
	assert.Contains(t, stdout, "0/1 succeeded")
}

func TestMetricsFile(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	metricsFile := filepath.Join(t.TempDir(), "client.prom")
	code, _, stderr := h.run(t, "projects", "list", "--metrics-file", metricsFile)
	require.Equal(t, output.ExitSuccess, code, stderr)

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "studyctl_client_session_terminations_total"))
}

func TestInvalidConfiguration(t *testing.T) {
	h := newHarness(t)
	t.Setenv("SRV_LOG_LEVEL", "chatty")

	code, _, stderr := h.run(t, "status")
	assert.Equal(t, output.ExitConfigError, code)
	assert.Contains(t, stderr, "invalid configuration")
}

func TestReadLine(t *testing.T) {
	line, err := readLine(strings.NewReader("secret123\nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "secret123", line)

	line, err = readLine(strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", line)
}
