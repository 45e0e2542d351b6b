package studyapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/opinionlab/studyctl/pkg/rest/request"
	"github.com/opinionlab/studyctl/pkg/rest/request/client"
	"github.com/opinionlab/studyctl/pkg/studyapi/routes"
	"github.com/opinionlab/studyctl/pkg/validation"
)

const MAX_ERROR_BODY = 4096

type apiOption func(c *Client)

func WithLogger(logger *slog.Logger) apiOption {
	return func(c *Client) {
		c.log = logger
	}
}

// Client is the typed platform API. Every call goes through the authenticated
// HTTP client, so expired access credentials are refreshed transparently.
type Client struct {
	http       client.HTTPClient
	baseURL    string
	creds      client.CredentialStore
	terminator client.SessionTerminator
	validator  *validation.Validator
	log        *slog.Logger
}

func New(httpClient client.HTTPClient, baseURL string, creds client.CredentialStore, terminator client.SessionTerminator, opts ...apiOption) *Client {
	c := &Client{
		http:       httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		creds:      creds,
		terminator: terminator,
		validator:  validation.New(),
		log:        slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) builder(path string) *request.Builder {
	return request.NewBuilder(c.baseURL).URL(path)
}

// do sends the request built by b and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, b *request.Builder, out any) error {
	req, err := b.CTX(ctx).Build()
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MAX_ERROR_BODY))
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("unable to decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// Login authenticates with email and password and stores the issued credential pair.
func (c *Client) Login(ctx context.Context, payload LoginPayload) (LoginResponse, error) {
	if err := c.validator.Validate(payload); err != nil {
		return LoginResponse{}, err
	}

	var resp LoginResponse
	if err := c.do(ctx, c.builder(routes.AUTH_LOGIN).POST().Body(payload), &resp); err != nil {
		return LoginResponse{}, err
	}

	if err := c.creds.Set(resp.Access, resp.Refresh); err != nil {
		return LoginResponse{}, fmt.Errorf("unable to store credentials: %w", err)
	}

	c.log.InfoContext(ctx, "logged in", slog.String("user", resp.User.Email))
	return resp, nil
}

func (c *Client) Register(ctx context.Context, payload RegisterPayload) (DetailResponse, error) {
	if err := c.validator.Validate(payload); err != nil {
		return DetailResponse{}, err
	}

	var resp DetailResponse
	if err := c.do(ctx, c.builder(routes.AUTH_REGISTRATION).POST().Body(payload), &resp); err != nil {
		return DetailResponse{}, err
	}
	return resp, nil
}

// Logout revokes the refresh credential on the platform and ends the local
// session. The local session ends even when the platform call fails.
func (c *Client) Logout(ctx context.Context) error {
	refresh, ok := c.creds.Refresh()
	if !ok {
		c.terminator.Terminate(ctx, nil)
		return ErrNotLoggedIn
	}

	err := c.do(ctx, c.builder(routes.AUTH_LOGOUT).POST().Body(LogoutPayload{Refresh: refresh}), nil)
	if err != nil {
		c.log.WarnContext(ctx, "platform logout failed", slog.String("reason", err.Error()))
	}

	c.terminator.Terminate(ctx, nil)
	return err
}

func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var resp Envelope[[]Project]
	if err := c.do(ctx, c.builder(routes.PROJECT), &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) CreateProject(ctx context.Context, payload CreateProjectPayload) (CreatedProject, error) {
	if err := c.validator.Validate(payload); err != nil {
		return CreatedProject{}, err
	}

	var resp Envelope[CreatedProject]
	if err := c.do(ctx, c.builder(routes.PROJECT).POST().Body(payload), &resp); err != nil {
		return CreatedProject{}, err
	}
	return resp.Data, nil
}

func (c *Client) ListAIModels(ctx context.Context) ([]string, error) {
	var resp StandardResponse[[]string]
	if err := c.do(ctx, c.builder(routes.AI_MODELS), &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) ListSiliconPersons(ctx context.Context, projectID int) ([]SiliconPerson, error) {
	if projectID <= 0 {
		return nil, fmt.Errorf("%w: project id must be positive", ErrBadRequest)
	}

	var resp Envelope[[]SiliconPerson]
	b := c.builder(routes.SILICON_PERSON).WithURLParams(SiliconPersonQuery{ProjectID: projectID})
	if err := c.do(ctx, b, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
