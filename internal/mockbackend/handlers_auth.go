package mockbackend

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/opinionlab/studyctl/internal/repositories/account"
	"github.com/opinionlab/studyctl/pkg/auth/jwt"
	"github.com/opinionlab/studyctl/pkg/persistence"
	"github.com/opinionlab/studyctl/pkg/rest/response"
	"github.com/opinionlab/studyctl/pkg/studyapi"
	"github.com/opinionlab/studyctl/pkg/validation"
)

type fieldErrors map[string][]string

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func decode(r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MAX_UPLOAD_SIZE)
	return json.NewDecoder(r.Body).Decode(dest)
}

// invalid writes validation failures keyed by field, as the platform does.
func invalid(w http.ResponseWriter, err error) {
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		body := make(fieldErrors, len(verr.Errors))
		for field, msg := range verr.Errors {
			body[field] = []string{msg}
		}
		response.JSON(w, http.StatusBadRequest, body)
		return
	}
	response.JSON(w, http.StatusBadRequest, fieldErrors{"non_field_errors": {err.Error()}})
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var payload studyapi.LoginPayload
	if err := decode(r, &payload); err != nil {
		response.Err(w, response.ErrInvalidInput, "malformed request body")
		return
	}
	if err := s.validator.Validate(payload); err != nil {
		invalid(w, err)
		return
	}

	acc, err := s.accounts.Read(payload.Email)
	if err == nil {
		err = acc.CheckPassword(payload.Password)
	}
	if err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			s.log.Info("login refused", slog.String("reason", err.Error()))
		}
		response.JSON(w, http.StatusBadRequest, fieldErrors{
			"non_field_errors": {"Unable to log in with provided credentials."},
		})
		return
	}

	pair, err := s.tokens.Issue(jwt.Subject{ID: acc.ID, Email: acc.Email})
	if err != nil {
		response.Err(w, response.ErrInternalError, "unable to issue credentials")
		s.log.Error("unable to issue credentials", slog.String("reason", err.Error()))
		return
	}

	response.JSON(w, http.StatusOK, studyapi.LoginResponse{
		Access:  pair.Access,
		Refresh: pair.Refresh,
		User:    acc.User(),
	})
}

func (s *Server) Registration(w http.ResponseWriter, r *http.Request) {
	var payload studyapi.RegisterPayload
	if err := decode(r, &payload); err != nil {
		response.Err(w, response.ErrInvalidInput, "malformed request body")
		return
	}
	if err := s.validator.Validate(payload); err != nil {
		invalid(w, err)
		return
	}

	_, err := s.Register(payload.Username, payload.Email, payload.Password1)
	switch {
	case errors.Is(err, account.ErrDuplicateEmail):
		response.JSON(w, http.StatusBadRequest, fieldErrors{"email": {err.Error()}})
		return
	case errors.Is(err, account.ErrDuplicateUsername):
		response.JSON(w, http.StatusBadRequest, fieldErrors{"username": {err.Error()}})
		return
	case err != nil:
		response.Err(w, response.ErrInternalError, "unable to register user")
		s.log.Error("unable to register user", slog.String("reason", err.Error()))
		return
	}

	response.JSON(w, http.StatusCreated, studyapi.DetailResponse{Detail: "Registration successful."})
}

// Logout blacklists the refresh token. It needs no access token.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	var payload refreshRequest
	if err := decode(r, &payload); err != nil || payload.Refresh == "" {
		response.JSON(w, http.StatusUnauthorized, studyapi.DetailResponse{
			Detail: "Refresh token was not included in request data.",
		})
		return
	}

	if err := s.tokens.Revoke(payload.Refresh); err != nil {
		s.log.Info("logout with unusable refresh token", slog.String("reason", err.Error()))
		resp := jwt.Errors[jwt.ErrTokenNotValid]
		response.JSON(w, resp.Code, resp)
		return
	}

	response.JSON(w, http.StatusOK, studyapi.DetailResponse{Detail: "Successfully logged out."})
}

// RefreshToken rotates the refresh token; the one sent is blacklisted.
func (s *Server) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var payload refreshRequest
	if err := decode(r, &payload); err != nil || payload.Refresh == "" {
		s.metrics.refreshes.WithLabelValues("invalid").Inc()
		response.JSON(w, http.StatusBadRequest, fieldErrors{"refresh": {"This field is required."}})
		return
	}

	pair, err := s.tokens.Rotate(payload.Refresh)
	if err != nil {
		s.metrics.refreshes.WithLabelValues("rejected").Inc()
		s.log.Info("token refresh refused", slog.String("reason", err.Error()))
		resp := jwt.Errors[jwt.ErrTokenNotValid]
		response.JSON(w, resp.Code, resp)
		return
	}

	s.metrics.refreshes.WithLabelValues("rotated").Inc()
	response.JSON(w, http.StatusOK, pair)
}
