package studyapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrBadRequest     = errors.New("bad request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrServer         = errors.New("server error")
	ErrQuestionSource = errors.New("provide exactly one source for questions: a list or a file")
	ErrNotLoggedIn    = errors.New("not logged in")
)

// APIError is a non-2xx response of the platform.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("platform responded with %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("platform responded with %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrBadRequest:
		return e.StatusCode == http.StatusBadRequest
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrServer:
		return e.StatusCode >= http.StatusInternalServerError
	}
	return false
}
