package client

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const REQUEST_ID_HEADER = "X-Request-ID"

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}

// LogInterception logs every round trip and tags it with a request id.
type LogInterception struct {
	Transport http.RoundTripper
	logger    Logger
}

func (li *LogInterception) RoundTrip(req *http.Request) (*http.Response, error) {
	trip := li.Transport
	if trip == nil {
		trip = http.DefaultTransport
	}

	requestID := req.Header.Get(REQUEST_ID_HEADER)
	if requestID == "" {
		if id, err := uuid.NewV7(); err == nil {
			requestID = id.String()
			req = req.Clone(req.Context())
			req.Header.Set(REQUEST_ID_HEADER, requestID)
		}
	}

	start := time.Now()
	li.logger.Debug("making request", "request_id", requestID, "method", req.Method, "endpoint", req.URL.String())
	resp, err := trip.RoundTrip(req)
	if err != nil {
		li.logger.Error("request failed", "request_id", requestID, "reason", err.Error(), "method", req.Method, "endpoint", req.URL.String())
	} else {
		li.logger.Debug("request completed", "request_id", requestID, "status_code", resp.StatusCode, "endpoint", req.URL.String(), "took", time.Since(start))
	}

	return resp, err
}

func NewLogInterception(log Logger, base http.RoundTripper) http.RoundTripper {
	return &LogInterception{
		Transport: base,
		logger:    log,
	}
}
