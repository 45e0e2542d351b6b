package response

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Envelope is the standard body of platform responses.
type Envelope struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
}

func JSON(w http.ResponseWriter, responseCode int, data any) error {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(responseCode)
	return json.NewEncoder(w).Encode(data)
}

func Err(w http.ResponseWriter, err Error, msg string) error {
	respErr, ok := Errors[err]
	if !ok {
		return fmt.Errorf("REST error response not found: %s", err)
	}
	respErr.Details = msg
	return JSON(w, respErr.Code, respErr)
}

// Standard writes data wrapped in an Envelope.
func Standard(w http.ResponseWriter, responseCode int, code, message string, data any) error {
	return JSON(w, responseCode, Envelope{
		Success:    responseCode >= 200 && responseCode < 300,
		Message:    message,
		Data:       data,
		StatusCode: responseCode,
		Code:       code,
	})
}
