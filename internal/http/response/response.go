// Package response writes JSON bodies for handlers that live outside the
// typed API: file downloads, the event stream and middleware.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/inkwellpress/inkwell/internal/errors"
)

// ErrorBody is the error payload shared with the typed API.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes data with the given status code.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil && logger != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

// Error writes err as an ErrorBody. The status comes from the error code and
// the message is the user-facing one; internal failures are logged.
func Error(w http.ResponseWriter, err error, logger *slog.Logger) {
	code := errors.CodeOf(err)
	body := ErrorBody{
		Code:    string(code),
		Message: errors.UserMessage(err),
	}

	var domainErr *errors.Error
	if errors.As(err, &domainErr) {
		body.Details = domainErr.Details
	}

	if code == errors.CodeInternal && logger != nil {
		logger.Error("Unhandled error", "error", err)
	}
	JSON(w, code.HTTPStatus(), body, logger)
}

// TooManyRequests writes a 429 response.
func TooManyRequests(w http.ResponseWriter, message string, logger *slog.Logger) {
	JSON(w, http.StatusTooManyRequests, ErrorBody{
		Code:    string(errors.CodeRateLimited),
		Message: message,
	}, logger)
}

// MethodNotAllowed writes a 405 response.
func MethodNotAllowed(w http.ResponseWriter, logger *slog.Logger) {
	JSON(w, http.StatusMethodNotAllowed, ErrorBody{
		Code:    string(errors.CodeValidation),
		Message: "method not allowed",
	}, logger)
}
