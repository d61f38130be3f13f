package web

// errors.go turns service errors into JSON responses.
//
// The technical error is logged with the request id; the client gets the
// user message from core.MapError so error text never leaks driver or
// file-system details.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/feeduploader/internal/core"
	"github.com/JonMunkholm/feeduploader/internal/feedfile"
	"github.com/JonMunkholm/feeduploader/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes its user message with statusCode.
// A statusCode of 0 derives the status from err.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	if statusCode == 0 {
		statusCode = statusFor(err)
	}
	ue := core.NewUserError(err)

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", ue.Technical.Error(),
		"code", ue.User.Code,
	}
	if statusCode >= 500 {
		logger.Error("request error", args...)
	} else {
		logger.Warn("request error", args...)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   ue.Error(),
		Message: ue.User.Message,
		Action:  ue.User.Action,
		Code:    ue.User.Code,
	})
}

// statusFor maps known errors to HTTP status codes.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrUserNotFound),
		errors.Is(err, core.ErrUploadNotFound),
		errors.Is(err, core.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrEmailExists):
		return http.StatusConflict
	case errors.Is(err, core.ErrEmptyFeed),
		errors.Is(err, core.ErrInvalidID),
		errors.Is(err, core.ErrUnsupportedSupplier),
		errors.Is(err, core.ErrInvalidMapping),
		errors.Is(err, core.ErrNoProducts),
		errors.Is(err, core.ErrInvalidAccount),
		errors.Is(err, feedfile.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrCatalogEmpty):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	// Decoder errors wrap library errors; fall back to the message code.
	code := core.MapError(err).Code
	if strings.HasPrefix(code, "FILE") || strings.HasPrefix(code, "FEED") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeJSON encodes v as JSON with status.
// Encoding errors are only logged since headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
