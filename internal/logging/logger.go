// Package logging configures log/slog for the service and derives loggers
// that carry request and upload context.
//
// Handlers never build loggers by hand. They start from FromContext, which
// picks up the request id set by chi's RequestID middleware, so every entry
// written while serving a request can be joined on request_id.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup installs the default logger writing to stdout.
//
// Level values: "debug", "info", "warn" (or "warning"), "error".
// Anything else, including "", logs at info.
// Format values: "json" selects the JSON handler; anything else is text.
//
// JSON suits log shippers in production; text is easier to read locally.
// Setup is called once from main after the config is loaded:
//
//	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
func Setup(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger writing to w with the same level and format rules
// as Setup. Tests use it to capture output:
//
//	var buf bytes.Buffer
//	slog.SetDefault(logging.New(&buf, "debug", "text"))
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// FromContext returns the default logger tagged with request_id when ctx
// carries chi's request id. Without one it returns slog.Default unchanged.
//
// Usage:
//
//	func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
//	    logger := logging.FromContext(r.Context())
//	    logger.Info("clearing products")
//	}
func FromContext(ctx context.Context) *slog.Logger {
	if id := middleware.GetReqID(ctx); id != "" {
		return slog.Default().With("request_id", id)
	}
	return slog.Default()
}

// WithFields returns FromContext(ctx) with args attached, for a logger that
// follows one operation through several steps.
//
// Usage:
//
//	logger := logging.WithFields(ctx, "user_id", userID, "market", market)
//	logger.Info("mapping saved")
//	logger.Debug("mapping groups reloaded", "groups", len(groups))
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}

// ForUpload returns the logger for one feed upload.
//
// Fields added on top of request_id:
//   - upload_id: id assigned by the service to the upload
//   - file: original file name
//   - user_id: uploading user
func ForUpload(ctx context.Context, uploadID, fileName string, userID int64) *slog.Logger {
	return WithFields(ctx,
		"upload_id", uploadID,
		"file", fileName,
		"user_id", userID,
	)
}
