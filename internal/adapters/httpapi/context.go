package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mergington/activities-api/internal/platform/logging"
)

// withRequestLogger stores a logger tagged with the request id in the request context,
// so services further down log against the same request.
func withRequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				logger = logger.With("request_id", rid)
			}
			next.ServeHTTP(w, r.WithContext(logging.WithLogger(r.Context(), logger)))
		})
	}
}
