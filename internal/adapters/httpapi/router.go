package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterOptions struct {
	// Logger is attached to every request context; defaults to slog.Default().
	Logger *slog.Logger
	// Metrics receives per-request latency; nil disables it.
	Metrics RequestObserver
	// MetricsHandler is mounted at /metrics when set (promhttp in production).
	MetricsHandler http.Handler
	// CORSOrigins is the allow-list for browser clients on other origins.
	CORSOrigins []string
	// StaticDir serves the browser UI under /static/ when set.
	StaticDir string
}

// NewRouter constructs the API HTTP router.
func NewRouter(api *Server) http.Handler {
	return NewRouterWithOptions(api, RouterOptions{})
}

func NewRouterWithOptions(api *Server, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(withRequestLogger(logger))
	r.Use(requestLogger(opts.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors(opts.CORSOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, codeNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, codeMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/static/index.html", http.StatusTemporaryRedirect)
	})
	if opts.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	r.Route("/activities", func(r chi.Router) {
		r.Get("/", api.ListActivities)
		r.Get("/{name}", api.GetActivity)
		r.Post("/{name}/signup", api.Signup)
		r.Delete("/{name}/unregister", api.Unregister)
	})
	return r
}
