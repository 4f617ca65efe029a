package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/praiagrande/sst-portal/internal/access"
	"github.com/praiagrande/sst-portal/internal/auth"
	"github.com/praiagrande/sst-portal/internal/mailing"
	"github.com/praiagrande/sst-portal/internal/observability"
	"github.com/praiagrande/sst-portal/internal/platform/httpx"
	"github.com/praiagrande/sst-portal/internal/shared"
	"github.com/praiagrande/sst-portal/report"
	"github.com/praiagrande/sst-portal/web"
)

// guardExempt bypass the route guard entirely.
var guardExempt = []string{"/static/", "/healthz", "/metrics", "/favicon.ico"}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger      *slog.Logger
	Config      *Config
	UIStore     *shared.UIStore
	CSRFManager *shared.CSRFManager
	Sessions    *auth.SessionMiddleware
	AuthHandler *auth.Handler

	MailingHandler *mailing.Handler
	ReportHandler  *report.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with portal defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:      params.Logger,
		Config:      params.Config,
		UIStore:     params.UIStore,
		CSRFManager: params.CSRFManager,
		Guard:       access.NewGuard(access.DefaultClassifier(), guardExempt...),
		Metrics:     params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			params.AuthHandler.MountAPIRoutes(r, params.Sessions.Handler)
		})
		r.Group(func(r chi.Router) {
			r.Use(params.Sessions.Handler)
			if params.MailingHandler != nil {
				params.MailingHandler.MountAPIRoutes(r)
			}
			if params.ReportHandler != nil {
				params.ReportHandler.MountAPIRoutes(r)
			}
		})
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			httpx.Error(w, http.StatusNotFound, "Not found")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), r.Method+" "+r.URL.Path)
		})
	})

	params.AuthHandler.MountPublicPages(r)
	r.Group(func(r chi.Router) {
		r.Use(params.Sessions.Handler)
		params.AuthHandler.MountPrivatePages(r)
		if params.MailingHandler != nil {
			params.MailingHandler.MountPages(r)
		}
		if params.ReportHandler != nil {
			params.ReportHandler.MountPages(r)
		}
	})

	fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(web.StaticFS())))
	r.Handle("/static/*", staticCacheHandler(fileServer))

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
