package app

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/praiagrande/sst-portal/internal/access"
	"github.com/praiagrande/sst-portal/internal/observability"
	"github.com/praiagrande/sst-portal/internal/platform/httpx"
	"github.com/praiagrande/sst-portal/internal/shared"
)

// statelessPrefixes never touch the UI state store.
var statelessPrefixes = []string{"/api/", "/static/", "/healthz", "/metrics", "/favicon.ico"}

const multipartMemory = 8 << 20

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger      *slog.Logger
	Config      *Config
	UIStore     *shared.UIStore
	CSRFManager *shared.CSRFManager
	Guard       *access.Guard
	Metrics     *observability.Metrics
}

type responseWriterWithCommit struct {
	http.ResponseWriter
	st            *shared.UIState
	store         *shared.UIStore
	ctx           context.Context
	logger        *slog.Logger
	headerWritten bool
}

func (w *responseWriterWithCommit) commit() {
	if w.headerWritten {
		return
	}
	w.headerWritten = true
	if err := w.store.Commit(w.ctx, w.ResponseWriter, w.st); err != nil {
		w.logger.Error("commit ui state", slog.Any("error", err))
	}
}

func (w *responseWriterWithCommit) WriteHeader(statusCode int) {
	w.commit()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWithCommit) Write(data []byte) (int, error) {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}

func (w *responseWriterWithCommit) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func stateless(path string) bool {
	for _, prefix := range statelessPrefixes {
		if path == strings.TrimSuffix(prefix, "/") || strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// UIStateMiddleware loads the flash/CSRF state for page requests and commits
// it just before the response headers go out.
func UIStateMiddleware(store *shared.UIStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if stateless(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			st, err := store.Load(ctx, r)
			if err != nil {
				logger.Error("failed to load ui state", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			ctx = shared.ContextWithUIState(ctx, st)
			wrapped := &responseWriterWithCommit{ResponseWriter: w, st: st, store: store, ctx: ctx, logger: logger}
			next.ServeHTTP(wrapped, r.WithContext(ctx))
			wrapped.commit()
		})
	}
}

// CSRFMiddleware verifies the token on unsafe page requests. JSON routes under
// /api rely on SameSite cookies instead. Bodies are capped at maxBody before
// the form is parsed.
func CSRFMiddleware(csrf *shared.CSRFManager, maxBody int64, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions || stateless(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			st := shared.UIStateFromContext(r.Context())
			if st == nil {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if maxBody > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBody)
			}
			if err := parseForm(r); err != nil {
				var maxErr *http.MaxBytesError
				if errors.As(err, &maxErr) {
					http.Error(w, "Arquivo muito grande.", http.StatusRequestEntityTooLarge)
					return
				}
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}
			token := r.PostFormValue(shared.CSRFFormField)
			if token == "" {
				token = r.Header.Get(shared.CSRFHeader)
			}
			if err := csrf.VerifyToken(st, token); err != nil {
				logger.Warn("csrf validation failed", slog.String("path", r.URL.Path), slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseForm(r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(multipartMemory)
	}
	return r.ParseForm()
}

// MiddlewareStack installs the portal middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		FeaturePolicy:         "none",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         cfg.Config == nil || !cfg.Config.IsProduction(),
	})

	timeout := 110 * time.Second
	rateLimit := 120
	var maxBody int64 = 20 << 20
	if cfg.Config != nil {
		if cfg.Config.AppRequestTimeout > 0 {
			timeout = cfg.Config.AppRequestTimeout
		}
		if cfg.Config.RateLimitPerMinute > 0 {
			rateLimit = cfg.Config.RateLimitPerMinute
		}
		// Form fields travel alongside the file.
		maxBody = cfg.Config.UploadMaxBytes + 1<<20
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, cfg.Metrics.Middleware)
	}
	middlewares = append(middlewares,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		middleware.Compress(5),
		httprate.Limit(rateLimit, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				httpx.Error(w, http.StatusTooManyRequests, "Muitas requisições")
			}),
		),
	)
	if cfg.Guard != nil {
		middlewares = append(middlewares, cfg.Guard.Middleware)
	}
	if cfg.UIStore != nil {
		middlewares = append(middlewares, UIStateMiddleware(cfg.UIStore, cfg.Logger))
	}
	if cfg.CSRFManager != nil {
		middlewares = append(middlewares, CSRFMiddleware(cfg.CSRFManager, maxBody, cfg.Logger))
	}
	return middlewares
}
