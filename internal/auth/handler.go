package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/praiagrande/sst-portal/internal/identity"
	"github.com/praiagrande/sst-portal/internal/platform/httpx"
	"github.com/praiagrande/sst-portal/internal/shared"
	"github.com/praiagrande/sst-portal/internal/view"
)

const (
	credentialRateLimit  = 10
	credentialRateWindow = time.Minute
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger       *slog.Logger
	gateway      Gateway
	templates    *view.Engine
	csrfManager  *shared.CSRFManager
	validator    *validator.Validate
	secureCookie bool
	limiter      func(http.Handler) http.Handler
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, gateway Gateway, templates *view.Engine, csrf *shared.CSRFManager, secureCookie bool) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:       logger,
		gateway:      gateway,
		templates:    templates,
		csrfManager:  csrf,
		validator:    newValidator(),
		secureCookie: secureCookie,
		limiter: httprate.Limit(credentialRateLimit, credentialRateWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				httpx.Error(w, http.StatusTooManyRequests, "Muitas tentativas, aguarde um minuto")
			}),
		),
	}
}

// MountAPIRoutes registers the JSON endpoints under /api/auth. sessions is
// applied to the routes that need the caller's identity.
func (h *Handler) MountAPIRoutes(r chi.Router, sessions func(http.Handler) http.Handler) {
	r.With(h.limiter).Post("/login", h.apiLogin)
	r.With(h.limiter).Post("/register", h.apiRegister)
	r.Post("/logout", h.apiLogout)
	r.With(sessions).Get("/me", h.apiMe)
}

func (h *Handler) apiLogin(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Dados inválidos")
		return
	}
	form.normalize()
	if errs := validationErrors(h.validator, form); len(errs) > 0 {
		httpx.Error(w, http.StatusBadRequest, firstError(errs))
		return
	}

	token, err := h.gateway.Authenticate(r.Context(), form.Email, form.Password)
	if err != nil {
		h.logFailure("login", err)
		httpx.Error(w, identity.StatusOf(err), identity.MessageOf(err))
		return
	}
	identity.SetSessionCookie(w, token, h.secureCookie)
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) apiRegister(w http.ResponseWriter, r *http.Request) {
	var form registerForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Dados inválidos")
		return
	}
	form.normalize()
	if errs := validationErrors(h.validator, form); len(errs) > 0 {
		httpx.Error(w, http.StatusBadRequest, firstError(errs))
		return
	}

	if err := h.gateway.Register(r.Context(), form.profile(), form.Password); err != nil {
		h.logFailure("register", err)
		httpx.Error(w, identity.StatusOf(err), identity.MessageOf(err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) apiLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.gateway.Logout(r.Context(), identity.TokenFromRequest(r)); err != nil {
		h.logger.Warn("upstream logout", slog.Any("error", err))
	}
	identity.ClearSessionCookie(w, h.secureCookie)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) apiMe(w http.ResponseWriter, r *http.Request) {
	httpx.NoStore(w)
	if identity.TokenFromRequest(r) == "" {
		httpx.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	ident, ok := CurrentIdentity(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "Invalid session")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]*identity.Identity{"user": ident})
}

func (h *Handler) logFailure(op string, err error) {
	switch identity.KindOf(err) {
	case identity.KindUpstreamUnavailable:
		h.logger.Error(op+" upstream unavailable", slog.Any("error", err))
	default:
		h.logger.Info(op+" rejected", slog.String("kind", identity.KindOf(err).String()), slog.Int("status", identity.StatusOf(err)))
	}
}

func (f registerForm) profile() identity.Profile {
	return identity.Profile{
		Email:     f.Email,
		Cargo:     f.Cargo,
		FirstName: f.FirstName,
		LastName:  f.LastName,
	}
}
