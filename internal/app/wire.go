package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/praiagrande/sst-portal/internal/auth"
	"github.com/praiagrande/sst-portal/internal/identity"
	"github.com/praiagrande/sst-portal/internal/mailing"
	"github.com/praiagrande/sst-portal/internal/observability"
	"github.com/praiagrande/sst-portal/internal/shared"
	"github.com/praiagrande/sst-portal/internal/view"
	"github.com/praiagrande/sst-portal/internal/webhook"
	"github.com/praiagrande/sst-portal/report"
)

// Options tweaks NewHandler, mostly for tests.
type Options struct {
	// HTTPClient replaces the client used for webhook calls.
	HTTPClient *http.Client
	Metrics    *observability.Metrics
}

// NewHandler assembles every component and returns the root handler.
func NewHandler(cfg *Config, logger *slog.Logger, redisClient *redis.Client, opts Options) (http.Handler, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: config required")
	}
	if logger == nil {
		logger = NewLogger(cfg)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics()
	}

	templates, err := view.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	secureCookie := cfg.SecureCookie()
	uiStore := shared.NewUIStore(redisClient, cfg.UISessionTTL, secureCookie)
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	caller := webhook.NewCaller(cfg.N8NInternalToken, cfg.UpstreamTimeout, metrics).WithHTTPClient(opts.HTTPClient)

	identityClient := identity.NewClient(caller, cfg.IdentityEndpoints(), cfg.BcryptCost, logger.With(slog.String("component", "identity")))
	sessions := auth.NewSessionMiddleware(identityClient, logger, secureCookie)
	authHandler := auth.NewHandler(logger, identityClient, templates, csrfManager, secureCookie)

	params := RouterParams{
		Logger:      logger,
		Config:      cfg,
		UIStore:     uiStore,
		CSRFManager: csrfManager,
		Sessions:    sessions,
		AuthHandler: authHandler,
		Metrics:     metrics,
	}
	if cfg.N8NEmailURL != "" {
		svc := mailing.NewService(caller, cfg.N8NEmailURL, logger.With(slog.String("component", "mailing")))
		params.MailingHandler = mailing.NewHandler(logger, svc, templates, csrfManager)
	} else {
		logger.Warn("e-mail webhook not configured, dispatch pages disabled")
	}
	if cfg.ReportsEnabled() {
		client := report.NewClient(caller, cfg.ReportEndpoints())
		params.ReportHandler = report.NewHandler(client, logger, templates, csrfManager, cfg.UploadMaxBytes)
	} else {
		logger.Warn("document webhooks not configured, report pages disabled")
	}

	return NewRouter(params), nil
}
