package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/praiagrande/sst-portal/internal/identity"
	"github.com/praiagrande/sst-portal/report"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"30s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"120s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"110s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	RedisAddr    string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	UISessionTTL time.Duration `envconfig:"UI_SESSION_TTL" default:"12h"`
	CSRFSecret   string        `envconfig:"CSRF_SECRET" required:"true"`

	// SessionCookieSecure overrides the Secure attribute; empty follows AppEnv.
	SessionCookieSecure string `envconfig:"SESSION_COOKIE_SECURE"`

	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`

	N8NInternalToken    string        `envconfig:"N8N_INTERNAL_TOKEN" required:"true"`
	N8NAuthLoginURL     string        `envconfig:"N8N_AUTH_LOGIN_URL"`
	N8NAuthRegisterURL  string        `envconfig:"N8N_AUTH_REGISTER_URL"`
	N8NAuthMeURL        string        `envconfig:"N8N_AUTH_ME"`
	N8NAuthLogoutURL    string        `envconfig:"N8N_AUTH_LOGOUT_URL"`
	N8NEmailURL         string        `envconfig:"N8N_EMAIL_ACESSO_QUEST_URL"`
	N8NLTCATURL         string        `envconfig:"N8N_LTCAT_URL"`
	N8NLTCATDocxURL     string        `envconfig:"N8N_LTCAT_DOCX_URL"`
	N8NPsychosocialURL  string        `envconfig:"N8N_RECEBE_ARQUIVO_URL"`
	UpstreamTimeout     time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"90s"`
	BcryptCost          int           `envconfig:"BCRYPT_COST" default:"10"`
	UploadMaxBytes      int64         `envconfig:"UPLOAD_MAX_BYTES" default:"20971520"`
}

// dotenvFiles are loaded in order; variables already set are never overridden.
var dotenvFiles = []string{".env.local", ".env"}

// LoadConfig reads .env files when present, then the environment.
func LoadConfig() (*Config, error) {
	if !InTestMode() {
		if err := loadDotEnv(dotenvFiles...); err != nil {
			return nil, err
		}
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(files ...string) error {
	for _, name := range files {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

func (c *Config) validate() error {
	if c.CSRFSecret == "" {
		return errors.New("csrf secret must be provided")
	}
	if c.N8NInternalToken == "" {
		return errors.New("n8n internal token must be provided")
	}
	required := map[string]string{
		"N8N_AUTH_LOGIN_URL":    c.N8NAuthLoginURL,
		"N8N_AUTH_REGISTER_URL": c.N8NAuthRegisterURL,
		"N8N_AUTH_ME":           c.N8NAuthMeURL,
		"N8N_AUTH_LOGOUT_URL":   c.N8NAuthLogoutURL,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s must be provided", name)
		}
	}
	optional := map[string]string{
		"N8N_EMAIL_ACESSO_QUEST_URL": c.N8NEmailURL,
		"N8N_LTCAT_URL":              c.N8NLTCATURL,
		"N8N_LTCAT_DOCX_URL":         c.N8NLTCATDocxURL,
		"N8N_RECEBE_ARQUIVO_URL":     c.N8NPsychosocialURL,
	}
	for name, value := range required {
		optional[name] = value
	}
	for name, value := range optional {
		if value == "" {
			continue
		}
		u, err := url.Parse(value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an absolute http(s) URL", name)
		}
	}
	if c.SessionCookieSecure != "" {
		if _, err := strconv.ParseBool(c.SessionCookieSecure); err != nil {
			return fmt.Errorf("SESSION_COOKIE_SECURE: %w", err)
		}
	}
	if c.UploadMaxBytes <= 0 {
		return errors.New("upload limit must be positive")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// SecureCookie reports whether cookies carry the Secure attribute.
func (c *Config) SecureCookie() bool {
	if c == nil {
		return false
	}
	if c.SessionCookieSecure != "" {
		secure, err := strconv.ParseBool(c.SessionCookieSecure)
		return err == nil && secure
	}
	return c.IsProduction()
}

// IdentityEndpoints returns the identity service URLs.
func (c *Config) IdentityEndpoints() identity.Endpoints {
	return identity.Endpoints{
		Login:    c.N8NAuthLoginURL,
		Register: c.N8NAuthRegisterURL,
		Me:       c.N8NAuthMeURL,
		Logout:   c.N8NAuthLogoutURL,
	}
}

// ReportEndpoints returns the document webhook URLs.
func (c *Config) ReportEndpoints() report.Endpoints {
	return report.Endpoints{
		LTCAT:        c.N8NLTCATURL,
		LTCATDocx:    c.N8NLTCATDocxURL,
		Psychosocial: c.N8NPsychosocialURL,
	}
}

// ReportsEnabled reports whether any document webhook is configured.
func (c *Config) ReportsEnabled() bool {
	return c.N8NLTCATURL != "" || c.N8NLTCATDocxURL != "" || c.N8NPsychosocialURL != ""
}
