package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/praiagrande/sst-portal/testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CSRF_SECRET", "csrf-secret")
	t.Setenv("N8N_INTERNAL_TOKEN", "internal")
	t.Setenv("N8N_AUTH_LOGIN_URL", "http://n8n.local/webhook/login")
	t.Setenv("N8N_AUTH_REGISTER_URL", "http://n8n.local/webhook/register")
	t.Setenv("N8N_AUTH_ME", "http://n8n.local/webhook/me")
	t.Setenv("N8N_AUTH_LOGOUT_URL", "http://n8n.local/webhook/logout")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, int64(20<<20), cfg.UploadMaxBytes)
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.SecureCookie())
	assert.False(t, cfg.ReportsEnabled())
	assert.Equal(t, "http://n8n.local/webhook/me", cfg.IdentityEndpoints().Me)
}

func TestLoadConfigRequiresAuthEndpoints(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("N8N_AUTH_ME", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "N8N_AUTH_ME")
}

func TestLoadConfigRejectsRelativeURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("N8N_LTCAT_URL", "/webhook/ltcat")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "N8N_LTCAT_URL")
}

func TestLoadConfigRejectsBadCookieFlag(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SESSION_COOKIE_SECURE", "sometimes")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestSecureCookieFollowsEnvironment(t *testing.T) {
	cfg := &Config{AppEnv: "production"}
	assert.True(t, cfg.SecureCookie())

	cfg.SessionCookieSecure = "false"
	assert.False(t, cfg.SecureCookie())

	cfg = &Config{AppEnv: "development", SessionCookieSecure: "true"}
	assert.True(t, cfg.SecureCookie())
}

func TestReportEndpointsEnableReports(t *testing.T) {
	cfg := &Config{N8NPsychosocialURL: "http://n8n.local/webhook/arquivo"}
	assert.True(t, cfg.ReportsEnabled())
	assert.Equal(t, "http://n8n.local/webhook/arquivo", cfg.ReportEndpoints().Psychosocial)
}

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORTAL_DOTENV_A=from-file\nPORTAL_DOTENV_B=from-file\n"), 0o600))
	t.Setenv("PORTAL_DOTENV_A", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("PORTAL_DOTENV_B") })

	require.NoError(t, loadDotEnv(filepath.Join(dir, "missing.env"), path))

	assert.Equal(t, "from-env", os.Getenv("PORTAL_DOTENV_A"))
	assert.Equal(t, "from-file", os.Getenv("PORTAL_DOTENV_B"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestInTestMode(t *testing.T) {
	assert.True(t, InTestMode())
}
