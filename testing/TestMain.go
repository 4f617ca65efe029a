// Package testing is imported for its side effects by test packages: it
// switches the portal into test mode before any package-level state reads
// the environment.
package testing

import (
	"os"
	stdtesting "testing"
)

// testEnv holds values applied only when the variable is unset.
var testEnv = map[string]string{
	"N8N_INTERNAL_TOKEN": "test-internal-token",
	"CSRF_SECRET":        "test-csrf-secret",
	"LOG_LEVEL":          "error",
}

func init() {
	_ = os.Setenv("PORTAL_TEST_MODE", "1")
	for key, value := range testEnv {
		if _, ok := os.LookupEnv(key); !ok {
			_ = os.Setenv(key, value)
		}
	}
}

// TestMain can be called from a package's own TestMain.
func TestMain(m *stdtesting.M) {
	os.Exit(m.Run())
}
