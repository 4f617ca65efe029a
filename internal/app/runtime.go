package app

import (
	"os"
	"sync"
)

const testModeEnv = "PORTAL_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return os.Getenv(testModeEnv) == "1"
})

// InTestMode reports whether the process was started by go test. Binaries
// return early and LoadConfig skips .env files in that case.
func InTestMode() bool {
	return testMode()
}
