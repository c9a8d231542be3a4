// Package testing is imported for its side effects by binaries' tests: it
// switches the process into test mode before main runs.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

// testEnv holds the variables a posts binary needs to load its config
// without touching real infrastructure.
var testEnv = map[string]string{
	"POSTS_TEST_MODE": "1",
	"SECRET_KEY":      "posts-test-secret",
	"LOG_LEVEL":       "error",
	"DB_MIGRATE":      "false",
}

func ensureTestMode() {
	once.Do(func() {
		for key, value := range testEnv {
			if key != "POSTS_TEST_MODE" && os.Getenv(key) != "" {
				continue
			}
			_ = os.Setenv(key, value)
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
