// Package guard switches the binaries into test mode. Test packages that
// build the entrypoints import it for its side effect.
package guard

import (
	"os"
	"sync"
)

// Env is the variable app.InTestMode reads.
const Env = "PRODUCTSHEET_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(Env) == "" {
			_ = os.Setenv(Env, "1")
		}
	})
}
