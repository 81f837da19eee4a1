package app

import (
	"os"
	"strconv"
	"sync"
)

const testModeEnv = "AGENCY_TEST_MODE"

// InTestMode reports whether the binaries should return before touching
// Postgres, Redis or Gotenberg. The flag is read once per process.
var InTestMode = sync.OnceValue(func() bool {
	on, _ := strconv.ParseBool(os.Getenv(testModeEnv))
	return on
})
