// Package guard is blank-imported by tests that build full handlers. It puts
// the process in test mode and points outbound services at unroutable
// addresses so nothing reaches a real Gotenberg during a test run.
package guard

import "os"

func init() {
	setDefault("AGENCY_TEST_MODE", "1")
	setDefault("GOTENBERG_URL", "http://127.0.0.1:0")
}

func setDefault(key, value string) {
	if _, ok := os.LookupEnv(key); !ok {
		_ = os.Setenv(key, value)
	}
}
