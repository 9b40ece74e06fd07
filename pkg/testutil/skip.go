// Package testutil holds fakes and gates shared by wheretruck tests.
package testutil

import (
	"os"
	"strings"
	"testing"
)

// SearchURLEnv points integration tests at a live search cluster.
const SearchURLEnv = "WHERETRUCK_TEST_SEARCH_URL"

// RequireEnv returns the trimmed value of name, skipping the test in short
// mode or when the variable is unset.
func RequireEnv(t testing.TB, name string) string {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		t.Skipf("integration test skipped: %s is not set", name)
	}
	return v
}

// RequireSearchURL is RequireEnv for SearchURLEnv.
func RequireSearchURL(t testing.TB) string {
	t.Helper()
	return RequireEnv(t, SearchURLEnv)
}
