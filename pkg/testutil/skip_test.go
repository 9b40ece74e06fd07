package testutil

import "testing"

func TestRequireEnv(t *testing.T) {
	t.Setenv("WHERETRUCK_TEST_GATE", "  http://localhost:9200 ")
	if got := RequireEnv(t, "WHERETRUCK_TEST_GATE"); got != "http://localhost:9200" {
		t.Fatalf("RequireEnv = %q", got)
	}
}
