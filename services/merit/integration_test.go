package merit_test

import (
	"os"
	"testing"
)

// Exercises merit adjustment, award creation/upgrade and profile
// visibility against a real Postgres instance. Requires external
// services and is skipped by default.
func TestIntegrationSkipByDefault(t *testing.T) {
	if os.Getenv("RUN_MERIT_INTEGRATION") != "1" {
		t.Skip("integration tests skipped; set RUN_MERIT_INTEGRATION=1 and point DATABASE_URL at a real Postgres to run")
	}
}
