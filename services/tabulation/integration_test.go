package tabulation_test

import (
	"os"
	"testing"
)

// Exercises series/match creation, allocation, ballot submission and
// aggregation against a real Postgres instance. Requires external
// services and is skipped by default.
func TestIntegrationSkipByDefault(t *testing.T) {
	if os.Getenv("RUN_TABULATION_INTEGRATION") != "1" {
		t.Skip("integration tests skipped; set RUN_TABULATION_INTEGRATION=1 and point DATABASE_URL at a real Postgres to run")
	}
}
