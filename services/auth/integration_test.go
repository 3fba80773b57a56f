package auth_test

import (
	"os"
	"testing"
)

// Exercises registration, email-OTP verification, login and refresh
// against a real Postgres instance. Requires external services and is
// skipped by default.
func TestIntegrationSkipByDefault(t *testing.T) {
	if os.Getenv("RUN_AUTH_INTEGRATION") != "1" {
		t.Skip("integration tests skipped; set RUN_AUTH_INTEGRATION=1 and point DATABASE_URL at a real Postgres to run")
	}
}
