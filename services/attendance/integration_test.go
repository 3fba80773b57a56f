package attendance_test

import (
	"os"
	"testing"
)

// Exercises event CRUD, availability, check-in and the matrix endpoint
// against a real Postgres instance. Requires external services and is
// skipped by default.
func TestIntegrationSkipByDefault(t *testing.T) {
	if os.Getenv("RUN_ATTENDANCE_INTEGRATION") != "1" {
		t.Skip("integration tests skipped; set RUN_ATTENDANCE_INTEGRATION=1 and point DATABASE_URL at a real Postgres to run")
	}
}
