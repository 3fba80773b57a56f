package pgdb

import (
	"context"
	_ "embed"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the shared schema. It is idempotent (every statement
// is CREATE ... IF NOT EXISTS or guarded with a duplicate_object catch)
// so every service can call it safely on startup without a dedicated
// migration tool, which is explicitly out of scope.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}
