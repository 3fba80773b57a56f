// Command tabrelactl is a break-glass operator CLI. promote-admin grants
// admin status by writing to the database directly rather than through
// any one service's HTTP API — useful when no admin exists yet to call
// the in-app promote endpoint. health sends an HTTP GET to a service's
// /health endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/tabrela/tabrela/internal/pgdb"
)

func main() {
	root := &cobra.Command{
		Use:   "tabrelactl",
		Short: "Operator CLI for the tabrela backend",
	}
	root.AddCommand(newPromoteAdminCmd())
	root.AddCommand(newHealthCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newPromoteAdminCmd() *cobra.Command {
	var databaseURL string
	cmd := &cobra.Command{
		Use:   "promote-admin <username>",
		Short: "Grant admin status to a user by username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
			if databaseURL == "" {
				return errors.New("--database-url or DATABASE_URL is required")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			pool, err := pgdb.Open(ctx, databaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			var userID string
			err = pool.QueryRow(ctx, `SELECT id FROM users WHERE username = $1`, username).Scan(&userID)
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("no user named %q", username)
			}
			if err != nil {
				return fmt.Errorf("look up user: %w", err)
			}

			_, err = pool.Exec(ctx, `INSERT INTO admin_users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
			if err != nil {
				return fmt.Errorf("grant admin: %w", err)
			}

			fmt.Printf("%s is now an admin\n", username)
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (defaults to $DATABASE_URL)")
	return cmd
}

func newHealthCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check a service's /health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get(url)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
			}
			fmt.Println("ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "http://localhost:8081/health", "service health endpoint to check")
	return cmd
}
