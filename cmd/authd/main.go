// Command authd runs the Auth service: registration, login, JWT
// issuance, CSRF, email verification, password reset and the admin
// roster.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tabrela/tabrela/internal/authjwt"
	"github.com/tabrela/tabrela/internal/obslog"
	"github.com/tabrela/tabrela/internal/pgdb"
	"github.com/tabrela/tabrela/services/auth"
)

func main() {
	cfg := auth.LoadConfig()
	log := obslog.New("auth", cfg.Env)

	log.Info().Str("env", cfg.Env).Msg("auth service starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := pgdb.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := pgdb.Migrate(migrateCtx, pool); err != nil {
		migrateCancel()
		log.Fatal().Err(err).Msg("schema migration failed")
	}
	migrateCancel()

	repo := auth.NewRepo(pool)
	jwtSvc := authjwt.New(cfg.JWTSecret, int(cfg.JWTAccessTokenExpiry.Seconds()), int(cfg.JWTRefreshTokenExpiry.Seconds()))
	emailClient := auth.NewEmailClient(cfg.EmailServiceURL, cfg.EmailServiceAPIKey, log)
	handlers := auth.NewHandlers(repo, jwtSvc, emailClient, cfg, log)

	router := auth.NewRouter(handlers, cfg, log)
	sweep := auth.StartExpiredTokenSweep(repo, log)
	defer sweep.Stop()

	srv := &http.Server{
		Addr:         cfg.Host + ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("auth service listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-done
	log.Info().Msg("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
	log.Info().Msg("auth service stopped gracefully")
}
