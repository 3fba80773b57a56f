package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tabrela/tabrela/internal/httpmw"
)

// NewRouter builds the Auth service's chi router with the full
// middleware chain: CORS, security headers, request id and access
// logging ambient to every route; CSRF and auth/admin gates applied
// per route group, following the teacher's route-grouping shape.
func NewRouter(h *Handlers, cfg Config, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(httpmw.CORS(cfg.CORSStrict, cfg.AllowedOrigins))
	r.Use(httpmw.SecurityHeaders)
	r.Use(httpmw.RequestID)
	r.Use(httpmw.AccessLog(log))

	csrfValidate := func(ctx context.Context, token string) (bool, error) {
		return h.repo.IsCSRFTokenValid(ctx, token)
	}
	authLimiter := httpmw.RateLimit(10, time.Minute, log)

	r.Get("/health", h.Health)
	r.Get("/csrf-token", h.CSRFToken)

	r.Group(func(r chi.Router) {
		r.Use(authLimiter)
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/resend-verification", h.ResendVerification)
		r.Post("/request-password-reset", h.RequestPasswordReset)
		r.Post("/reset-password", h.ResetPassword)
	})
	r.Post("/verify-email", h.VerifyEmail)
	r.Post("/verify-otp", h.VerifyEmail)

	r.Group(func(r chi.Router) {
		r.Use(httpmw.RequireCSRF(csrfValidate, log))
		r.Post("/refresh", h.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(httpmw.RequireAuth(h.jwt, log))
			r.Post("/logout", h.Logout)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(httpmw.RequireAuth(h.jwt, log))
		r.Get("/me", h.Me)

		adminCheck := func(ctx context.Context, req *http.Request) (bool, error) {
			userID, ok := httpmw.UserID(ctx)
			if !ok {
				return false, nil
			}
			return h.repo.IsAdmin(ctx, userID)
		}

		r.Route("/admin", func(r chi.Router) {
			r.Get("/check", h.AdminCheck)

			r.Group(func(r chi.Router) {
				r.Use(httpmw.RequireAdmin(adminCheck, log))
				r.Use(httpmw.RequireCSRF(csrfValidate, log))
				r.Get("/users", h.AdminUsers)
				r.Post("/promote", h.AdminPromote)
				r.Post("/demote", h.AdminDemote)
			})
		})
	})

	return r
}

// StartExpiredTokenSweep registers the background cron job that deletes
// expired email-verification, password-reset, CSRF and refresh token
// rows every hour, an ambient hygiene job the original Rust services
// leave to Postgres row accretion.
func StartExpiredTokenSweep(repo *Repo, log zerolog.Logger) *cron.Cron {
	c := cron.New()
	_, err := c.AddFunc("@hourly", func() {
		if err := repo.SweepExpiredTokens(context.Background()); err != nil {
			log.Error().Err(err).Msg("expired token sweep failed")
		}
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to schedule expired token sweep")
	}
	c.Start()
	return c
}
