package tabulation

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tabrela/tabrela/internal/adminclient"
	"github.com/tabrela/tabrela/internal/authjwt"
	"github.com/tabrela/tabrela/internal/httpmw"
)

// NewRouter builds the Tabulation service's chi router. Admin status is
// resolved via the HTTP callback to Auth, the same uniform choice used
// by Attendance and Merit.
func NewRouter(h *Handlers, jwtSvc *authjwt.Service, admin *adminclient.Client, cfg Config, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(httpmw.CORS(cfg.CORSStrict, cfg.AllowedOrigins))
	r.Use(httpmw.SecurityHeaders)
	r.Use(httpmw.RequestID)
	r.Use(httpmw.AccessLog(log))

	r.Get("/health", h.Health)

	adminCheck := func(ctx context.Context, req *http.Request) (bool, error) {
		userID, ok := httpmw.UserID(ctx)
		if !ok {
			return false, nil
		}
		return admin.IsAdmin(ctx, bearerToken(req), userID.String())
	}
	csrfValidate := func(ctx context.Context, token string) (bool, error) {
		return h.repo.IsCSRFTokenValid(ctx, token)
	}

	r.Group(func(r chi.Router) {
		r.Use(httpmw.RequireAuth(jwtSvc, log))
		r.Use(httpmw.RequireCSRF(csrfValidate, log))

		r.Get("/series", h.ListSeries)
		r.Get("/series/{id}", h.GetSeries)
		r.Get("/matches", h.ListMatches)
		r.Get("/matches/{id}", h.GetMatch)
		r.Get("/matches/{id}/my-ballot", h.MyBallot)
		r.Post("/matches/{id}/submit-ballot", h.SubmitBallot)
		r.Post("/matches/{id}/submit-feedback", h.SubmitFeedback)
		r.Get("/users/{id}/performance", h.Performance)

		r.Group(func(r chi.Router) {
			r.Use(httpmw.RequireAdmin(adminCheck, log))

			r.Post("/admin/series", h.CreateSeries)
			r.Post("/admin/matches", h.CreateMatch)
			r.Patch("/admin/matches/{id}", h.UpdateMatch)
			r.Put("/admin/teams/{id}", h.UpdateTeam)
			r.Get("/admin/series/{id}/pool", h.Pool)

			r.Post("/admin/allocations", h.CreateAllocation)
			r.Put("/admin/allocations/{id}", h.UpdateAllocation)
			r.Delete("/admin/allocations/{id}", h.DeleteAllocation)
			r.Post("/admin/allocations/swap", h.SwapAllocations)

			r.Post("/admin/matches/{id}/release", h.Release)
			r.Get("/admin/matches/{id}/ballots", h.AdminMatchBallots)
			r.Get("/admin/matches/{id}/history", h.AllocationHistory)
		})
	})

	return r
}
