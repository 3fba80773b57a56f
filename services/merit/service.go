package merit

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tabrela/tabrela/internal/adminclient"
	"github.com/tabrela/tabrela/internal/authjwt"
	"github.com/tabrela/tabrela/internal/httpmw"
)

// NewRouter builds the Merit service's chi router. Admin status is
// resolved via the HTTP callback to Auth, the same uniform choice used
// by Attendance.
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

	// Public profile lookup: visibility is derived inside the handler
	// from whatever identity OptionalAuth attaches, if any.
	r.Group(func(r chi.Router) {
		r.Use(httpmw.OptionalAuth(jwtSvc))
		r.Get("/users/{username}", h.Profile)
		r.Get("/users/{username}/awards", h.UserAwards)
	})

	r.Group(func(r chi.Router) {
		r.Use(httpmw.RequireAuth(jwtSvc, log))
		r.Use(httpmw.RequireCSRF(csrfValidate, log))

		r.Get("/merit/me", h.Me)
		r.Get("/merit/me/history", h.MeHistory)
		r.Get("/awards/me", h.MyAwards)
		r.Get("/awards/me/history", h.MyAwardHistory)

		r.Group(func(r chi.Router) {
			r.Use(httpmw.RequireAdmin(adminCheck, log))
			r.Post("/admin/merit", h.AdjustMerit)
			r.Get("/admin/merit", h.AdminList)
			r.Get("/admin/merit/{userID}", h.AdminUserMerit)
			r.Get("/admin/merit/{userID}/history", h.AdminMeritHistory)
			r.Post("/admin/awards", h.CreateAward)
			r.Patch("/admin/awards/{id}/upgrade", h.UpgradeAward)
			r.Put("/admin/awards/{id}", h.EditAward)
			r.Get("/admin/awards/{userID}/history", h.AdminAwardHistory)
		})
	})

	return r
}
