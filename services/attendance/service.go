package attendance

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tabrela/tabrela/internal/adminclient"
	"github.com/tabrela/tabrela/internal/authjwt"
	"github.com/tabrela/tabrela/internal/httpmw"
)

// NewRouter builds the Attendance service's chi router. Admin status is
// resolved via the HTTP callback to Auth (internal/adminclient), never
// by querying admin_users directly — the uniform choice spec §9 asks
// re-implementers to make.
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
		token := req.Header.Get("Authorization")
		if len(token) > 7 {
			token = token[7:]
		}
		return admin.IsAdmin(ctx, token, userID.String())
	}
	csrfValidate := func(ctx context.Context, token string) (bool, error) {
		return h.repo.IsCSRFTokenValid(ctx, token)
	}

	r.Group(func(r chi.Router) {
		r.Use(httpmw.RequireAuth(jwtSvc, log))
		r.Use(httpmw.RequireCSRF(csrfValidate, log))

		// User-facing operations (spec §4.2): set availability, read
		// own record, view an event's attendance, view the matrix.
		r.Get("/events/{id}/my-attendance", h.MyAttendance)
		r.Post("/events/{id}/availability", h.SetAvailability)
		r.Get("/events/{id}/attendance", h.EventAttendance)
		r.Get("/attendance/matrix", h.Matrix)

		r.Group(func(r chi.Router) {
			r.Use(httpmw.RequireAdmin(adminCheck, log))
			r.Get("/events", h.ListEvents)
			r.Post("/events", h.CreateEvent)
			r.Get("/events/{id}", h.GetEvent)
			r.Patch("/events/{id}", h.UpdateEvent)
			r.Delete("/events/{id}", h.DeleteEvent)
			r.Post("/events/{id}/lock", h.LockEvent)
			r.Post("/events/{id}/check-in", h.CheckIn)
			r.Post("/events/{id}/revoke", h.Revoke)
		})
	})

	return r
}
