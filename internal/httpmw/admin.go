package httpmw

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tabrela/tabrela/internal/apperr"
)

// AdminChecker resolves whether the caller identified in ctx (already
// populated by RequireAuth) is an admin. Auth implements this directly
// against admin_users; Attendance/Merit/Tabulation implement it via
// adminclient's HTTP callback.
type AdminChecker func(ctx context.Context, r *http.Request) (bool, error)

// RequireAdmin rejects non-admin callers with 403. It must run after
// RequireAuth so UserID(ctx) is populated.
func RequireAdmin(check AdminChecker, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserID(r.Context()); !ok {
				apperr.Write(w, log, apperr.Unauthorizedf("authentication required"))
				return
			}
			ok, err := check(r.Context(), r)
			if err != nil {
				apperr.Write(w, log, apperr.Internal(err))
				return
			}
			if !ok {
				apperr.Write(w, log, apperr.Forbiddenf("admin privileges required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
