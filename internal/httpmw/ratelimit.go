package httpmw

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/tabrela/tabrela/internal/apperr"
)

// RateLimit caps each client IP to n requests per window on the routes
// it wraps. It replaces the teacher's Redis-backed limiter: spec §5
// forbids cross-request caches, so limiting is in-process and
// per-instance rather than shared across replicas.
func RateLimit(n int, window time.Duration, log zerolog.Logger) func(http.Handler) http.Handler {
	return httprate.Limit(
		n,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			apperr.Write(w, log, apperr.RateLimitf("too many requests, please try again later"))
		}),
	)
}
