package httpmw

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tabrela/tabrela/internal/apperr"
	"github.com/tabrela/tabrela/internal/authjwt"
)

type ctxKey string

const (
	ctxUserID   ctxKey = "user_id"
	ctxUsername ctxKey = "username"
)

// RequireAuth validates the Authorization bearer access token and
// attaches the caller's identity to the request context. It never
// queries the database; the token signature is the only trust anchor,
// per spec §2 ("validate JWTs locally using the shared signing secret").
func RequireAuth(jwtSvc *authjwt.Service, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticate(jwtSvc, r)
			if err != nil {
				apperr.Write(w, log, err)
				return
			}
			ctx := withIdentity(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches identity to the context when a valid bearer
// token is present, but never rejects an anonymous request. Used by
// the merit service's profile-visibility endpoint.
func OptionalAuth(jwtSvc *authjwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims, err := authenticate(jwtSvc, r); err == nil {
				r = r.WithContext(withIdentity(r.Context(), claims))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authenticate(jwtSvc *authjwt.Service, r *http.Request) (*authjwt.Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, apperr.Unauthorizedf("Authorization header required")
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return nil, apperr.Unauthorizedf("Authorization header must be a Bearer token")
	}
	token := header[len("Bearer "):]
	if token == "" {
		return nil, apperr.Unauthorizedf("token cannot be empty")
	}

	claims, err := jwtSvc.ValidateAccessToken(token)
	if err != nil {
		return nil, apperr.Unauthorizedf("invalid or expired token")
	}
	return claims, nil
}

func withIdentity(ctx context.Context, claims *authjwt.Claims) context.Context {
	userID, err := claims.UserID()
	if err != nil {
		return ctx
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxUsername, claims.Username)
	return ctx
}

// UserID returns the authenticated caller's ID, or false if anonymous.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ctxUserID).(uuid.UUID)
	return v, ok
}

// Username returns the authenticated caller's username, or "" if anonymous.
func Username(ctx context.Context) string {
	v, _ := ctx.Value(ctxUsername).(string)
	return v
}
