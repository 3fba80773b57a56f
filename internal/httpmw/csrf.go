package httpmw

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tabrela/tabrela/internal/apperr"
)

const csrfHeader = "X-CSRF-Token"

// csrfExemptSuffixes mirrors the original csrf_protection_middleware's
// whitelist: endpoints reachable before a session exists never require
// a CSRF token.
var csrfExemptSuffixes = []string{
	"/register",
	"/login",
	"/verify-email",
	"/verify-otp",
	"/resend-verification",
	"/request-password-reset",
	"/reset-password",
	"/csrf-token",
}

// CSRFValidator looks up a raw CSRF token and reports whether it is
// live (unexpired). Each service backs this with its own csrf_tokens
// table query.
type CSRFValidator func(ctx context.Context, token string) (bool, error)

// RequireCSRF enforces the X-CSRF-Token header on state-changing
// requests, except the whitelisted unauthenticated endpoints.
func RequireCSRF(validate CSRFValidator, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isStateChanging(r.Method) || isExempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token := r.Header.Get(csrfHeader)
			if token == "" {
				apperr.Write(w, log, apperr.Forbiddenf("CSRF token missing"))
				return
			}

			valid, err := validate(r.Context(), token)
			if err != nil {
				apperr.Write(w, log, apperr.Internal(err))
				return
			}
			if !valid {
				apperr.Write(w, log, apperr.Forbiddenf("Invalid or expired CSRF token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isStateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func isExempt(path string) bool {
	for _, suffix := range csrfExemptSuffixes {
		if hasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

func hasSuffix(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	return s[len(s)-len(suffix):] == suffix
}
