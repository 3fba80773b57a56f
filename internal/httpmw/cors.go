// Package httpmw holds the middleware shared by all four services:
// CORS, security headers, request IDs, JWT/CSRF enforcement and admin
// gating — generalized from the teacher's middleware package.
package httpmw

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORSMode selects one of the three modes spec §6 describes.
type CORSMode int

const (
	// ModeStrict: credentials allowed, only the configured origins.
	ModeStrict CORSMode = iota
	// ModeWildcard: any origin, no credentials, any method/header.
	ModeWildcard
	// ModeSpecific: enumerated origins, any header, listed methods.
	ModeSpecific
)

// CORS builds the chi CORS middleware for the given mode and allowed
// origins. strict is chosen by CORS_STRICT_MODE; wildcard is chosen
// automatically when ALLOWED_ORIGINS is "*" and strict mode is off.
func CORS(strict bool, allowedOrigins []string) func(http.Handler) http.Handler {
	mode := ModeSpecific
	switch {
	case strict:
		mode = ModeStrict
	case len(allowedOrigins) == 1 && allowedOrigins[0] == "*":
		mode = ModeWildcard
	}

	switch mode {
	case ModeStrict:
		return cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "X-CSRF-Token"},
			AllowCredentials: true,
			MaxAge:           3600,
		})
	case ModeWildcard:
		return cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: false,
			MaxAge:           3600,
		})
	default: // ModeSpecific
		return cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           3600,
		})
	}
}
