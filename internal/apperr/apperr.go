// Package apperr defines the error taxonomy of §7: a small set of kinds
// that map 1:1 onto HTTP status codes, plus the uniform JSON envelope
// every service's handlers write on failure.
package apperr

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// Kind is a semantic error category, not a Go type name.
type Kind int

const (
	Validation Kind = iota
	Authentication
	Authorization
	Conflict
	NotFound
	RateLimit
	Server
)

func (k Kind) status() int {
	switch k {
	case Validation:
		return http.StatusBadRequest
	case Authentication:
		return http.StatusUnauthorized
	case Authorization:
		return http.StatusForbidden
	case Conflict:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	case RateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is the error type every handler returns; it carries enough to
// render the uniform {error, [attempts_remaining]} response body.
type Error struct {
	Kind              Kind
	Message           string
	AttemptsRemaining *int
	cause             error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func WithAttempts(kind Kind, message string, remaining int) *Error {
	return &Error{Kind: kind, Message: message, AttemptsRemaining: &remaining}
}

func Validationf(format string, args ...any) *Error {
	return New(Validation, sprintf(format, args...))
}

func NotFoundf(format string, args ...any) *Error {
	return New(NotFound, sprintf(format, args...))
}

func Conflictf(format string, args ...any) *Error {
	return New(Conflict, sprintf(format, args...))
}

func Forbiddenf(format string, args ...any) *Error {
	return New(Authorization, sprintf(format, args...))
}

func Unauthorizedf(format string, args ...any) *Error {
	return New(Authentication, sprintf(format, args...))
}

func Internal(cause error) *Error {
	return Wrap(Server, "internal server error", cause)
}

func RateLimitf(format string, args ...any) *Error {
	return New(RateLimit, sprintf(format, args...))
}

type envelope struct {
	Error             string `json:"error"`
	AttemptsRemaining *int   `json:"attempts_remaining,omitempty"`
}

// Write renders err (coerced to *Error if necessary) as the uniform
// JSON envelope with the matching HTTP status, logging server errors.
func Write(w http.ResponseWriter, log zerolog.Logger, err error) {
	appErr, ok := err.(*Error)
	if !ok {
		appErr = Internal(err)
	}

	if appErr.Kind == Server {
		log.Error().Err(appErr.Unwrap()).Msg(appErr.Message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Kind.status())
	_ = json.NewEncoder(w).Encode(envelope{
		Error:             appErr.Message,
		AttemptsRemaining: appErr.AttemptsRemaining,
	})
}
