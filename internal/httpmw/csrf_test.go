package httpmw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestIsExempt(t *testing.T) {
	assert.True(t, isExempt("/register"))
	assert.True(t, isExempt("/api/v1/login"))
	assert.True(t, isExempt("/csrf-token"))
	assert.False(t, isExempt("/logout"))
	assert.False(t, isExempt("/admin/promote"))
}

func TestIsStateChanging(t *testing.T) {
	assert.True(t, isStateChanging(http.MethodPost))
	assert.True(t, isStateChanging(http.MethodPut))
	assert.True(t, isStateChanging(http.MethodPatch))
	assert.True(t, isStateChanging(http.MethodDelete))
	assert.False(t, isStateChanging(http.MethodGet))
}

func TestRequireCSRFMissingTokenRejected(t *testing.T) {
	called := false
	mw := RequireCSRF(func(ctx context.Context, token string) (bool, error) {
		called = true
		return true, nil
	}, zerolog.Nop())

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run without a CSRF token")
	})

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, called)
}

func TestRequireCSRFExemptPathSkipsValidation(t *testing.T) {
	called := false
	mw := RequireCSRF(func(ctx context.Context, token string) (bool, error) {
		called = true
		return false, nil
	}, zerolog.Nop())

	nextRan := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextRan = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	assert.True(t, nextRan)
	assert.False(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireCSRFValidTokenPasses(t *testing.T) {
	mw := RequireCSRF(func(ctx context.Context, token string) (bool, error) {
		return token == "good-token", nil
	}, zerolog.Nop())

	nextRan := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextRan = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set(csrfHeader, "good-token")
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	assert.True(t, nextRan)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireCSRFInvalidTokenRejected(t *testing.T) {
	mw := RequireCSRF(func(ctx context.Context, token string) (bool, error) {
		return false, nil
	}, zerolog.Nop())

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run with an invalid CSRF token")
	})

	req := httptest.NewRequest(http.MethodPut, "/attendance/revoke", nil)
	req.Header.Set(csrfHeader, "bad-token")
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
