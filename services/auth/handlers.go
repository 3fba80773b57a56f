package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tabrela/tabrela/internal/apperr"
	"github.com/tabrela/tabrela/internal/authjwt"
	"github.com/tabrela/tabrela/internal/httpmw"
	"github.com/tabrela/tabrela/internal/security"
)

// Handlers holds everything the HTTP layer needs: the repo, token
// issuance, email delivery and config. It is intentionally small — all
// business rules live here, not spread across middleware.
type Handlers struct {
	repo     *Repo
	jwt      *authjwt.Service
	email    *EmailClient
	cfg      Config
	validate *validator.Validate
	log      zerolog.Logger
}

func NewHandlers(repo *Repo, jwt *authjwt.Service, email *EmailClient, cfg Config, log zerolog.Logger) *Handlers {
	return &Handlers{repo: repo, jwt: jwt, email: email, cfg: cfg, validate: validator.New(), log: log}
}

func decodeJSON[T any](r *http.Request) (T, error) {
	var v T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, apperr.Validationf("invalid request body: %v", err)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Register handles POST /register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[RegisterRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid registration payload: %v", err))
		return
	}
	if !validRegNumber(req.RegNumber) {
		apperr.Write(w, h.log, apperr.Validationf("reg_number must match ^20\\d{5}$"))
		return
	}
	if !validPhoneNumber(req.PhoneNumber) {
		apperr.Write(w, h.log, apperr.Validationf("phone_number must match ^\\+<country><digits>$"))
		return
	}

	ctx := r.Context()
	if existing, err := h.repo.ConflictingUser(ctx, req.Username, req.Email, req.RegNumber, req.PhoneNumber); err == nil {
		if existing.EmailVerified {
			apperr.Write(w, h.log, apperr.Conflictf("username, email, registration number or phone number already in use"))
			return
		}
		// Unverified stale row: delete and re-register.
		if err := h.repo.DeleteUser(ctx, existing.ID); err != nil {
			apperr.Write(w, h.log, apperr.Internal(err))
			return
		}
	} else if err != ErrNotFound {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}

	encodedHash, saltString, err := security.HashPassword(req.Password, h.cfg.PasswordPepper)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}

	user, err := h.repo.InsertUser(ctx, User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: encodedHash,
		Salt:         saltString,
		RegNumber:    req.RegNumber,
		YearJoined:   req.YearJoined,
		PhoneNumber:  req.PhoneNumber,
	})
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}

	otp, err := security.GenerateOTP()
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	expiresAt := time.Now().UTC().Add(h.cfg.EmailVerificationExpiry)
	if err := h.repo.UpsertEmailVerificationToken(ctx, user.ID, otp, expiresAt); err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}

	h.email.SendBestEffort(ctx, user.Email, "verify_email", map[string]string{"otp": otp, "username": user.Username})

	writeJSON(w, http.StatusCreated, map[string]string{
		"email":   user.Email,
		"message": "registration successful, check your email for a verification code",
	})
}

// VerifyEmail handles POST /verify-email (alias /verify-otp).
func (h *Handlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[VerifyEmailRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid verification payload: %v", err))
		return
	}

	ctx := r.Context()
	user, err := h.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		apperr.Write(w, h.log, apperr.Unauthorizedf("invalid verification code"))
		return
	}

	token, err := h.repo.GetEmailVerificationToken(ctx, user.ID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Unauthorizedf("invalid or expired verification code"))
		return
	}
	if token.Attempts >= maxOTPAttempts {
		apperr.Write(w, h.log, apperr.RateLimitf("too many failed attempts, request a new code"))
		return
	}
	if token.OTP != req.OTP {
		_ = h.repo.IncrementEmailVerificationAttempts(ctx, token.ID)
		remaining := maxOTPAttempts - (token.Attempts + 1)
		apperr.Write(w, h.log, apperr.WithAttempts(apperr.Authentication, "invalid verification code", remaining))
		return
	}

	user, err = h.repo.MarkEmailVerified(ctx, user.ID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	_ = h.repo.DeleteEmailVerificationToken(ctx, user.ID)
	h.email.SendBestEffort(ctx, user.Email, "welcome", map[string]string{"username": user.Username})

	resp, err := h.issueSession(ctx, user)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ResendVerification handles POST /resend-verification.
func (h *Handlers) ResendVerification(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[ResendVerificationRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid request: %v", err))
		return
	}

	ctx := r.Context()
	user, err := h.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		apperr.Write(w, h.log, apperr.NotFoundf("no pending registration for that email"))
		return
	}

	existing, err := h.repo.GetEmailVerificationToken(ctx, user.ID)
	if err == nil {
		if time.Since(existing.LastSentAt) < 60*time.Second {
			apperr.Write(w, h.log, apperr.RateLimitf("please wait before requesting another code"))
			return
		}
	} else if err != ErrNotFound {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}

	otp, err := security.GenerateOTP()
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	expiresAt := time.Now().UTC().Add(h.cfg.EmailVerificationExpiry)
	if err := h.repo.UpsertEmailVerificationToken(ctx, user.ID, otp, expiresAt); err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}

	if err := h.email.Send(ctx, user.Email, "verify_email", map[string]string{"otp": otp, "username": user.Username}); err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "verification code resent"})
}

// Login handles POST /login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[LoginRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid login payload: %v", err))
		return
	}

	ctx := r.Context()
	var user User
	if strings.Contains(req.UsernameOrEmail, "@") {
		user, err = h.repo.GetUserByEmail(ctx, req.UsernameOrEmail)
	} else {
		user, err = h.repo.GetUserByUsername(ctx, req.UsernameOrEmail)
	}
	if err != nil {
		apperr.Write(w, h.log, apperr.Unauthorizedf("invalid credentials"))
		return
	}

	ok, err := security.VerifyPassword(req.Password, h.cfg.PasswordPepper, user.PasswordHash)
	if err != nil || !ok {
		apperr.Write(w, h.log, apperr.Unauthorizedf("invalid credentials"))
		return
	}
	if !user.EmailVerified {
		apperr.Write(w, h.log, apperr.Forbiddenf("email not verified"))
		return
	}

	resp, err := h.issueSession(ctx, user)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// issueSession mints a fresh access+refresh+CSRF bundle for user,
// storing the refresh hash and CSRF token, as login and verify-email
// both do (spec §4.1).
func (h *Handlers) issueSession(ctx context.Context, user User) (AuthResponse, error) {
	access, err := h.jwt.CreateAccessToken(user.ID, user.Username)
	if err != nil {
		return AuthResponse{}, err
	}
	refresh, err := h.jwt.CreateRefreshToken(user.ID, user.Username)
	if err != nil {
		return AuthResponse{}, err
	}

	refreshHash := security.HashToken(refresh, h.cfg.PasswordPepper)
	refreshExpiresAt := time.Now().UTC().Add(h.cfg.JWTRefreshTokenExpiry)
	if err := h.repo.InsertRefreshToken(ctx, user.ID, refreshHash, refreshExpiresAt); err != nil {
		return AuthResponse{}, err
	}

	csrfToken, err := security.GenerateCSRFToken()
	if err != nil {
		return AuthResponse{}, err
	}
	csrfExpiresAt := time.Now().UTC().Add(h.cfg.CSRFTokenExpiry)
	userID := user.ID
	if err := h.repo.InsertCSRFToken(ctx, &userID, csrfToken, csrfExpiresAt); err != nil {
		return AuthResponse{}, err
	}

	return AuthResponse{
		User: user,
		Auth: AuthTokens{
			AccessToken:  access,
			RefreshToken: refresh,
			TokenType:    "Bearer",
			ExpiresIn:    int(h.cfg.JWTAccessTokenExpiry.Seconds()),
		},
		CSRFToken: csrfToken,
	}, nil
}

// Refresh handles POST /refresh (CSRF-protected).
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[RefreshRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}

	claims, err := h.jwt.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		apperr.Write(w, h.log, apperr.Unauthorizedf("invalid or expired refresh token"))
		return
	}

	ctx := r.Context()
	refreshHash := security.HashToken(req.RefreshToken, h.cfg.PasswordPepper)
	row, err := h.repo.GetRefreshTokenByHash(ctx, refreshHash)
	if err != nil {
		apperr.Write(w, h.log, apperr.Unauthorizedf("invalid or expired refresh token"))
		return
	}

	userID, err := claims.UserID()
	if err != nil || userID != row.UserID {
		apperr.Write(w, h.log, apperr.Unauthorizedf("invalid refresh token"))
		return
	}

	user, err := h.repo.GetUserByID(ctx, userID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Unauthorizedf("user no longer exists"))
		return
	}

	if err := h.repo.DeleteRefreshTokenByID(ctx, row.ID); err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}

	access, err := h.jwt.CreateAccessToken(user.ID, user.Username)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	refresh, err := h.jwt.CreateRefreshToken(user.ID, user.Username)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	newHash := security.HashToken(refresh, h.cfg.PasswordPepper)
	expiresAt := time.Now().UTC().Add(h.cfg.JWTRefreshTokenExpiry)
	if err := h.repo.InsertRefreshToken(ctx, user.ID, newHash, expiresAt); err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}

	writeJSON(w, http.StatusOK, AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(h.cfg.JWTAccessTokenExpiry.Seconds()),
	})
}

// Logout handles POST /logout (auth+CSRF); idempotent.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpmw.UserID(r.Context())
	if !ok {
		apperr.Write(w, h.log, apperr.Unauthorizedf("authentication required"))
		return
	}
	if err := h.repo.DeleteAllRefreshTokensForUser(r.Context(), userID); err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me handles GET /me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpmw.UserID(r.Context())
	if !ok {
		apperr.Write(w, h.log, apperr.Unauthorizedf("authentication required"))
		return
	}
	user, err := h.repo.GetUserByID(r.Context(), userID)
	if err != nil {
		apperr.Write(w, h.log, apperr.NotFoundf("user not found"))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// CSRFToken handles GET /csrf-token: an unbound token any client may
// fetch before authenticating.
func (h *Handlers) CSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := security.GenerateCSRFToken()
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	expiresAt := time.Now().UTC().Add(h.cfg.CSRFTokenExpiry)
	if err := h.repo.InsertCSRFToken(r.Context(), nil, token, expiresAt); err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

// RequestPasswordReset handles POST /request-password-reset; always
// returns 200 to avoid leaking account existence.
func (h *Handlers) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[RequestPasswordResetRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid request: %v", err))
		return
	}

	ctx := r.Context()
	if user, err := h.repo.GetUserByEmail(ctx, req.Email); err == nil {
		otp, err := security.GenerateOTP()
		if err == nil {
			expiresAt := time.Now().UTC().Add(h.cfg.PasswordResetExpiry)
			if err := h.repo.UpsertPasswordResetToken(ctx, user.ID, req.Email, otp, expiresAt); err == nil {
				h.email.SendBestEffort(ctx, req.Email, "password_reset", map[string]string{"otp": otp})
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "if an account exists for that email, a reset code has been sent",
	})
}

// ResetPassword handles POST /reset-password.
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[ResetPasswordRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		apperr.Write(w, h.log, apperr.Validationf("invalid request: %v", err))
		return
	}

	ctx := r.Context()
	token, err := h.repo.GetPasswordResetToken(ctx, req.Email)
	if err != nil {
		apperr.Write(w, h.log, apperr.Unauthorizedf("invalid or expired reset code"))
		return
	}
	if token.Attempts >= maxOTPAttempts {
		apperr.Write(w, h.log, apperr.RateLimitf("too many failed attempts, request a new code"))
		return
	}
	if token.OTP != req.OTP {
		_ = h.repo.IncrementPasswordResetAttempts(ctx, token.ID)
		remaining := maxOTPAttempts - (token.Attempts + 1)
		apperr.Write(w, h.log, apperr.WithAttempts(apperr.Authentication, "invalid reset code", remaining))
		return
	}

	encodedHash, saltString, err := security.HashPassword(req.NewPassword, h.cfg.PasswordPepper)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	if err := h.repo.UpdatePassword(ctx, token.UserID, encodedHash, saltString); err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	_ = h.repo.MarkPasswordResetUsed(ctx, token.ID)
	_ = h.repo.DeleteAllRefreshTokensForUser(ctx, token.UserID)

	writeJSON(w, http.StatusOK, map[string]string{"message": "password reset successful"})
}

// AdminCheck handles GET /admin/check?user_id=... — the callback target
// Attendance/Merit/Tabulation use to resolve admin status (spec §9).
func (h *Handlers) AdminCheck(w http.ResponseWriter, r *http.Request) {
	if _, ok := httpmw.UserID(r.Context()); !ok {
		apperr.Write(w, h.log, apperr.Unauthorizedf("authentication required"))
		return
	}
	idStr := r.URL.Query().Get("user_id")
	userID, err := uuid.Parse(idStr)
	if err != nil {
		apperr.Write(w, h.log, apperr.Validationf("user_id must be a valid UUID"))
		return
	}
	isAdmin, err := h.repo.IsAdmin(r.Context(), userID)
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_admin": isAdmin})
}

// AdminUsers handles GET /admin/users.
func (h *Handlers) AdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.repo.ListUsers(r.Context())
	if err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// AdminPromote handles POST /admin/promote.
func (h *Handlers) AdminPromote(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[PromoteRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	grantedBy, _ := httpmw.UserID(r.Context())
	if err := h.repo.PromoteUser(r.Context(), req.UserID, grantedBy); err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user promoted"})
}

// AdminDemote handles POST /admin/demote.
func (h *Handlers) AdminDemote(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[DemoteRequest](r)
	if err != nil {
		apperr.Write(w, h.log, err)
		return
	}
	if err := h.repo.DemoteUser(r.Context(), req.UserID); err != nil {
		apperr.Write(w, h.log, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user demoted"})
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "auth"})
}
