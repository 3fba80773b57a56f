// Package auth implements the Auth service: registration with
// email-OTP verification, password login, JWT access/refresh issuance,
// CSRF token lifecycle, password reset, and the admin roster.
package auth

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors the users table.
type User struct {
	ID              uuid.UUID  `json:"id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	Salt            string     `json:"-"`
	RegNumber       string     `json:"reg_number"`
	YearJoined      int        `json:"year_joined"`
	PhoneNumber     string     `json:"phone_number"`
	EmailVerified   bool       `json:"email_verified"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// RefreshToken mirrors the refresh_tokens table; the raw token is never
// persisted, only its HMAC hash.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// CsrfToken mirrors the csrf_tokens table.
type CsrfToken struct {
	ID        uuid.UUID
	Token     string
	UserID    *uuid.UUID
	ExpiresAt time.Time
}

// EmailVerificationToken mirrors the email_verification_tokens table;
// at most one live row per user.
type EmailVerificationToken struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	OTP        string
	Attempts   int
	ExpiresAt  time.Time
	LastSentAt time.Time
}

// PasswordResetToken mirrors the password_reset_tokens table; keyed by
// email rather than user_id among live rows.
type PasswordResetToken struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Email      string
	OTP        string
	Attempts   int
	ExpiresAt  time.Time
	Used       bool
	LastSentAt time.Time
}

const maxOTPAttempts = 5

// RegisterRequest validates the register payload per spec §4.1.
type RegisterRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=50"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	RegNumber   string `json:"reg_number" validate:"required"`
	YearJoined  int    `json:"year_joined" validate:"required,min=2000,max=2099"`
	PhoneNumber string `json:"phone_number" validate:"required"`
}

// LoginRequest validates the login payload.
type LoginRequest struct {
	UsernameOrEmail string `json:"username_or_email" validate:"required"`
	Password        string `json:"password" validate:"required"`
}

// RefreshRequest validates the refresh payload.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// VerifyEmailRequest validates the email-verification payload.
type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6"`
}

// ResendVerificationRequest validates the resend payload.
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RequestPasswordResetRequest validates the reset-request payload.
type RequestPasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest validates the reset-password payload.
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

// PromoteRequest/DemoteRequest identify the admin-roster target.
type PromoteRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

type DemoteRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

// AuthTokens is the token bundle returned by login/verify/refresh.
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// AuthResponse is the full payload returned by login and verify-email.
type AuthResponse struct {
	User      User       `json:"user"`
	Auth      AuthTokens `json:"auth"`
	CSRFToken string     `json:"csrf_token"`
}
