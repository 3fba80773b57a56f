package auth

import (
	"os"
	"strconv"
	"time"

	"github.com/tabrela/tabrela/internal/config"
)

// Config extends the shared Base with the Auth service's own
// environment variables (spec §6, "Auth only").
type Config struct {
	config.Base

	PasswordPepper         string
	JWTAccessTokenExpiry   time.Duration
	JWTRefreshTokenExpiry  time.Duration
	CSRFTokenExpiry        time.Duration
	EmailServiceURL        string
	EmailServiceAPIKey     string
	EmailVerificationExpiry time.Duration
	PasswordResetExpiry     time.Duration
}

func LoadConfig() Config {
	base := config.LoadBase()
	return Config{
		Base:                    base,
		PasswordPepper:          getEnv("PASSWORD_PEPPER", "dev-pepper-change-me"),
		JWTAccessTokenExpiry:    getEnvSeconds("JWT_ACCESS_TOKEN_EXPIRY", 900),
		JWTRefreshTokenExpiry:   getEnvSeconds("JWT_REFRESH_TOKEN_EXPIRY", 604800),
		CSRFTokenExpiry:         getEnvSeconds("CSRF_TOKEN_EXPIRY", 3600),
		EmailServiceURL:         getEnv("EMAIL_SERVICE_URL", ""),
		EmailServiceAPIKey:      getEnv("EMAIL_SERVICE_API_KEY", ""),
		EmailVerificationExpiry: getEnvSeconds("EMAIL_VERIFICATION_EXPIRY", 86400),
		PasswordResetExpiry:     getEnvSeconds("PASSWORD_RESET_EXPIRY", 3600),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvSeconds(key string, fallback int) time.Duration {
	n := fallback
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(v); err == nil {
			n = parsed
		}
	}
	return time.Duration(n) * time.Second
}
