// Package authjwt issues and validates the HS256 access/refresh tokens
// shared by every service. Auth mints them; Attendance, Merit and
// Tabulation validate them locally against the same JWT_SECRET rather
// than calling back into Auth for every request.
package authjwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes access from refresh tokens so one can never
// be used in place of the other.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// ErrWrongTokenType is returned when a refresh token is presented where
// an access token is required, or vice versa.
var ErrWrongTokenType = errors.New("authjwt: wrong token type")

// Claims is the JWT payload: sub, username, exp, iat, jti, token_type —
// matching the original implementation's Claims struct exactly.
type Claims struct {
	Username  string    `json:"username"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// Service issues and validates tokens under a single HMAC secret.
type Service struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// New builds a Service. accessExpiry/refreshExpiry are in seconds,
// matching JWT_ACCESS_TOKEN_EXPIRY/JWT_REFRESH_TOKEN_EXPIRY.
func New(secret string, accessExpirySeconds, refreshExpirySeconds int) *Service {
	return &Service{
		secret:        []byte(secret),
		accessExpiry:  time.Duration(accessExpirySeconds) * time.Second,
		refreshExpiry: time.Duration(refreshExpirySeconds) * time.Second,
	}
}

func (s *Service) CreateAccessToken(userID uuid.UUID, username string) (string, error) {
	return s.create(userID, username, TokenAccess, s.accessExpiry)
}

func (s *Service) CreateRefreshToken(userID uuid.UUID, username string) (string, error) {
	return s.create(userID, username, TokenRefresh, s.refreshExpiry)
}

func (s *Service) create(userID uuid.UUID, username string, tt TokenType, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Username:  username,
		TokenType: tt,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate decodes and signature-checks a token without constraining
// its type.
func (s *Service) Validate(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// ValidateAccessToken validates a token and rejects it unless it is an
// access token.
func (s *Service) ValidateAccessToken(tokenStr string) (*Claims, error) {
	claims, err := s.Validate(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenAccess {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// ValidateRefreshToken validates a token and rejects it unless it is a
// refresh token.
func (s *Service) ValidateRefreshToken(tokenStr string) (*Claims, error) {
	claims, err := s.Validate(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenRefresh {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

// UserID parses the subject claim as a UUID.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}
