package authjwt

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testService() *Service {
	return New("test_secret", 900, 604800)
}

func TestCreateAndValidateAccessToken(t *testing.T) {
	svc := testService()
	userID := uuid.New()

	token, err := svc.CreateAccessToken(userID, "testuser")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "testuser", claims.Username)
	assert.Equal(t, TokenAccess, claims.TokenType)
}

func TestCreateAndValidateRefreshToken(t *testing.T) {
	svc := testService()
	userID := uuid.New()

	token, err := svc.CreateRefreshToken(userID, "testuser")
	require.NoError(t, err)

	claims, err := svc.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, TokenRefresh, claims.TokenType)
}

func TestAccessTokenRejectedAsRefresh(t *testing.T) {
	svc := testService()
	token, err := svc.CreateAccessToken(uuid.New(), "testuser")
	require.NoError(t, err)

	_, err = svc.ValidateRefreshToken(token)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestRefreshTokenRejectedAsAccess(t *testing.T) {
	svc := testService()
	token, err := svc.CreateRefreshToken(uuid.New(), "testuser")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestValidateWrongSecret(t *testing.T) {
	svc1 := New("secret1", 900, 604800)
	svc2 := New("secret2", 900, 604800)

	token, err := svc1.CreateAccessToken(uuid.New(), "testuser")
	require.NoError(t, err)

	_, err = svc2.Validate(token)
	assert.Error(t, err)
}

func TestValidateInvalidToken(t *testing.T) {
	svc := testService()
	_, err := svc.Validate("invalid.token.here")
	assert.Error(t, err)
}

func TestClaimsUserID(t *testing.T) {
	svc := testService()
	userID := uuid.New()
	token, err := svc.CreateAccessToken(userID, "testuser")
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)

	parsed, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)
}
