package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, salt, err := HashPassword("test_password_123", "test_pepper")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEmpty(t, salt)
	assert.NotEqual(t, "test_password_123", hash)
}

func TestHashPasswordDifferentSalts(t *testing.T) {
	hash1, salt1, err := HashPassword("test_password_123", "test_pepper")
	require.NoError(t, err)
	hash2, salt2, err := HashPassword("test_password_123", "test_pepper")
	require.NoError(t, err)

	assert.NotEqual(t, salt1, salt2)
	assert.NotEqual(t, hash1, hash2)
}

func TestVerifyPasswordSuccess(t *testing.T) {
	hash, _, err := HashPassword("test_password_123", "test_pepper")
	require.NoError(t, err)

	ok, err := VerifyPassword("test_password_123", "test_pepper", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyPasswordWrongPassword(t *testing.T) {
	hash, _, err := HashPassword("test_password_123", "test_pepper")
	require.NoError(t, err)

	ok, err := VerifyPassword("wrong_password", "test_pepper", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPasswordWrongPepper(t *testing.T) {
	hash, _, err := HashPassword("test_password_123", "test_pepper")
	require.NoError(t, err)

	ok, err := VerifyPassword("test_password_123", "wrong_pepper", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPasswordInvalidHash(t *testing.T) {
	_, err := VerifyPassword("test_password_123", "test_pepper", "not_a_valid_hash")
	assert.Error(t, err)
}

func TestPepperAffectsHash(t *testing.T) {
	hash1, _, err := HashPassword("test_password_123", "pepper1")
	require.NoError(t, err)
	hash2, _, err := HashPassword("test_password_123", "pepper2")
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2)
}

func TestHashTokenDeterministic(t *testing.T) {
	h1 := HashToken("abc123", "secret")
	h2 := HashToken("abc123", "secret")
	assert.Equal(t, h1, h2)

	h3 := HashToken("abc123", "other-secret")
	assert.NotEqual(t, h1, h3)
}

func TestGenerateOTPIsSixDigits(t *testing.T) {
	otp, err := GenerateOTP()
	require.NoError(t, err)
	assert.Len(t, otp, 6)
	for _, r := range otp {
		assert.True(t, r >= '0' && r <= '9')
	}
}

func TestGenerateCSRFTokenLengthAndAlphabet(t *testing.T) {
	t1, err := GenerateCSRFToken()
	require.NoError(t, err)
	t2, err := GenerateCSRFToken()
	require.NoError(t, err)

	assert.Len(t, t1, 32)
	assert.Len(t, t2, 32)
	assert.NotEqual(t, t1, t2)
	for _, r := range t1 {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		assert.True(t, isAlnum)
	}
}

func TestGenerateCSRFTokenUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := GenerateCSRFToken()
		require.NoError(t, err)
		assert.False(t, seen[tok])
		seen[tok] = true
	}
}
