// Package security implements password hashing and token hashing for the
// auth service, grounded on the original implementation's security
// module: Argon2 for passwords (peppered, per-user salt) and HMAC-SHA256
// for deterministic, lookup-by-hash token storage.
package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrMismatchedHash is returned by VerifyPassword when the encoded hash
// cannot be parsed.
var ErrMismatchedHash = errors.New("security: invalid encoded hash")

// argon2Params mirrors Argon2's default parameterization (time=2,
// memory=19MiB, parallelism=1, matching the crate default used by the
// original Rust service).
type argon2Params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
	saltLength  uint32
	keyLength   uint32
}

var defaultParams = argon2Params{
	memory:      19 * 1024,
	iterations:  2,
	parallelism: 1,
	saltLength:  16,
	keyLength:   32,
}

// HashPassword hashes password‖pepper with Argon2id under a fresh
// per-call salt and returns the PHC-encoded hash string plus the raw
// SaltString (base64) kept separately for audit, as the `salt` column
// in the User table.
func HashPassword(password, pepper string) (encodedHash string, saltString string, err error) {
	salt := make([]byte, defaultParams.saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", "", fmt.Errorf("security: generate salt: %w", err)
	}

	peppered := password + pepper
	hash := argon2.IDKey([]byte(peppered), salt, defaultParams.iterations, defaultParams.memory, defaultParams.parallelism, defaultParams.keyLength)

	b64Salt := base64RawEncode(salt)
	b64Hash := base64RawEncode(hash)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, defaultParams.memory, defaultParams.iterations, defaultParams.parallelism, b64Salt, b64Hash)
	return encoded, b64Salt, nil
}

// VerifyPassword verifies password‖pepper against an encoded Argon2id
// hash produced by HashPassword.
func VerifyPassword(password, pepper, encodedHash string) (bool, error) {
	params, salt, hash, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	peppered := password + pepper
	candidate := argon2.IDKey([]byte(peppered), salt, params.iterations, params.memory, params.parallelism, uint32(len(hash)))

	return hmac.Equal(candidate, hash), nil
}

func decodeHash(encoded string) (argon2Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return argon2Params{}, nil, nil, ErrMismatchedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return argon2Params{}, nil, nil, ErrMismatchedHash
	}

	var p argon2Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return argon2Params{}, nil, nil, ErrMismatchedHash
	}

	salt, err := base64RawDecode(parts[4])
	if err != nil {
		return argon2Params{}, nil, nil, ErrMismatchedHash
	}
	hash, err := base64RawDecode(parts[5])
	if err != nil {
		return argon2Params{}, nil, nil, ErrMismatchedHash
	}

	return p, salt, hash, nil
}

// HashToken computes HMAC-SHA256(token, secret) hex-encoded. Used for
// refresh tokens: the raw refresh token is never stored, only this
// deterministic digest. CSRF tokens are stored and looked up raw.
func HashToken(token, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateOTP returns a 6-digit numeric one-time code.
func GenerateOTP() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	n := (uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])) % 1000000
	return fmt.Sprintf("%06d", n), nil
}

const alnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateCSRFToken returns a random 32-character alphanumeric token,
// matching the original implementation's csrf::generate_csrf_token.
func GenerateCSRFToken() (string, error) {
	return randomAlnum(32)
}

// GenerateOpaqueToken returns a random alphanumeric token of arbitrary
// length.
func GenerateOpaqueToken(length int) (string, error) {
	return randomAlnum(length)
}

func randomAlnum(length int) (string, error) {
	buf := make([]byte, 0, length)
	raw := make([]byte, length)
	limit := 256 - 256%len(alnum)
	for len(buf) < length {
		if _, err := rand.Read(raw); err != nil {
			return "", err
		}
		for _, b := range raw {
			if int(b) < limit && len(buf) < length {
				buf = append(buf, alnum[int(b)%len(alnum)])
			}
		}
	}
	return string(buf), nil
}
