package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// apiKeyIterations is the OWASP-recommended minimum for PBKDF2-HMAC-SHA256.
	apiKeyIterations = 480_000
	apiKeySaltLen    = 16
	apiKeyHashLen    = 32
)

// HashAPIKey derives a storable hash of an operator API key. The output is
// "salt$hash" with both parts base64 standard encoded.
func HashAPIKey(key string) (string, error) {
	if key == "" {
		return "", errors.New("crypto: api key must not be empty")
	}

	salt := make([]byte, apiKeySaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("crypto: generating salt: %w", err)
	}

	hash := pbkdf2.Key([]byte(key), salt, apiKeyIterations, apiKeyHashLen, sha256.New)

	return base64.StdEncoding.EncodeToString(salt) + "$" +
		base64.StdEncoding.EncodeToString(hash), nil
}

// CheckAPIKey reports whether key matches a hash produced by HashAPIKey.
// The comparison is constant time.
func CheckAPIKey(key, stored string) bool {
	parts := strings.SplitN(stored, "$", 2)
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	got := pbkdf2.Key([]byte(key), salt, apiKeyIterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
