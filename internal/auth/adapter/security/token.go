package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// tokenBytes is the entropy of session IDs and CSRF tokens.
const tokenBytes = 32

// GenerateToken returns a cryptographically random, URL-safe opaque token.
// Used for both session identifiers and CSRF tokens.
func GenerateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
