package security_test

import (
	"strings"
	"testing"

	"projectgoat/internal/auth/adapter/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	digest, err := security.HashPassword("Str0ng!pass")
	require.NoError(t, err)
	assert.NotEqual(t, "Str0ng!pass", digest)

	assert.True(t, security.VerifyPassword("Str0ng!pass", digest))
	assert.False(t, security.VerifyPassword("Str0ng!pass2", digest))
}

func TestHashPassword_SaltsAreUnique(t *testing.T) {
	first, err := security.HashPassword("Str0ng!pass")
	require.NoError(t, err)
	second, err := security.HashPassword("Str0ng!pass")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, security.VerifyPassword("Str0ng!pass", first))
	assert.True(t, security.VerifyPassword("Str0ng!pass", second))
}

func TestVerifyPassword_EmptyDigestNeverMatches(t *testing.T) {
	assert.False(t, security.VerifyPassword("anything", ""))
	assert.False(t, security.VerifyPassword("", ""))
}

func TestValidatePasswordStrength_AcceptsCompliantPassword(t *testing.T) {
	assert.Nil(t, security.ValidatePasswordStrength("Str0ng!pass"))
	assert.Nil(t, security.ValidatePasswordStrength("C0mpl3x#Passw0rd"))
}

func TestValidatePasswordStrength_RejectsWeakPasswords(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     string
	}{
		{"too short", "Ab1!x", "at least 8 characters"},
		{"no uppercase", "weakpass1!", "uppercase letter"},
		{"no lowercase", "WEAKPASS1!", "lowercase letter"},
		{"no digit", "Weakpass!", "number"},
		{"no special", "Weakpass1", "special character"},
		{"too long", "Aa1!" + strings.Repeat("x", 80), "at most 72 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ve := security.ValidatePasswordStrength(tt.password)
			require.NotNil(t, ve)

			found := false
			for _, e := range ve.Errors {
				if strings.Contains(e.Message, tt.want) {
					found = true
				}
			}
			assert.True(t, found, "expected a violation mentioning %q, got %v", tt.want, ve.Errors)
		})
	}
}

func TestValidatePasswordStrength_EnumeratesEveryFailedRule(t *testing.T) {
	// Violates length, uppercase, digit and special at once.
	ve := security.ValidatePasswordStrength("weak")
	require.NotNil(t, ve)
	assert.Len(t, ve.Errors, 4)
}

func TestGenerateToken_ProducesUniqueURLSafeTokens(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := security.GenerateToken()
		require.NoError(t, err)

		// 32 random bytes, base64url without padding.
		assert.Len(t, token, 43)
		assert.NotContains(t, token, "+")
		assert.NotContains(t, token, "/")
		assert.NotContains(t, token, "=")

		assert.False(t, seen[token], "token generated twice")
		seen[token] = true
	}
}
