package security

import (
	"regexp"

	apperrors "projectgoat/internal/shared/errors"

	"golang.org/x/crypto/bcrypt"
)

// Password policy bounds. The upper bound matches bcrypt's input limit.
const (
	minPasswordLength = 8
	maxPasswordLength = 72
)

var (
	hasUpperRegex   = regexp.MustCompile(`[A-Z]`)
	hasLowerRegex   = regexp.MustCompile(`[a-z]`)
	hasDigitRegex   = regexp.MustCompile(`[0-9]`)
	hasSpecialRegex = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// HashPassword hashes a password with bcrypt. The per-password random
// salt is embedded in the returned digest.
func HashPassword(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// VerifyPassword reports whether password matches the stored digest.
// An empty digest (legacy rows with NULL hashes) never matches.
func VerifyPassword(password, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// ValidatePasswordStrength checks the password policy and returns a
// ValidationErrors enumerating every rule the password failed, or nil
// when the password is acceptable.
func ValidatePasswordStrength(password string) *apperrors.ValidationErrors {
	ve := apperrors.NewValidationErrors()

	if len(password) < minPasswordLength {
		ve.Add("password", "must be at least 8 characters long")
	}
	if len(password) > maxPasswordLength {
		ve.Add("password", "must be at most 72 characters long")
	}
	if !hasUpperRegex.MatchString(password) {
		ve.Add("password", "must contain at least one uppercase letter")
	}
	if !hasLowerRegex.MatchString(password) {
		ve.Add("password", "must contain at least one lowercase letter")
	}
	if !hasDigitRegex.MatchString(password) {
		ve.Add("password", "must contain at least one number")
	}
	if !hasSpecialRegex.MatchString(password) {
		ve.Add("password", "must contain at least one special character")
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}
