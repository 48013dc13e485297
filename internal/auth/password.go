package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword generates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plaintext password with a stored bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// ValidatePasswordLength enforces the account password bounds before hashing.
// bcrypt truncates input past 72 bytes, so the upper bound must stay below that.
func ValidatePasswordLength(password string, min, max int) error {
	if len(password) < min || len(password) > max {
		return fmt.Errorf("password must be between %d and %d characters", min, max)
	}
	return nil
}
