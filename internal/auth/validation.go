package auth

import (
	"fmt"
	"strings"
)

// ValidatePassword validates a candidate password. Length-based only,
// per NIST 800-63B: no character class requirements.
func ValidatePassword(password string, minLength int) error {
	if minLength == 0 {
		minLength = 8
	}

	// Check minimum length
	if len(password) < minLength {
		return fmt.Errorf("password must be at least %d characters long", minLength)
	}

	// Check maximum length (prevent DoS via extremely long passwords)
	if len(password) > 128 {
		return fmt.Errorf("password must be at most 128 characters long")
	}

	// Check for common weak patterns
	lower := strings.ToLower(password)
	commonPasswords := []string{
		"password", "password1", "12345678", "qwertyuiop",
	}
	for _, common := range commonPasswords {
		if lower == common {
			return fmt.Errorf("password is too common")
		}
	}

	// Ensure password is not entirely one character type repeated
	if isRepeatingChar(password) {
		return fmt.Errorf("password cannot be a single repeating character")
	}

	return nil
}

// isRepeatingChar checks if the password is just the same character repeated
func isRepeatingChar(s string) bool {
	if len(s) == 0 {
		return false
	}
	runes := []rune(s)
	first := runes[0]
	for _, r := range runes[1:] {
		if r != first {
			return false
		}
	}
	return true
}
