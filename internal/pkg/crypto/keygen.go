// Package crypto provides cryptographic utilities for the Aurelius catalogue service.
package crypto

import (
	"crypto/rand"
	"fmt"
)

// confirmationCodeChars contains the characters used in confirmation codes
// (uppercase alphanumeric, unambiguous to read out of an email).
const confirmationCodeChars = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GenerateConfirmationCode generates a random fixed-length confirmation
// code over the allowed alphabet.
// Example: "K7QX2MRP"
func GenerateConfirmationCode(length int) (string, error) {
	return generateRandomString(length, confirmationCodeChars)
}

// generateRandomString generates a random string of the specified length
// using characters from the provided character set.
func generateRandomString(length int, charset string) (string, error) {
	result := make([]byte, length)
	charsetLen := len(charset)

	randomBytes := make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	for i := 0; i < length; i++ {
		result[i] = charset[int(randomBytes[i])%charsetLen]
	}

	return string(result), nil
}
