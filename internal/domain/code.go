// Package domain contains the core business entities for the Aurelius catalogue service.
package domain

import (
	"time"
)

// ConfirmationCode is the single live confirmation code for a user.
// There is exactly one row per user: reissuing replaces the code value and
// resets the timestamp, it never creates a second row. The code value itself
// is stored as a bcrypt hash; the plaintext exists only in the email that
// delivered it.
type ConfirmationCode struct {
	// UserID is the owning user. Unique: one live code per user.
	UserID int64

	// CodeHash is the bcrypt hash of the code value.
	CodeHash string

	// IssuedAt is when this code was generated. A code older than the
	// configured TTL must be rejected at token exchange; a reissue
	// arriving before the configured cooldown has elapsed must be
	// rejected without touching the row.
	IssuedAt time.Time
}

// Age returns how long ago the code was issued.
func (c *ConfirmationCode) Age(now time.Time) time.Duration {
	return now.Sub(c.IssuedAt)
}

// ExpiredAt reports whether the code is past its TTL at the given instant.
func (c *ConfirmationCode) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return c.Age(now) > ttl
}
