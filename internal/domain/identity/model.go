// Package identity manages user accounts: registration, email
// verification, credential checks and global roles.
package identity

import (
	"time"

	"github.com/google/uuid"
)

// User is an account. PasswordHash never leaves the package boundary in
// JSON form.
type User struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	DisplayName   string     `json:"display_name"`
	PasswordHash  string     `json:"-"`
	EmailVerified bool       `json:"email_verified"`
	Role          string     `json:"role"`
	Disabled      bool       `json:"disabled"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// VerificationToken is a one-time email verification token. Tokens are
// ULIDs; expiry is enforced when the token is consumed.
type VerificationToken struct {
	Token     string    `json:"token"`
	UserID    uuid.UUID `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token is past its expiry.
func (t *VerificationToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
