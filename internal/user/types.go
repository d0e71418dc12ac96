package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("user: not found")
	ErrConflict = errors.New("user: already exists")

	// ErrBadCredentials is deliberately generic: login failures must not
	// reveal whether the account exists.
	ErrBadCredentials = errors.New("user: bad credentials")

	ErrInvalidInput = errors.New("user: invalid input")
)

// User is a stored account. TwoFactorSecret holds the AES-GCM-encrypted
// TOTP seed, empty when 2FA has not been enrolled; the plaintext seed never
// leaves the twofactor package.
type User struct {
	ID              int       `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	RoleID          int       `json:"role_id"`
	Enabled         bool      `json:"enabled"`
	LoggedIn        bool      `json:"logged_in"`
	TwoFactorSecret string    `json:"-"`
	Authenticated   bool      `json:"authenticated"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HasTwoFactorAuth reports whether a seed is provisioned and the second
// factor has been completed for the current session.
func (u User) HasTwoFactorAuth() bool {
	return u.TwoFactorSecret != "" && u.Authenticated
}
