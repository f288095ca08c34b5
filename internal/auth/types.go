package auth

import (
	"errors"
	"regexp"
	"time"
)

// emailPattern is a permissive shape check; real validation is delivery.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// maxEmailLength is the maximum allowed email length.
const maxEmailLength = 254

// IsValidEmail checks if an email address meets format requirements.
func IsValidEmail(email string) bool {
	return len(email) <= maxEmailLength && emailPattern.MatchString(email)
}

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// Role represents an authorisation tier in the system.
type Role string

const (
	// RoleUser is a regular account: can read and update its own record
	// and use the dashboard.
	RoleUser Role = "USER"

	// RoleEditor can additionally manage dashboard content. No user or
	// role administration.
	RoleEditor Role = "EDITOR"

	// RoleAdmin has full control: list/update/delete any user, manage
	// roles, read the audit trail.
	RoleAdmin Role = "ADMIN"
)

// BuiltinRoles is the set of roles that always resolve, even when no
// matching row exists in the roles table.
var BuiltinRoles = []Role{RoleUser, RoleEditor, RoleAdmin}

// IsBuiltinRole returns true if the role is one of the built-in tiers.
func IsBuiltinRole(r Role) bool {
	for _, v := range BuiltinRoles {
		if r == v {
			return true
		}
	}
	return false
}

// User represents an account in the directory.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`

	// PasswordHash is empty for social-only accounts, which cannot log
	// in with local credentials.
	PasswordHash string `json:"-"` // never serialised
	Role         Role   `json:"role"`

	// ResetToken and ResetTokenExpiry are both set or both zero. A token
	// whose expiry has passed is treated as absent, not deleted eagerly.
	ResetToken       string    `json:"-"` // never serialised
	ResetTokenExpiry time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasActiveResetToken reports whether the user carries a reset token that
// has not yet expired at the given instant.
func (u *User) HasActiveResetToken(now time.Time) bool {
	return u.ResetToken != "" && u.ResetTokenExpiry.After(now)
}

// RoleDefinition is a stored, named permission bundle. Stored definitions
// override the static permission table for roles of the same name.
type RoleDefinition struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Permissions []Permission `json:"permissions"`

	// UserCount is derived at query time, not stored.
	UserCount int `json:"user_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Identity is the resolved subject of an authenticated request.
type Identity struct {
	UserID string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// Session is a live authenticated session. The role is a snapshot taken
// at issuance.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at the given
// instant. An expired session is invalid regardless of storage state.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Sentinel errors for auth operations.
var (
	// ErrInvalidCredentials covers unknown email, missing local
	// credentials, and wrong password alike, so callers cannot
	// enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionInvalid covers missing, expired, malformed, and revoked
	// session tokens.
	ErrSessionInvalid = errors.New("invalid session")

	// ErrResetTokenInvalid covers unknown, expired, and already-consumed
	// reset tokens.
	ErrResetTokenInvalid = errors.New("invalid or expired reset token")

	ErrWeakPassword = errors.New("password does not meet minimum length")
	ErrForbidden    = errors.New("insufficient permissions")

	// ErrSelfAction marks a destructive action an account attempted
	// against itself (e.g. an admin deleting their own account).
	ErrSelfAction = errors.New("cannot perform this action on own account")

	ErrEmailExists  = errors.New("email already registered")
	ErrRoleExists   = errors.New("role name already exists")
	ErrUserNotFound = errors.New("user not found")
	ErrRoleNotFound = errors.New("role not found")

	// ErrUpstreamUnavailable surfaces directory/store/notifier failures
	// without retrying them inside the core.
	ErrUpstreamUnavailable = errors.New("upstream dependency unavailable")
)
