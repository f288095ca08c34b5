package auth

import (
	"context"
	"errors"
	"fmt"
)

// dummyHash is a well-formed Argon2id PHC string that matches no
// password. Failure paths that would otherwise return before hashing
// verify against it, so an unknown email costs the same as a wrong
// password.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// CredentialAuthenticator verifies email/password pairs against the user
// directory.
type CredentialAuthenticator struct {
	users UserRepository
}

// NewCredentialAuthenticator creates a new CredentialAuthenticator.
func NewCredentialAuthenticator(users UserRepository) *CredentialAuthenticator {
	return &CredentialAuthenticator{users: users}
}

// Authenticate verifies an email/password pair and returns the resolved
// identity. An unknown email, an account with no local credentials
// (social-only), and a wrong password all fail with the identical
// ErrInvalidCredentials, so callers cannot enumerate accounts. No state
// is mutated.
func (a *CredentialAuthenticator) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			VerifyPassword(password, dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	if user.PasswordHash == "" {
		VerifyPassword(password, dummyHash)
		return nil, ErrInvalidCredentials
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return &Identity{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
	}, nil
}
