package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SessionIssuerConfig contains SessionIssuer settings.
type SessionIssuerConfig struct {
	// Secret signs session tokens.
	Secret string

	// MaxAge is the session lifetime from issuance.
	MaxAge time.Duration

	// RollingRefresh extends the server-side expiry back to the full
	// MaxAge on each successful validation. Rolling tokens carry no
	// embedded expiry claim; the row alone decides when the session ends.
	RollingRefresh bool
}

// SessionIssuer converts authenticated identities into sessions and
// validates tokens on subsequent requests.
//
// A session is a signed token plus a server-side row. The token gives
// tamper-resistance without a directory lookup; the row gives revocation.
// The role inside both is a snapshot from issuance: a role change takes
// effect on next login, which is an accepted trade-off for skipping a
// directory round-trip on every authorised request.
type SessionIssuer struct {
	sessions SessionRepository
	cfg      SessionIssuerConfig

	// clock is replaced in tests to exercise expiry boundaries.
	clock func() time.Time
}

// NewSessionIssuer creates a new SessionIssuer.
func NewSessionIssuer(sessions SessionRepository, cfg SessionIssuerConfig) *SessionIssuer {
	return &SessionIssuer{
		sessions: sessions,
		cfg:      cfg,
		clock:    time.Now,
	}
}

// Issue creates a session for an authenticated identity and returns the
// record together with its signed token. Social-provider logins enter
// here too: any already-verified identity goes through the same path.
func (i *SessionIssuer) Issue(ctx context.Context, identity *Identity) (*Session, string, error) {
	now := i.clock()
	session := &Session{
		UserID:    identity.UserID,
		Role:      identity.Role,
		IssuedAt:  now,
		ExpiresAt: now.Add(i.cfg.MaxAge),
	}

	if err := i.sessions.Create(ctx, session); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	token, err := signSessionToken(identity, session, i.cfg.Secret, !i.cfg.RollingRefresh)
	if err != nil {
		// Best-effort cleanup; the orphan row would only expire later.
		_ = i.sessions.Delete(ctx, session.ID) //nolint:errcheck // row expires regardless
		return nil, "", err
	}

	return session, token, nil
}

// Validate checks a session token and returns the identity it carries.
// The signature and embedded expiry must hold, and the server-side row
// must still exist and be unexpired. Missing, malformed, expired, and
// revoked tokens all fail with ErrSessionInvalid.
func (i *SessionIssuer) Validate(ctx context.Context, token string) (*Identity, error) {
	claims, err := parseSessionToken(token, i.cfg.Secret)
	if err != nil {
		return nil, err
	}

	session, err := i.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, ErrSessionInvalid) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	now := i.clock()
	if session.Expired(now) {
		return nil, ErrSessionInvalid
	}

	if i.cfg.RollingRefresh {
		// Non-fatal: a failed refresh leaves the original expiry in place.
		_ = i.sessions.ExtendExpiry(ctx, session.ID, now.Add(i.cfg.MaxAge)) //nolint:errcheck // best effort
	}

	return &Identity{
		UserID: claims.Subject,
		Name:   claims.Name,
		Email:  claims.Email,
		Role:   session.Role,
	}, nil
}

// Revoke destroys the session behind a token. Revoking an unknown,
// malformed, or already-revoked token is not an error.
func (i *SessionIssuer) Revoke(ctx context.Context, token string) error {
	claims, err := parseSessionToken(token, i.cfg.Secret)
	if err != nil {
		return nil // nothing to revoke
	}

	if err := i.sessions.Delete(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return nil
}

// RevokeAllForUser destroys every session for a user. Called after a
// password reset and on account deletion.
func (i *SessionIssuer) RevokeAllForUser(ctx context.Context, userID string) error {
	if err := i.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return nil
}
