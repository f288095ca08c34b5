package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims extends JWT standard claims with the session fields the
// authorisation layer reads without a directory lookup.
type SessionClaims struct {
	jwt.RegisteredClaims
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      Role   `json:"role"`
	SessionID string `json:"sid"`
}

// signSessionToken creates a signed session token for a session record.
// The token is self-describing (subject, role, expiry) but only valid
// while the server-side session row exists; validation checks both.
//
// When embedExpiry is false the token carries no expiry claim and the
// session row is the sole lifetime authority. Rolling-refresh sessions
// are signed this way, since an embedded expiry would veto a row whose
// lifetime the refresh has extended.
func signSessionToken(identity *Identity, session *Session, secret string, embedExpiry bool) (string, error) {
	registered := jwt.RegisteredClaims{
		Subject:  identity.UserID,
		IssuedAt: jwt.NewNumericDate(session.IssuedAt),
		ID:       session.ID,
	}
	if embedExpiry {
		registered.ExpiresAt = jwt.NewNumericDate(session.ExpiresAt)
	}

	claims := SessionClaims{
		RegisteredClaims: registered,
		Name:             identity.Name,
		Email:            identity.Email,
		Role:             session.Role,
		SessionID:        session.ID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// parseSessionToken validates and parses a session token, returning the
// claims. It checks the signature, expiry, and required fields; every
// failure mode maps to ErrSessionInvalid.
func parseSessionToken(tokenString, secret string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionInvalid, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrSessionInvalid
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrSessionInvalid)
	}

	if claims.Role == "" {
		return nil, fmt.Errorf("%w: missing role", ErrSessionInvalid)
	}

	if claims.SessionID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrSessionInvalid)
	}

	return claims, nil
}
