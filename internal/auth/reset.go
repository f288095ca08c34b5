package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// resetTokenBytes is the entropy of a reset token (256-bit, hex-encoded).
const resetTokenBytes = 32

// Notifier delivers reset tokens to account holders. Outbound mail is an
// external collaborator; the core only hands over the token.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// PasswordResetService issues and consumes single-use, time-limited
// password reset tokens.
type PasswordResetService struct {
	users    UserRepository
	sessions *SessionIssuer
	notifier Notifier
	tokenTTL time.Duration
	logger   *slog.Logger

	clock func() time.Time
}

// NewPasswordResetService creates a new PasswordResetService.
func NewPasswordResetService(users UserRepository, sessions *SessionIssuer, notifier Notifier, tokenTTL time.Duration, logger *slog.Logger) *PasswordResetService {
	return &PasswordResetService{
		users:    users,
		sessions: sessions,
		notifier: notifier,
		tokenTTL: tokenTTL,
		logger:   logger,
		clock:    time.Now,
	}
}

// GenerateResetToken creates a cryptographically random reset token.
func GenerateResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// IssueToken starts a password reset for the given email. It succeeds
// whether or not the email matches an account, so the response cannot be
// used to enumerate accounts; for unknown emails no token is written and
// nothing is sent. A fresh token overwrites any previous one (a single
// active token per user) and expires after the configured TTL.
func (s *PasswordResetService) IssueToken(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	token, err := GenerateResetToken()
	if err != nil {
		return err
	}

	expiry := s.clock().Add(s.tokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, token, expiry); err != nil {
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, token); err != nil {
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	s.logger.Info("password reset token issued", "user_id", user.ID)
	return nil
}

// ConsumeToken sets a new password for the account holding the token and
// clears the token in the same conditional update, so a token can never
// be consumed twice: of two concurrent calls, exactly one succeeds and
// the other fails with ErrResetTokenInvalid. Unknown and expired tokens
// fail the same way. The password policy is checked before any store
// call. All existing sessions for the account are revoked on success.
func (s *PasswordResetService) ConsumeToken(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hashing new password: %w", err)
	}

	userID, err := s.users.ConsumeResetToken(ctx, token, hash)
	if err != nil {
		if errors.Is(err, ErrResetTokenInvalid) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	// The credential change already invalidated the token; stale
	// sessions should not outlive the old password either.
	if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
		s.logger.Error("revoking sessions after password reset failed", "user_id", userID, "error", err)
	}

	s.logger.Info("password reset completed", "user_id", userID)
	return nil
}
