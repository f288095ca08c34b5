package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

// recordingNotifier captures delivered reset tokens.
type recordingNotifier struct {
	emails []string
	tokens []string
	err    error
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, email, token string) error {
	if n.err != nil {
		return n.err
	}
	n.emails = append(n.emails, email)
	n.tokens = append(n.tokens, token)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testResetService(t *testing.T) (*PasswordResetService, UserRepository, *SessionIssuer, *recordingNotifier) {
	t.Helper()

	db := testDB(t)
	users := NewUserRepository(db)
	issuer := NewSessionIssuer(NewSessionRepository(db), SessionIssuerConfig{
		Secret: testSecret,
		MaxAge: 30 * 24 * time.Hour,
	})
	notifier := &recordingNotifier{}
	svc := NewPasswordResetService(users, issuer, notifier, time.Hour, discardLogger())
	return svc, users, issuer, notifier
}

func TestIssueTokenDeliversToKnownAccount(t *testing.T) {
	ctx := context.Background()
	svc, users, _, notifier := testResetService(t)
	user := seedAccount(t, users, "ada@example.com", "hunter2hunter2", RoleUser)

	if err := svc.IssueToken(ctx, "ada@example.com"); err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	if len(notifier.tokens) != 1 {
		t.Fatalf("expected one delivery, got %d", len(notifier.tokens))
	}
	if notifier.emails[0] != "ada@example.com" {
		t.Errorf("delivered to wrong address: %s", notifier.emails[0])
	}
	// 32 random bytes, hex encoded.
	if len(notifier.tokens[0]) != 64 {
		t.Errorf("expected 64-char token, got %d", len(notifier.tokens[0]))
	}

	got, err := users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.HasActiveResetToken(time.Now()) {
		t.Error("token should be stored with a future expiry")
	}
}

func TestIssueTokenUnknownEmailSucceedsSilently(t *testing.T) {
	ctx := context.Background()
	svc, _, _, notifier := testResetService(t)

	if err := svc.IssueToken(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("unknown email must not surface an error, got %v", err)
	}
	if len(notifier.tokens) != 0 {
		t.Error("nothing should be delivered for an unknown email")
	}
}

func TestIssueTokenOverwritesPrevious(t *testing.T) {
	ctx := context.Background()
	svc, users, _, notifier := testResetService(t)
	seedAccount(t, users, "ada@example.com", "hunter2hunter2", RoleUser)

	if err := svc.IssueToken(ctx, "ada@example.com"); err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if err := svc.IssueToken(ctx, "ada@example.com"); err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	// Only the latest token is live.
	if err := svc.ConsumeToken(ctx, notifier.tokens[0], "brand-new-password"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Errorf("superseded token should be invalid, got %v", err)
	}
	if err := svc.ConsumeToken(ctx, notifier.tokens[1], "brand-new-password"); err != nil {
		t.Errorf("latest token should consume, got %v", err)
	}
}

func TestConsumeTokenFullFlow(t *testing.T) {
	ctx := context.Background()
	svc, users, issuer, notifier := testResetService(t)
	user := seedAccount(t, users, "ada@example.com", "old-password-1", RoleUser)

	// An established session that must not survive the reset.
	identity := &Identity{UserID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}
	_, sessionToken, err := issuer.Issue(ctx, identity)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if err := svc.IssueToken(ctx, "ada@example.com"); err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	token := notifier.tokens[0]

	if err := svc.ConsumeToken(ctx, token, "new-password-9"); err != nil {
		t.Fatalf("ConsumeToken failed: %v", err)
	}

	// Old password no longer authenticates, new one does.
	authn := NewCredentialAuthenticator(users)
	if _, err := authn.Authenticate(ctx, "ada@example.com", "old-password-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password should fail after reset, got %v", err)
	}
	if _, err := authn.Authenticate(ctx, "ada@example.com", "new-password-9"); err != nil {
		t.Errorf("new password should authenticate, got %v", err)
	}

	// Existing sessions are revoked.
	if _, err := issuer.Validate(ctx, sessionToken); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("pre-reset session should be revoked, got %v", err)
	}

	// The token is gone.
	if err := svc.ConsumeToken(ctx, token, "another-password"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Errorf("consumed token should be invalid, got %v", err)
	}
}

func TestConsumeTokenRejectsWeakPasswordBeforeStore(t *testing.T) {
	ctx := context.Background()
	svc, users, _, notifier := testResetService(t)
	seedAccount(t, users, "ada@example.com", "hunter2hunter2", RoleUser)

	if err := svc.IssueToken(ctx, "ada@example.com"); err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	token := notifier.tokens[0]

	if err := svc.ConsumeToken(ctx, token, "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	// The rejected attempt must not have burned the token.
	if err := svc.ConsumeToken(ctx, token, "long-enough-now"); err != nil {
		t.Errorf("token should survive a weak-password attempt, got %v", err)
	}
}

func TestConsumeTokenExpired(t *testing.T) {
	ctx := context.Background()
	svc, users, _, notifier := testResetService(t)
	seedAccount(t, users, "ada@example.com", "hunter2hunter2", RoleUser)

	// Issue with a clock an hour and a half in the past, so the one-hour
	// TTL has already lapsed.
	svc.clock = func() time.Time { return time.Now().Add(-90 * time.Minute) }
	if err := svc.IssueToken(ctx, "ada@example.com"); err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	if err := svc.ConsumeToken(ctx, notifier.tokens[0], "new-password-9"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Errorf("expected ErrResetTokenInvalid for expired token, got %v", err)
	}
}

func TestIssueTokenNotifierFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	svc, users, _, notifier := testResetService(t)
	seedAccount(t, users, "ada@example.com", "hunter2hunter2", RoleUser)
	notifier.err = errors.New("relay down")

	err := svc.IssueToken(ctx, "ada@example.com")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
	}
}
