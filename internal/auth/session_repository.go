package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionRepository defines the interface for session persistence.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)

	// Delete removes a session. Deleting an absent session is not an
	// error; revocation is idempotent.
	Delete(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID string) error

	// ExtendExpiry pushes a session's expiry forward (rolling refresh).
	ExtendExpiry(ctx context.Context, id string, expiresAt time.Time) error

	CountByUser(ctx context.Context, userID string) (int, error)

	// DeleteExpired removes sessions past their expiry, freeing storage.
	// Expired rows are already invalid before the sweep; this is cleanup,
	// not enforcement.
	DeleteExpired(ctx context.Context) (int64, error)
}

// SQLiteSessionRepository implements SessionRepository using SQLite.
type SQLiteSessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SQLite-backed session repository.
func NewSessionRepository(db *sql.DB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db}
}

// Create inserts a new session row. The ID is generated if empty.
func (r *SQLiteSessionRepository) Create(ctx context.Context, session *Session) error {
	if session.ID == "" {
		session.ID = "ses-" + uuid.NewString()[:16]
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, role, issued_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		session.ID, session.UserID, string(session.Role),
		session.IssuedAt.UTC().Format(time.RFC3339),
		session.ExpiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by its ID.
func (r *SQLiteSessionRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	var s Session
	var role, issuedAt, expiresAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, role, issued_at, expires_at FROM sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.UserID, &role, &issuedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}

	s.Role = Role(role)
	s.IssuedAt, _ = time.Parse(time.RFC3339, issuedAt)   //nolint:errcheck // format is controlled
	s.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt) //nolint:errcheck // format is controlled

	return &s, nil
}

// Delete removes a session by ID. Absent sessions are not an error.
func (r *SQLiteSessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteAllForUser removes every session for a user. Used on password
// reset and account deletion.
func (r *SQLiteSessionRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("deleting sessions for user: %w", err)
	}
	return nil
}

// ExtendExpiry pushes a session's expiry forward for rolling refresh.
func (r *SQLiteSessionRepository) ExtendExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET expires_at = ? WHERE id = ?",
		expiresAt.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("extending session expiry: %w", err)
	}
	return nil
}

// CountByUser returns the number of unexpired sessions for a user.
func (r *SQLiteSessionRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE user_id = ? AND expires_at > ?",
		userID, now,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting sessions: %w", err)
	}
	return count, nil
}

// DeleteExpired removes sessions past their expiry.
// Returns the number of deleted rows.
func (r *SQLiteSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at <= ?", now)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}

	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count, nil
}
