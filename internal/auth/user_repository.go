package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user account persistence.
// The auth core consumes the directory through this contract; it does not
// own the storage.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, offset, limit int) ([]User, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetResetToken(ctx context.Context, id, token string, expiry time.Time) error

	// ConsumeResetToken sets a new password hash and clears the reset
	// token in one conditional update, keyed on the presented token still
	// being current and unexpired. Exactly one of several concurrent
	// consumers succeeds; the rest get ErrResetTokenInvalid.
	ConsumeResetToken(ctx context.Context, token, passwordHash string) (userID string, err error)

	Delete(ctx context.Context, id string) error
}

// SQLiteUserRepository implements UserRepository using SQLite.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new SQLite-backed user repository.
func NewUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

const userColumns = "id, name, email, password_hash, role, reset_token, reset_token_expiry, created_at, updated_at"

// Create inserts a new user account. The ID is generated if empty.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = "usr-" + uuid.NewString()[:8]
	}
	if user.Role == "" {
		user.Role = RoleUser
	}

	now := time.Now().UTC().Format(time.RFC3339)
	user.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	user.UpdatedAt = user.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, reset_token, reset_token_expiry, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, NULL, NULL, ?, ?)`,
		user.ID, user.Name, user.Email, nullString(user.PasswordHash),
		string(user.Role), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("creating user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their unique ID.
func (r *SQLiteUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// GetByEmail retrieves a user by email. The email column carries the
// NOCASE collation, so the comparison is case-insensitive.
func (r *SQLiteUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
}

// List returns a page of users ordered by creation date, newest first.
func (r *SQLiteUserRepository) List(ctx context.Context, offset, limit int) ([]User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUserFrom(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}

	if users == nil {
		users = []User{}
	}
	return users, nil
}

// Count returns the total number of user accounts.
func (r *SQLiteUserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

// Update modifies a user's mutable fields (name, email, role).
func (r *SQLiteUserRepository) Update(ctx context.Context, user *User) error {
	now := time.Now().UTC().Format(time.RFC3339)
	user.UpdatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, role = ?, updated_at = ? WHERE id = ?`,
		user.Name, user.Email, string(user.Role), now, user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("updating user: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePassword changes a user's password hash.
func (r *SQLiteUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, now, id,
	)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetResetToken writes a fresh reset token and expiry, overwriting any
// previous token. A single active token per user is an invariant of the
// reset flow.
func (r *SQLiteUserRepository) SetResetToken(ctx context.Context, id, token string, expiry time.Time) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET reset_token = ?, reset_token_expiry = ?, updated_at = ? WHERE id = ?`,
		token, expiry.UTC().Format(time.RFC3339), now, id,
	)
	if err != nil {
		return fmt.Errorf("setting reset token: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ConsumeResetToken atomically sets the new password hash and clears the
// reset token, guarded on the token still being current and unexpired.
// The single conditional UPDATE is what makes a token single-use: of two
// concurrent consumers, only one statement matches a row.
func (r *SQLiteUserRepository) ConsumeResetToken(ctx context.Context, token, passwordHash string) (string, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	// The id lookup is advisory (used for session revocation afterwards);
	// the UPDATE below is the atomic gate.
	var userID string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE reset_token = ? AND reset_token_expiry > ?`,
		token, now,
	).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrResetTokenInvalid
		}
		return "", fmt.Errorf("looking up reset token: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET password_hash = ?, reset_token = NULL, reset_token_expiry = NULL, updated_at = ?
		 WHERE reset_token = ? AND reset_token_expiry > ?`,
		passwordHash, now, token, now,
	)
	if err != nil {
		return "", fmt.Errorf("consuming reset token: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		// Lost the race: another consumer cleared the token first.
		return "", ErrResetTokenInvalid
	}

	return userID, nil
}

// Delete removes a user account by ID.
func (r *SQLiteUserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// getUser executes a query and scans a single user result.
func (r *SQLiteUserRepository) getUser(ctx context.Context, query string, args ...any) (*User, error) {
	row := r.db.QueryRowContext(ctx, query, args...)
	return scanUserFrom(row)
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanUserFrom scans a user from any scanner (Row or Rows).
func scanUserFrom(s scanner) (*User, error) {
	var u User
	var passwordHash, resetToken, resetExpiry sql.NullString
	var role string
	var createdAt, updatedAt string

	err := s.Scan(&u.ID, &u.Name, &u.Email, &passwordHash, &role,
		&resetToken, &resetExpiry, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	u.Role = Role(role)
	if passwordHash.Valid {
		u.PasswordHash = passwordHash.String
	}
	if resetToken.Valid {
		u.ResetToken = resetToken.String
	}
	if resetExpiry.Valid {
		u.ResetTokenExpiry, _ = time.Parse(time.RFC3339, resetExpiry.String) //nolint:errcheck // format is controlled
	}

	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	u.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &u, nil
}

// Helper functions.

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "unique constraint"))
}
