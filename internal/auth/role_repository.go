package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RoleRepository defines the interface for stored role definitions.
// Built-in roles need no row here; stored rows override the static
// permission table for roles of the same name.
type RoleRepository interface {
	RoleResolver

	Create(ctx context.Context, role *RoleDefinition) error
	GetByName(ctx context.Context, name string) (*RoleDefinition, error)

	// List returns all stored definitions with their derived user
	// counts, newest first.
	List(ctx context.Context) ([]RoleDefinition, error)
}

// SQLiteRoleRepository implements RoleRepository using SQLite.
type SQLiteRoleRepository struct {
	db *sql.DB
}

// NewRoleRepository creates a new SQLite-backed role repository.
func NewRoleRepository(db *sql.DB) *SQLiteRoleRepository {
	return &SQLiteRoleRepository{db: db}
}

// Create inserts a new role definition. The ID is generated if empty.
func (r *SQLiteRoleRepository) Create(ctx context.Context, role *RoleDefinition) error {
	if role.ID == "" {
		role.ID = "rol-" + uuid.NewString()[:8]
	}
	if role.Permissions == nil {
		role.Permissions = []Permission{}
	}

	perms, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("marshalling permissions: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	role.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	role.UpdatedAt = role.CreatedAt

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO roles (id, name, description, permissions, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		role.ID, role.Name, nullString(role.Description), string(perms), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrRoleExists
		}
		return fmt.Errorf("creating role: %w", err)
	}

	return nil
}

// GetByName retrieves a stored role definition by its unique name.
func (r *SQLiteRoleRepository) GetByName(ctx context.Context, name string) (*RoleDefinition, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT r.id, r.name, r.description, r.permissions, r.created_at, r.updated_at,
		        (SELECT COUNT(*) FROM users u WHERE u.role = r.name)
		 FROM roles r WHERE r.name = ?`, name)

	def, err := scanRole(row)
	if err != nil {
		return nil, err
	}
	return def, nil
}

// List returns all stored role definitions with derived user counts.
func (r *SQLiteRoleRepository) List(ctx context.Context) ([]RoleDefinition, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.name, r.description, r.permissions, r.created_at, r.updated_at,
		        (SELECT COUNT(*) FROM users u WHERE u.role = r.name)
		 FROM roles r ORDER BY r.created_at DESC, r.id`)
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	defer rows.Close()

	var roles []RoleDefinition
	for rows.Next() {
		def, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating roles: %w", err)
	}

	if roles == nil {
		roles = []RoleDefinition{}
	}
	return roles, nil
}

// Resolve implements RoleResolver: a stored definition's permission set,
// or ok=false when the role has no row and the built-in table applies.
func (r *SQLiteRoleRepository) Resolve(ctx context.Context, name Role) ([]Permission, bool, error) {
	def, err := r.GetByName(ctx, string(name))
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return def.Permissions, true, nil
}

// scanRole scans a role definition from any scanner (Row or Rows).
func scanRole(s scanner) (*RoleDefinition, error) {
	var def RoleDefinition
	var description sql.NullString
	var perms, createdAt, updatedAt string

	err := s.Scan(&def.ID, &def.Name, &description, &perms,
		&createdAt, &updatedAt, &def.UserCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("scanning role: %w", err)
	}

	if description.Valid {
		def.Description = description.String
	}
	if err := json.Unmarshal([]byte(perms), &def.Permissions); err != nil {
		return nil, fmt.Errorf("unmarshalling permissions: %w", err)
	}

	def.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	def.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &def, nil
}
