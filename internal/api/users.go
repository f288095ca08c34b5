package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/argus-admin/argus-core/internal/audit"
	"github.com/argus-admin/argus-core/internal/auth"
)

// Pagination bounds for user listing.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// userResponse is a user record enriched with the number of live
// sessions, which the dashboard shows in the user table.
type userResponse struct {
	auth.User
	SessionCount int `json:"session_count"`
}

// userListResponse is the paginated payload for GET /api/users.
type userListResponse struct {
	Users []userResponse `json:"users"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// handleListUsers returns a paginated user directory.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit := paginationParams(r)
	offset := (page - 1) * limit

	users, err := s.users.List(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		writeInternalError(w, "failed to list users")
		return
	}
	total, err := s.users.Count(r.Context())
	if err != nil {
		s.logger.Error("failed to count users", "error", err)
		writeInternalError(w, "failed to list users")
		return
	}

	resp := userListResponse{
		Users: make([]userResponse, 0, len(users)),
		Total: total,
		Page:  page,
		Limit: limit,
	}
	for i := range users {
		count, err := s.sessionStore.CountByUser(r.Context(), users[i].ID)
		if err != nil {
			s.logger.Error("failed to count sessions", "error", err, "user_id", users[i].ID)
		}
		resp.Users = append(resp.Users, userResponse{User: users[i], SessionCount: count})
	}

	writeJSON(w, http.StatusOK, resp)
}

// createUserRequest is the payload for POST /api/users. Role is honoured
// only when the caller holds user management permission; self-service
// registrations always land as USER.
type createUserRequest struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     auth.Role `json:"role,omitempty"`
}

// handleCreateUser registers a new account.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}
	if !auth.IsValidEmail(req.Email) {
		writeBadRequest(w, "a valid email is required")
		return
	}
	if len(req.Password) < auth.MinPasswordLength {
		writeAuthError(w, auth.ErrWeakPassword)
		return
	}

	role := auth.RoleUser
	if req.Role != "" && req.Role != auth.RoleUser {
		identity, _ := identityFromContext(r.Context())
		if identity == nil {
			writeForbidden(w, "cannot self-register with an elevated role")
			return
		}
		if err := requirePermission(r.Context(), identity, auth.PermUserManage, s.roles); err != nil {
			writeAuthError(w, err)
			return
		}
		role = req.Role
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		writeInternalError(w, "failed to create user")
		return
	}

	user := &auth.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(r.Context(), user); err != nil {
		writeAuthError(w, err)
		return
	}

	s.recordActivity(r.Context(), &audit.Entry{
		Action:     audit.ActionCreate,
		EntityType: "user",
		EntityID:   user.ID,
		Source:     "api",
	})

	writeJSON(w, http.StatusCreated, userResponse{User: *user})
}

// handleGetUser returns a single user. Ownership and permissions were
// already settled by the route guard.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	count, err := s.sessionStore.CountByUser(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to count sessions", "error", err, "user_id", id)
	}

	writeJSON(w, http.StatusOK, userResponse{User: *user, SessionCount: count})
}

// updateUserRequest is the payload for PUT /api/users/{id}. Zero-value
// fields are left unchanged.
type updateUserRequest struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     auth.Role `json:"role,omitempty"`
	Password string    `json:"password,omitempty"`
}

// handleUpdateUser modifies a user record. The route guard admits the
// account owner and user managers; a role change additionally requires
// management permission even on the caller's own record.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		if !auth.IsValidEmail(req.Email) {
			writeBadRequest(w, "a valid email is required")
			return
		}
		user.Email = req.Email
	}
	if req.Role != "" && req.Role != user.Role {
		identity, _ := identityFromContext(r.Context())
		if err := requirePermission(r.Context(), identity, auth.PermUserManage, s.roles); err != nil {
			writeAuthError(w, err)
			return
		}
		user.Role = req.Role
	}

	// Validate and hash the new password before any write, so a rejected
	// request leaves the record untouched.
	var passwordHash string
	if req.Password != "" {
		if len(req.Password) < auth.MinPasswordLength {
			writeAuthError(w, auth.ErrWeakPassword)
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			s.logger.Error("failed to hash password", "error", err)
			writeInternalError(w, "failed to update password")
			return
		}
		passwordHash = hash
	}

	if err := s.users.Update(r.Context(), user); err != nil {
		writeAuthError(w, err)
		return
	}

	if passwordHash != "" {
		if err := s.users.UpdatePassword(r.Context(), id, passwordHash); err != nil {
			writeAuthError(w, err)
			return
		}
		// A password change invalidates every other session.
		if err := s.sessions.RevokeAllForUser(r.Context(), id); err != nil {
			s.logger.Error("failed to revoke sessions after password change", "error", err, "user_id", id)
		}
	}

	s.recordActivity(r.Context(), &audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: "user",
		EntityID:   user.ID,
		Source:     "api",
	})

	writeJSON(w, http.StatusOK, user)
}

// handleDeleteUser removes an account and revokes its sessions. Deleting
// the calling account is refused so an admin cannot lock themselves out
// mid-session.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	identity, _ := identityFromContext(r.Context())
	if identity != nil && identity.UserID == id {
		writeAuthError(w, auth.ErrSelfAction)
		return
	}

	if err := s.users.Delete(r.Context(), id); err != nil {
		writeAuthError(w, err)
		return
	}
	if err := s.sessions.RevokeAllForUser(r.Context(), id); err != nil {
		s.logger.Error("failed to revoke sessions for deleted user", "error", err, "user_id", id)
	}

	s.recordActivity(r.Context(), &audit.Entry{
		Action:     audit.ActionDelete,
		EntityType: "user",
		EntityID:   id,
		Source:     "api",
	})

	w.WriteHeader(http.StatusNoContent)
}

// paginationParams reads page and limit query parameters, clamping both
// to sane bounds.
func paginationParams(r *http.Request) (page, limit int) {
	page = 1
	limit = defaultPageSize
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
		if limit > maxPageSize {
			limit = maxPageSize
		}
	}
	return page, limit
}
