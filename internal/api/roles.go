package api

import (
	"encoding/json"
	"net/http"

	"github.com/argus-admin/argus-core/internal/audit"
	"github.com/argus-admin/argus-core/internal/auth"
)

// roleListResponse is the payload for GET /api/roles.
type roleListResponse struct {
	Roles []auth.RoleDefinition `json:"roles"`
	Total int                   `json:"total"`
}

// handleListRoles returns all stored role definitions with user counts.
func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.roles.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list roles", "error", err)
		writeInternalError(w, "failed to list roles")
		return
	}
	writeJSON(w, http.StatusOK, roleListResponse{Roles: roles, Total: len(roles)})
}

// createRoleRequest is the payload for POST /api/roles.
type createRoleRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Permissions []auth.Permission `json:"permissions"`
}

// handleCreateRole stores a new role definition. A stored definition
// whose name matches a built-in tier overrides that tier's permissions.
func (s *Server) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "role name is required")
		return
	}

	role := &auth.RoleDefinition{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
	}
	if role.Permissions == nil {
		role.Permissions = []auth.Permission{}
	}
	if err := s.roles.Create(r.Context(), role); err != nil {
		writeAuthError(w, err)
		return
	}

	s.recordActivity(r.Context(), &audit.Entry{
		Action:     audit.ActionCreate,
		EntityType: "role",
		EntityID:   role.ID,
		Source:     "api",
	})

	writeJSON(w, http.StatusCreated, role)
}
