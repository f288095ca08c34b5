package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/argus-admin/argus-core/internal/dashboard"
)

// buildRouter creates the HTTP router with all routes and middleware.
//
// Each route is classified once at build time and wrapped with a guard
// enforcing that classification, so the route table in gate.go is the
// single source of truth for who may reach what.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)
	r.Use(s.sessionMiddleware)

	endpoint := func(method, pattern string, h http.HandlerFunc) {
		r.With(s.guard(Classify(method, pattern))).Method(method, pattern, h)
	}

	endpoint(http.MethodGet, "/health", s.handleHealth)

	// Auth endpoints
	endpoint(http.MethodPost, "/api/auth/login", s.handleLogin)
	endpoint(http.MethodPost, "/api/auth/logout", s.handleLogout)
	endpoint(http.MethodGet, "/api/auth/me", s.handleMe)
	endpoint(http.MethodPost, "/api/auth/forgot-password", s.handleForgotPassword)
	endpoint(http.MethodPost, "/api/auth/reset-password", s.handleResetPassword)

	// User directory
	endpoint(http.MethodGet, "/api/users", s.handleListUsers)
	endpoint(http.MethodPost, "/api/users", s.handleCreateUser)
	endpoint(http.MethodGet, "/api/users/{id}", s.handleGetUser)
	endpoint(http.MethodPut, "/api/users/{id}", s.handleUpdateUser)
	endpoint(http.MethodDelete, "/api/users/{id}", s.handleDeleteUser)

	// Role definitions
	endpoint(http.MethodGet, "/api/roles", s.handleListRoles)
	endpoint(http.MethodPost, "/api/roles", s.handleCreateRole)

	// Activity trail and live event stream
	endpoint(http.MethodGet, "/api/audit", s.handleListActivity)
	endpoint(http.MethodGet, "/events", s.handleEvents)

	// Everything else is the admin UI. API paths that fall through still
	// get a JSON 404 rather than the SPA shell.
	ui := dashboard.Handler(s.cfg.DashboardDir)
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		if strings.HasPrefix(req.URL.Path, "/api/") {
			writeNotFound(w, "not found")
			return
		}
		ui.ServeHTTP(w, req)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
