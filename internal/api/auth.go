package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/argus-admin/argus-core/internal/audit"
	"github.com/argus-admin/argus-core/internal/auth"
)

// loginRequest is the payload for POST /api/auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is returned on successful login. The token is also set
// as an HTTP-only cookie for browser clients.
type loginResponse struct {
	Token     string         `json:"token"`
	User      *auth.Identity `json:"user"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// handleLogin authenticates credentials and issues a session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	identity, err := s.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	session, token, err := s.sessions.Issue(r.Context(), identity)
	if err != nil {
		s.logger.Error("failed to issue session", "error", err, "user_id", identity.UserID)
		writeInternalError(w, "failed to establish session")
		return
	}

	s.setSessionCookie(w, token, session.ExpiresAt)
	s.recordActivity(r.Context(), &audit.Entry{
		Action:     audit.ActionLogin,
		EntityType: "session",
		EntityID:   session.ID,
		UserID:     identity.UserID,
		Source:     "api",
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		User:      identity,
		ExpiresAt: session.ExpiresAt,
	})
}

// handleLogout revokes the current session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())

	if token := sessionToken(r); token != "" {
		if err := s.sessions.Revoke(r.Context(), token); err != nil {
			s.logger.Error("failed to revoke session", "error", err)
			writeInternalError(w, "failed to end session")
			return
		}
	}

	s.clearSessionCookie(w)
	if identity != nil {
		s.recordActivity(r.Context(), &audit.Entry{
			Action:     audit.ActionLogout,
			EntityType: "session",
			UserID:     identity.UserID,
			Source:     "api",
		})
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleMe returns the account behind the current session.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "session required")
		return
	}

	user, err := s.users.GetByID(r.Context(), identity.UserID)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// forgotPasswordRequest is the payload for POST /api/auth/forgot-password.
type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// handleForgotPassword starts a password reset. The response is the same
// whether or not the email is registered.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" {
		writeBadRequest(w, "email is required")
		return
	}

	if err := s.resets.IssueToken(r.Context(), req.Email); err != nil {
		s.logger.Error("failed to issue reset token", "error", err)
		writeInternalError(w, "failed to process request")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "if the email is registered, a reset link has been sent",
	})
}

// resetPasswordRequest is the payload for POST /api/auth/reset-password.
type resetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// handleResetPassword completes a password reset with a valid token.
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Token == "" {
		writeBadRequest(w, "reset token is required")
		return
	}
	if req.Password == "" {
		writeBadRequest(w, "password is required")
		return
	}
	if req.Password != req.ConfirmPassword {
		writeBadRequest(w, "passwords do not match")
		return
	}

	if err := s.resets.ConsumeToken(r.Context(), req.Token, req.Password); err != nil {
		writeAuthError(w, err)
		return
	}

	s.recordActivity(r.Context(), &audit.Entry{
		Action:     audit.ActionPasswordReset,
		EntityType: "user",
		Source:     "api",
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "password has been reset",
	})
}

// setSessionCookie stores the session token as an HTTP-only cookie so
// browser clients do not have to manage the Authorization header.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.cfg.TLS.Enabled,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.TLS.Enabled,
		SameSite: http.SameSiteLaxMode,
	})
}
