package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/argus-admin/argus-core/internal/audit"
	"github.com/argus-admin/argus-core/internal/auth"
	"github.com/argus-admin/argus-core/internal/infrastructure/logging"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// captureNotifier records reset tokens instead of sending mail.
type captureNotifier struct {
	tokens []string
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, _, token string) error {
	n.tokens = append(n.tokens, token)
	return nil
}

// testEnv is a fully wired server over an in-memory database.
type testEnv struct {
	router   http.Handler
	users    auth.UserRepository
	sessions auth.SessionRepository
	notifier *captureNotifier
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL COLLATE NOCASE,
			password_hash TEXT,
			role TEXT NOT NULL DEFAULT 'USER',
			reset_token TEXT,
			reset_token_expiry TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE UNIQUE INDEX idx_users_email ON users(email);
		CREATE UNIQUE INDEX idx_users_reset_token ON users(reset_token) WHERE reset_token IS NOT NULL;

		CREATE TABLE roles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT,
			permissions TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			issued_at TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		) STRICT;

		CREATE TABLE audit_logs (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT,
			user_id TEXT,
			source TEXT NOT NULL DEFAULT 'api',
			details TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func quietLogger() *logging.Logger {
	return &logging.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	users := auth.NewUserRepository(db)
	sessionRepo := auth.NewSessionRepository(db)
	roles := auth.NewRoleRepository(db)
	activity := audit.NewSQLiteRepository(db)

	issuer := auth.NewSessionIssuer(sessionRepo, auth.SessionIssuerConfig{
		Secret: testSecret,
		MaxAge: 30 * 24 * time.Hour,
	})
	notifier := &captureNotifier{}
	resets := auth.NewPasswordResetService(users, issuer, notifier, time.Hour, quietLogger().Logger)

	server, err := New(Deps{
		Logger:        quietLogger(),
		Users:         users,
		Sessions:      issuer,
		SessionStore:  sessionRepo,
		Roles:         roles,
		Authenticator: auth.NewCredentialAuthenticator(users),
		Resets:        resets,
		Activity:      activity,
		Version:       "test",
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	return &testEnv{
		router:   server.buildRouter(),
		users:    users,
		sessions: sessionRepo,
		notifier: notifier,
	}
}

// seedUser creates an account directly in the directory.
func (e *testEnv) seedUser(t *testing.T, name, email, password string, role auth.Role) *auth.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	user := &auth.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	if err := e.users.Create(context.Background(), user); err != nil {
		t.Fatalf("seeding user failed: %v", err)
	}
	return user
}

// do performs a request against the router, optionally authenticated.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshalling request body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// login authenticates and returns the session token.
func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed with status %d: %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}
	return resp.Token
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestLoginSetsCookieAndReturnsIdentity(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "Ada", "ada@example.com", "hunter2hunter2", auth.RoleEditor)

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "hunter2hunter2",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a session token")
	}
	if resp.User.UserID != user.ID || resp.User.Role != auth.RoleEditor {
		t.Errorf("unexpected identity: %+v", resp.User)
	}

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value == resp.Token && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Error("expected an HTTP-only session cookie")
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Ada", "ada@example.com", "hunter2hunter2", auth.RoleUser)

	unknown := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "hunter2hunter2",
	})
	wrong := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "wrong-password",
	})

	if unknown.Code != http.StatusUnauthorized || wrong.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", unknown.Code, wrong.Code)
	}
	// Identical bodies: the response must not reveal which part was wrong.
	if unknown.Body.String() != wrong.Body.String() {
		t.Errorf("unknown-email and wrong-password responses differ:\n%s\n%s",
			unknown.Body.String(), wrong.Body.String())
	}
}

func TestLoginValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing password should be 400, got %d", rec.Code)
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Ada", "ada@example.com", "hunter2hunter2", auth.RoleUser)

	if rec := env.do(t, http.MethodGet, "/api/auth/me", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without session, got %d", rec.Code)
	}

	token := env.login(t, "ada@example.com", "hunter2hunter2")
	rec := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var user auth.User
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("unexpected user: %+v", user)
	}
	// Secrets never serialise.
	if bytes.Contains(rec.Body.Bytes(), []byte("password_hash")) {
		t.Error("response must not contain the password hash")
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Ada", "ada@example.com", "hunter2hunter2", auth.RoleUser)
	token := env.login(t, "ada@example.com", "hunter2hunter2")

	if rec := env.do(t, http.MethodPost, "/api/auth/logout", token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/auth/me", token, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("revoked token should be rejected, got %d", rec.Code)
	}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/users", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "hunter2hunter2",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if created.Role != auth.RoleUser {
		t.Errorf("self-registration should land as USER, got %s", created.Role)
	}

	// Registration immediately allows login.
	env.login(t, "ada@example.com", "hunter2hunter2")

	// Duplicate email, case-insensitively, conflicts.
	dup := env.do(t, http.MethodPost, "/api/users", "", map[string]string{
		"name": "Imposter", "email": "ADA@EXAMPLE.COM", "password": "hunter2hunter2",
	})
	if dup.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate email, got %d", dup.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	weak := env.do(t, http.MethodPost, "/api/users", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "short",
	})
	if weak.Code != http.StatusBadRequest {
		t.Errorf("weak password should be 400, got %d", weak.Code)
	}

	badEmail := env.do(t, http.MethodPost, "/api/users", "", map[string]string{
		"name": "Ada", "email": "not-an-email", "password": "hunter2hunter2",
	})
	if badEmail.Code != http.StatusBadRequest {
		t.Errorf("invalid email should be 400, got %d", badEmail.Code)
	}

	elevated := env.do(t, http.MethodPost, "/api/users", "", map[string]string{
		"name": "Sneaky", "email": "sneak@example.com", "password": "hunter2hunter2", "role": "ADMIN",
	})
	if elevated.Code != http.StatusForbidden {
		t.Errorf("anonymous elevated-role registration should be 403, got %d", elevated.Code)
	}
}

func TestUserListRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Plain", "plain@example.com", "hunter2hunter2", auth.RoleUser)
	env.seedUser(t, "Root", "root@example.com", "hunter2hunter2", auth.RoleAdmin)

	if rec := env.do(t, http.MethodGet, "/api/users", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without session, got %d", rec.Code)
	}

	plain := env.login(t, "plain@example.com", "hunter2hunter2")
	if rec := env.do(t, http.MethodGet, "/api/users", plain, nil); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for USER, got %d", rec.Code)
	}

	admin := env.login(t, "root@example.com", "hunter2hunter2")
	rec := env.do(t, http.MethodGet, "/api/users?page=1&limit=10", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for ADMIN, got %d", rec.Code)
	}

	var resp userListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Total != 2 || len(resp.Users) != 2 {
		t.Errorf("expected 2 users, got total=%d len=%d", resp.Total, len(resp.Users))
	}
	// The admin has one live session from the login above.
	for _, u := range resp.Users {
		if u.Email == "root@example.com" && u.SessionCount != 1 {
			t.Errorf("expected 1 live session for admin, got %d", u.SessionCount)
		}
	}
}

func TestUserGetSelfOrAdmin(t *testing.T) {
	env := newTestEnv(t)
	plain := env.seedUser(t, "Plain", "plain@example.com", "hunter2hunter2", auth.RoleUser)
	other := env.seedUser(t, "Other", "other@example.com", "hunter2hunter2", auth.RoleUser)
	env.seedUser(t, "Root", "root@example.com", "hunter2hunter2", auth.RoleAdmin)

	plainToken := env.login(t, "plain@example.com", "hunter2hunter2")
	adminToken := env.login(t, "root@example.com", "hunter2hunter2")

	if rec := env.do(t, http.MethodGet, "/api/users/"+plain.ID, plainToken, nil); rec.Code != http.StatusOK {
		t.Errorf("owner should read own record, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/users/"+other.ID, plainToken, nil); rec.Code != http.StatusForbidden {
		t.Errorf("non-owner without permission should get 403, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/users/"+other.ID, adminToken, nil); rec.Code != http.StatusOK {
		t.Errorf("admin should read any record, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/users/usr-missing", adminToken, nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown user should be 404, got %d", rec.Code)
	}
}

func TestUserUpdate(t *testing.T) {
	env := newTestEnv(t)
	plain := env.seedUser(t, "Plain", "plain@example.com", "hunter2hunter2", auth.RoleUser)
	env.seedUser(t, "Root", "root@example.com", "hunter2hunter2", auth.RoleAdmin)

	plainToken := env.login(t, "plain@example.com", "hunter2hunter2")
	adminToken := env.login(t, "root@example.com", "hunter2hunter2")

	// Self-service profile update.
	rec := env.do(t, http.MethodPut, "/api/users/"+plain.ID, plainToken, map[string]string{"name": "Plain Renamed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("self update should succeed, got %d: %s", rec.Code, rec.Body.String())
	}

	// Role escalation on one's own record requires management permission.
	rec = env.do(t, http.MethodPut, "/api/users/"+plain.ID, plainToken, map[string]string{"role": "ADMIN"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("self role escalation should be 403, got %d", rec.Code)
	}

	// An admin can change anyone's role.
	rec = env.do(t, http.MethodPut, "/api/users/"+plain.ID, adminToken, map[string]string{"role": "EDITOR"})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin role change should succeed, got %d", rec.Code)
	}
	var updated auth.User
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if updated.Role != auth.RoleEditor {
		t.Errorf("expected EDITOR, got %s", updated.Role)
	}
}

func TestUserUpdateRejectedRequestPersistsNothing(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "Ada", "ada@example.com", "hunter2hunter2", auth.RoleUser)
	token := env.login(t, "ada@example.com", "hunter2hunter2")

	// A weak password rejects the whole request, including the name change
	// riding along with it.
	rec := env.do(t, http.MethodPut, "/api/users/"+user.ID, token, map[string]string{
		"name": "Changed", "password": "short",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	got, err := env.users.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Ada" {
		t.Errorf("rejected update must not persist the name change, got %q", got.Name)
	}

	// The old password still works, so the session count stays intact too.
	env.login(t, "ada@example.com", "hunter2hunter2")
}

func TestUserUpdateEmailConflict(t *testing.T) {
	env := newTestEnv(t)
	plain := env.seedUser(t, "Plain", "plain@example.com", "hunter2hunter2", auth.RoleUser)
	env.seedUser(t, "Other", "other@example.com", "hunter2hunter2", auth.RoleUser)
	token := env.login(t, "plain@example.com", "hunter2hunter2")

	rec := env.do(t, http.MethodPut, "/api/users/"+plain.ID, token, map[string]string{"email": "other@example.com"})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for email conflict, got %d", rec.Code)
	}
}

func TestUserDelete(t *testing.T) {
	env := newTestEnv(t)
	victim := env.seedUser(t, "Victim", "victim@example.com", "hunter2hunter2", auth.RoleUser)
	admin := env.seedUser(t, "Root", "root@example.com", "hunter2hunter2", auth.RoleAdmin)

	victimToken := env.login(t, "victim@example.com", "hunter2hunter2")
	adminToken := env.login(t, "root@example.com", "hunter2hunter2")

	// Non-admins cannot delete.
	if rec := env.do(t, http.MethodDelete, "/api/users/"+admin.ID, victimToken, nil); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for USER delete, got %d", rec.Code)
	}

	// Admins cannot delete themselves.
	if rec := env.do(t, http.MethodDelete, "/api/users/"+admin.ID, adminToken, nil); rec.Code != http.StatusForbidden {
		t.Errorf("self-delete should be 403, got %d", rec.Code)
	}

	// Deleting another account revokes their sessions.
	if rec := env.do(t, http.MethodDelete, "/api/users/"+victim.ID, adminToken, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/auth/me", victimToken, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("deleted account's session should be dead, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/users/"+victim.ID, adminToken, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for repeat delete, got %d", rec.Code)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Ada", "ada@example.com", "old-password-1", auth.RoleUser)
	oldToken := env.login(t, "ada@example.com", "old-password-1")

	// Unknown email gets the same response as a known one.
	known := env.do(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "ada@example.com"})
	unknown := env.do(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "nobody@example.com"})
	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("expected 200/200, got %d/%d", known.Code, unknown.Code)
	}
	if known.Body.String() != unknown.Body.String() {
		t.Error("known and unknown emails must get identical responses")
	}
	if len(env.notifier.tokens) != 1 {
		t.Fatalf("expected exactly one delivered token, got %d", len(env.notifier.tokens))
	}
	resetToken := env.notifier.tokens[0]

	// Mismatched confirmation is rejected before the store is touched.
	rec := env.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"token": resetToken, "password": "new-password-9", "confirmPassword": "different",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("mismatched confirmation should be 400, got %d", rec.Code)
	}

	// With a valid token the reset completes.
	rec = env.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"token": resetToken, "password": "new-password-9", "confirmPassword": "new-password-9",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Old password and old session are dead; the new password works.
	old := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "old-password-1",
	})
	if old.Code != http.StatusUnauthorized {
		t.Errorf("old password should fail, got %d", old.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/auth/me", oldToken, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("pre-reset session should be revoked, got %d", rec.Code)
	}
	env.login(t, "ada@example.com", "new-password-9")

	// The token is single-use.
	rec = env.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"token": resetToken, "password": "another-pass-1", "confirmPassword": "another-pass-1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("reused token should be 400, got %d", rec.Code)
	}
}

func TestRolesEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Plain", "plain@example.com", "hunter2hunter2", auth.RoleUser)
	env.seedUser(t, "Root", "root@example.com", "hunter2hunter2", auth.RoleAdmin)

	plain := env.login(t, "plain@example.com", "hunter2hunter2")
	admin := env.login(t, "root@example.com", "hunter2hunter2")

	if rec := env.do(t, http.MethodGet, "/api/roles", plain, nil); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for USER, got %d", rec.Code)
	}

	create := env.do(t, http.MethodPost, "/api/roles", admin, map[string]any{
		"name":        "AUDITOR",
		"permissions": []string{"dashboard:view", "audit:read"},
	})
	if create.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", create.Code, create.Body.String())
	}

	dup := env.do(t, http.MethodPost, "/api/roles", admin, map[string]any{"name": "AUDITOR"})
	if dup.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate role, got %d", dup.Code)
	}

	list := env.do(t, http.MethodGet, "/api/roles", admin, nil)
	if list.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", list.Code)
	}
	var resp roleListResponse
	if err := json.Unmarshal(list.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Total != 1 || resp.Roles[0].Name != "AUDITOR" {
		t.Errorf("unexpected roles: %+v", resp)
	}
}

func TestActivityEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Plain", "plain@example.com", "hunter2hunter2", auth.RoleUser)
	env.seedUser(t, "Root", "root@example.com", "hunter2hunter2", auth.RoleAdmin)

	plain := env.login(t, "plain@example.com", "hunter2hunter2")
	admin := env.login(t, "root@example.com", "hunter2hunter2")

	if rec := env.do(t, http.MethodGet, "/api/audit", plain, nil); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for USER, got %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/audit?action=login", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var result audit.ListResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	// Both logins above were recorded.
	if result.Total != 2 {
		t.Errorf("expected 2 login entries, got %d", result.Total)
	}
}

func TestStaleCookieOnPublicRoute(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Ada", "ada@example.com", "hunter2hunter2", auth.RoleUser)

	// A garbage session cookie must not break public endpoints.
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(mustJSON(t, map[string]string{
		"email": "ada@example.com", "password": "hunter2hunter2",
	})))
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "stale-garbage"})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("login with stale cookie should still succeed, got %d", rec.Code)
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshalling: %v", err)
	}
	return b
}
