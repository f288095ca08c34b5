package audit

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
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

func TestCreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(testDB(t))

	entry := &Entry{
		Action:     ActionLogin,
		EntityType: "session",
		EntityID:   "ses-1234",
		UserID:     "usr-1234",
		Source:     "api",
		Details:    map[string]any{"ip": "10.0.0.1"},
	}
	if err := repo.Create(ctx, entry); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if entry.ID == "" {
		t.Fatal("Create should generate an ID")
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Total != 1 || len(result.Entries) != 1 {
		t.Fatalf("expected one entry, got total=%d len=%d", result.Total, len(result.Entries))
	}

	got := result.Entries[0]
	if got.Action != ActionLogin || got.EntityType != "session" || got.UserID != "usr-1234" {
		t.Errorf("unexpected entry: %+v", got)
	}
	if got.Details["ip"] != "10.0.0.1" {
		t.Errorf("details not round-tripped: %v", got.Details)
	}
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(testDB(t))

	seed := []Entry{
		{Action: ActionLogin, EntityType: "session", UserID: "usr-a"},
		{Action: ActionCreate, EntityType: "user", EntityID: "usr-b"},
		{Action: ActionDelete, EntityType: "user", EntityID: "usr-c"},
		{Action: ActionCreate, EntityType: "role", EntityID: "rol-a"},
	}
	for i := range seed {
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	byType, err := repo.List(ctx, Filter{EntityType: "user"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if byType.Total != 2 {
		t.Errorf("expected 2 user entries, got %d", byType.Total)
	}

	byAction, err := repo.List(ctx, Filter{Action: ActionCreate})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if byAction.Total != 2 {
		t.Errorf("expected 2 create entries, got %d", byAction.Total)
	}

	byEntity, err := repo.List(ctx, Filter{EntityType: "user", EntityID: "usr-c"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if byEntity.Total != 1 || byEntity.Entries[0].Action != ActionDelete {
		t.Errorf("unexpected filtered result: %+v", byEntity)
	}
}

func TestListPaginationClamp(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(testDB(t))

	for i := 0; i < 60; i++ {
		if err := repo.Create(ctx, &Entry{Action: ActionLogin, EntityType: "session"}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	// Zero limit falls back to the default page size.
	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(result.Entries) != 50 {
		t.Errorf("expected default page of 50, got %d", len(result.Entries))
	}
	if result.Total != 60 {
		t.Errorf("expected total 60, got %d", result.Total)
	}

	// Oversized limits are clamped.
	result, err = repo.List(ctx, Filter{Limit: 10000})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if result.Limit != 200 {
		t.Errorf("expected limit clamped to 200, got %d", result.Limit)
	}

	// Offset walks the remainder.
	result, err = repo.List(ctx, Filter{Limit: 50, Offset: 50})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(result.Entries) != 10 {
		t.Errorf("expected 10 entries at offset 50, got %d", len(result.Entries))
	}
}
