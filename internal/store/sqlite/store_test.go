package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/keepstack/keepstack-server/internal/domain"
)

const testOwnerID = "usr_test"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	user := &domain.User{ID: testOwnerID, Email: "owner@example.com", DisplayName: "Owner", PasswordHash: "x"}
	if err := s.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create test owner: %v", err)
	}
	return s
}

// mustCreateLink is the common fixture: a link resource with optional tags.
func mustCreateLink(t *testing.T, s *Store, title, url string, tags ...string) *domain.Resource {
	t.Helper()
	u := url
	rec, err := s.CreateResource(context.Background(), &domain.Resource{
		OwnerID: testOwnerID,
		Type:    domain.ResourceLink,
		Title:   title,
		URL:     &u,
	}, tags)
	if err != nil {
		t.Fatalf("create resource %q: %v", title, err)
	}
	return &rec.Resource
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	// Verify WAL mode is set.
	var journalMode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	// Verify foreign keys are enabled.
	var fk int
	err = s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}

	// Verify tables exist, including the FTS5 virtual table.
	tables := []string{
		"users", "sessions", "collections", "tags",
		"resources", "resource_tags", "resource_references",
		"resources_fts",
	}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpenClose(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Re-open should work (schema is idempotent).
	s2, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("re-open store: %v", err)
	}
	defer s2.Close()
}

func TestTimeRoundTrip(t *testing.T) {
	now := time.Now().UTC()
	parsed, err := parseTime(formatTime(now))
	if err != nil {
		t.Fatalf("parse formatted time: %v", err)
	}
	if !parsed.Equal(now) {
		t.Errorf("expected %v, got %v", now, parsed)
	}
}
