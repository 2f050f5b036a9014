package sqlite

import (
	"context"
	"testing"

	"github.com/keepstack/keepstack-server/internal/store"
)

func TestVerifyIndexConsistent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateLink(t, s, "One", "https://example.com/1", "go")
	mustCreateLink(t, s, "Two", "https://example.com/2")

	report, err := s.VerifyIndex(ctx, testOwnerID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !report.Consistent() {
		t.Errorf("expected consistent index, got %+v", report)
	}
	if report.Resources != 2 || report.Indexed != 2 {
		t.Errorf("expected 2/2, got %d/%d", report.Resources, report.Indexed)
	}
}

func TestVerifyIndexDetectsDivergence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := mustCreateLink(t, s, "Indexed", "https://example.com/1")

	// Sabotage the index behind the store's back.
	if _, err := s.db.Exec("DELETE FROM resources_fts WHERE rowid = ?", r.ID); err != nil {
		t.Fatalf("sabotage: %v", err)
	}

	report, err := s.VerifyIndex(ctx, testOwnerID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if report.Consistent() {
		t.Fatal("expected divergence to be reported")
	}
	if len(report.Missing) != 1 || report.Missing[0] != r.ID {
		t.Errorf("expected missing [%d], got %v", r.ID, report.Missing)
	}
}

func TestRebuildIndex(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreateLink(t, s, "Kubernetes operators", "https://example.com/1", "k8s")
	mustCreateLink(t, s, "Terraform modules", "https://example.com/2")

	// Wreck the whole index, then rebuild.
	if _, err := s.db.Exec("DELETE FROM resources_fts"); err != nil {
		t.Fatalf("sabotage: %v", err)
	}

	indexed, err := s.RebuildIndex(ctx, "")
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if indexed != 2 {
		t.Errorf("expected 2 indexed, got %d", indexed)
	}

	report, err := s.VerifyIndex(ctx, "")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !report.Consistent() {
		t.Errorf("expected consistent index after rebuild, got %+v", report)
	}

	// Content, including tag text, is searchable again.
	list, err := s.ListResources(ctx, testOwnerID, &store.ResourceFilter{Query: "k8s"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].ID != a.ID {
		t.Errorf("expected rebuilt tag text to match, got %v", listIDs(list))
	}
}

func TestRebuildIndexScopedToOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateLink(t, s, "Owned", "https://example.com/1")

	indexed, err := s.RebuildIndex(ctx, testOwnerID)
	if err != nil {
		t.Fatalf("rebuild scoped: %v", err)
	}
	if indexed != 1 {
		t.Errorf("expected 1 indexed, got %d", indexed)
	}
}
