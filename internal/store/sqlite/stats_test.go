package sqlite

import (
	"context"
	"testing"

	"github.com/keepstack/keepstack-server/internal/domain"
)

func TestUserStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreateLink(t, s, "A", "https://blog.example.com/a", "go")
	mustCreateLink(t, s, "B", "https://blog.example.com/b", "go")
	mustCreateLink(t, s, "C", "https://docs.example.org/c", "db")

	content := "some note"
	if _, err := s.CreateResource(ctx, &domain.Resource{
		OwnerID: testOwnerID, Type: domain.ResourceNote, Title: "Note", Content: &content,
	}, nil); err != nil {
		t.Fatalf("create note: %v", err)
	}

	if err := s.RecordVisit(ctx, testOwnerID, a.ID); err != nil {
		t.Fatalf("visit: %v", err)
	}
	if err := s.RecordVisit(ctx, testOwnerID, a.ID); err != nil {
		t.Fatalf("visit: %v", err)
	}

	stats, err := s.UserStats(ctx, testOwnerID, domain.StatsPeriodWeek)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if stats.TotalResources != 4 {
		t.Errorf("expected 4 resources, got %d", stats.TotalResources)
	}
	if stats.TotalTags != 2 {
		t.Errorf("expected 2 tags, got %d", stats.TotalTags)
	}
	if stats.TotalVisits != 2 {
		t.Errorf("expected 2 visits, got %d", stats.TotalVisits)
	}

	if len(stats.TopTags) == 0 || stats.TopTags[0].Name != "go" || stats.TopTags[0].Count != 2 {
		t.Errorf("expected go(2) on top, got %+v", stats.TopTags)
	}

	if len(stats.TopDomains) == 0 || stats.TopDomains[0].Domain != "blog.example.com" || stats.TopDomains[0].Count != 2 {
		t.Errorf("expected blog.example.com(2) on top, got %+v", stats.TopDomains)
	}

	// Today's adds and visits appear in the activity window.
	if len(stats.RecentActivity) != 1 {
		t.Fatalf("expected one activity day, got %+v", stats.RecentActivity)
	}
	if stats.RecentActivity[0].Added != 4 || stats.RecentActivity[0].Visited != 1 {
		t.Errorf("unexpected activity %+v", stats.RecentActivity[0])
	}
}

func TestUserStatsEmpty(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.UserStats(context.Background(), testOwnerID, domain.StatsPeriodMonth)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalResources != 0 || len(stats.TopTags) != 0 || len(stats.TopDomains) != 0 {
		t.Errorf("expected empty stats, got %+v", stats)
	}
}
