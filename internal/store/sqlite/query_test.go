package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/keepstack/keepstack-server/internal/domain"
	"github.com/keepstack/keepstack-server/internal/store"
)

func listIDs(list *store.ResourceList) []int64 {
	ids := make([]int64, len(list.Items))
	for i, item := range list.Items {
		ids[i] = item.ID
	}
	return ids
}

func TestListResourcesTagModeAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	both := mustCreateLink(t, s, "Both", "https://example.com/1", "go", "web")
	goOnly := mustCreateLink(t, s, "Go only", "https://example.com/2", "go")
	webOnly := mustCreateLink(t, s, "Web only", "https://example.com/3", "web")
	mustCreateLink(t, s, "Neither", "https://example.com/4")

	// Default mode requires every tag.
	list, err := s.ListResources(ctx, testOwnerID, &store.ResourceFilter{Tags: []string{"go", "web"}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].ID != both.ID {
		t.Errorf("expected only the intersection, got %v", listIDs(list))
	}

	// Any mode is the union.
	list, err = s.ListResources(ctx, testOwnerID, &store.ResourceFilter{
		Tags: []string{"go", "web"}, TagMode: store.TagModeAny,
	})
	if err != nil {
		t.Fatalf("list any: %v", err)
	}
	if len(list.Items) != 3 {
		t.Errorf("expected union of 3, got %v", listIDs(list))
	}
	for _, item := range list.Items {
		if item.ID != both.ID && item.ID != goOnly.ID && item.ID != webOnly.ID {
			t.Errorf("unexpected resource %d in union", item.ID)
		}
	}
}

func TestListResourcesCombinedFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	col, err := s.CreateCollection(ctx, &domain.Collection{OwnerID: testOwnerID, Name: "Reading"})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}

	url := "https://example.com/fav"
	fav := true
	rec, err := s.CreateResource(ctx, &domain.Resource{
		OwnerID: testOwnerID, Type: domain.ResourceLink, Title: "Favorite in collection",
		URL: &url, CollectionID: &col.ID, Favorite: true,
	}, []string{"go"})
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}
	mustCreateLink(t, s, "Plain", "https://example.com/plain", "go")

	list, err := s.ListResources(ctx, testOwnerID, &store.ResourceFilter{
		CollectionID: &col.ID,
		Favorite:     &fav,
		Tags:         []string{"go"},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].ID != rec.ID {
		t.Errorf("expected one combined match, got %v", listIDs(list))
	}
	if list.Items[0].CollectionName == nil || *list.Items[0].CollectionName != "Reading" {
		t.Errorf("expected collection name, got %v", list.Items[0].CollectionName)
	}
	if len(list.Items[0].Tags) != 1 || list.Items[0].Tags[0] != "go" {
		t.Errorf("expected tags on listing rows, got %v", list.Items[0].Tags)
	}
}

func TestListResourcesPaginationStable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const total = 25
	for i := 0; i < total; i++ {
		mustCreateLink(t, s, fmt.Sprintf("Resource %02d", i), fmt.Sprintf("https://example.com/%d", i))
	}

	// Walking the pages with a fixed sort yields every resource exactly once.
	seen := map[int64]bool{}
	for offset := 0; offset < total; offset += 10 {
		list, err := s.ListResources(ctx, testOwnerID, &store.ResourceFilter{
			Sort: store.SortCreatedAt, Direction: store.SortAsc,
			Limit: 10, Offset: offset,
		})
		if err != nil {
			t.Fatalf("list page at %d: %v", offset, err)
		}
		if list.Pagination.Total != total {
			t.Errorf("expected total %d, got %d", total, list.Pagination.Total)
		}
		for _, item := range list.Items {
			if seen[item.ID] {
				t.Errorf("resource %d appeared twice", item.ID)
			}
			seen[item.ID] = true
		}
	}
	if len(seen) != total {
		t.Errorf("expected %d distinct resources across pages, got %d", total, len(seen))
	}
}

func TestListResourcesSortWhitelist(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ListResources(context.Background(), testOwnerID, &store.ResourceFilter{
		Sort: "title; DROP TABLE resources",
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown sort field, got %v", err)
	}

	_, err = s.ListResources(context.Background(), testOwnerID, &store.ResourceFilter{
		Sort: store.SortRelevance,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for relevance without query, got %v", err)
	}
}

func TestListResourcesSearchRanking(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	titleHit := mustCreateLink(t, s, "Vue composition API", "https://example.com/vue")

	content := "Comparing frameworks. Vue appears once in this body text."
	note, err := s.CreateResource(ctx, &domain.Resource{
		OwnerID: testOwnerID, Type: domain.ResourceNote,
		Title: "Frontend frameworks", Content: &content,
	}, nil)
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	mustCreateLink(t, s, "Unrelated", "https://example.com/other")

	list, err := s.ListResources(ctx, testOwnerID, &store.ResourceFilter{Query: "vue"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(list.Items) != 2 {
		t.Fatalf("expected 2 hits, got %v", listIDs(list))
	}
	// The title match outranks the body-only match.
	if list.Items[0].ID != titleHit.ID {
		t.Errorf("expected title match first, got %v", listIDs(list))
	}
	if list.Items[1].ID != note.ID {
		t.Errorf("expected content match second, got %v", listIDs(list))
	}

	// Title highlight carries the marker.
	hl, ok := list.Highlights[titleHit.ID]
	if !ok {
		t.Fatal("expected highlights for the title match")
	}
	if !strings.Contains(hl["title"], "<mark>") {
		t.Errorf("expected marked title highlight, got %q", hl["title"])
	}
}

func TestListResourcesSearchByTag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tagged := mustCreateLink(t, s, "Some article", "https://example.com/a", "distributed-systems")
	mustCreateLink(t, s, "Another", "https://example.com/b")

	list, err := s.ListResources(ctx, testOwnerID, &store.ResourceFilter{Query: "distributed"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].ID != tagged.ID {
		t.Errorf("expected tag text to be searchable, got %v", listIDs(list))
	}
}

func TestListResourcesQueryInjection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateLink(t, s, "Plain", "https://example.com/plain")

	// FTS5 operators in user input are literal terms, never syntax errors.
	for _, query := range []string{`"unbalanced`, `NEAR(`, `a AND OR`, `col:value`, `*`} {
		if _, err := s.ListResources(ctx, testOwnerID, &store.ResourceFilter{Query: query}); err != nil {
			t.Errorf("query %q: unexpected error %v", query, err)
		}
	}
}

func TestListResourcesEmptyQueryTermsEmptyPage(t *testing.T) {
	s := newTestStore(t)
	mustCreateLink(t, s, "Something", "https://example.com/s")

	// Punctuation-only input has no indexable terms.
	list, err := s.ListResources(context.Background(), testOwnerID, &store.ResourceFilter{Query: "!!! ???"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Items) != 0 || list.Pagination.Total != 0 {
		t.Errorf("expected empty page, got %v", listIDs(list))
	}
}

func TestListResourcesUpdateVisibleInSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := mustCreateLink(t, s, "Old title", "https://example.com/r")

	title := "Quantum computing primer"
	if _, err := s.UpdateResource(ctx, testOwnerID, r.ID, &store.ResourceUpdate{Title: &title}); err != nil {
		t.Fatalf("update: %v", err)
	}

	list, err := s.ListResources(ctx, testOwnerID, &store.ResourceFilter{Query: "quantum"})
	if err != nil {
		t.Fatalf("search new title: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].ID != r.ID {
		t.Errorf("expected new title to match, got %v", listIDs(list))
	}

	list, err = s.ListResources(ctx, testOwnerID, &store.ResourceFilter{Query: "old"})
	if err != nil {
		t.Fatalf("search old title: %v", err)
	}
	if len(list.Items) != 0 {
		t.Errorf("expected old title to stop matching, got %v", listIDs(list))
	}
}

func TestSuggest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateLink(t, s, "Golang generics", "https://example.com/1", "go", "golang")
	mustCreateLink(t, s, "Gophers", "https://example.com/2", "go")

	suggestions, err := s.Suggest(ctx, testOwnerID, "go", 10)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if len(suggestions) == 0 {
		t.Fatal("expected suggestions")
	}

	// Tags come first, most used first.
	if suggestions[0].Kind != "tag" || suggestions[0].Text != "go" {
		t.Errorf("expected most-used tag first, got %+v", suggestions[0])
	}

	texts := map[string]bool{}
	for _, sg := range suggestions {
		texts[sg.Text] = true
	}
	if !texts["golang"] || !texts["Golang generics"] || !texts["Gophers"] {
		t.Errorf("missing expected suggestions: %+v", suggestions)
	}

	empty, err := s.Suggest(ctx, testOwnerID, "   ", 10)
	if err != nil {
		t.Fatalf("suggest blank: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no suggestions for blank prefix, got %+v", empty)
	}
}
