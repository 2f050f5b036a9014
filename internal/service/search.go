package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/keepstack/keepstack-server/internal/store"
)

// MaxSuggestions caps the autocomplete result size.
const MaxSuggestions = 10

// SearchService fronts the listing/search path and the suggestion endpoint.
// Search is the same predicate pipeline as listing with a free-text query
// attached, so both share ResourceService's store path.
type SearchService struct {
	store  store.Store
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(st store.Store, logger *slog.Logger) *SearchService {
	return &SearchService{store: st, logger: logger}
}

// Search runs a free-text search combined with the structured filter.
// Results default to relevance order with highlights per indexed field.
func (s *SearchService) Search(ctx context.Context, ownerID, query string, filter *store.ResourceFilter) (*store.ResourceList, error) {
	if filter == nil {
		filter = &store.ResourceFilter{}
	}
	filter.Query = strings.TrimSpace(query)
	return s.store.ListResources(ctx, ownerID, filter)
}

// Suggest returns autocomplete entries for a prefix: matching tags ordered
// by usage first, then matching titles, deduplicated and capped.
func (s *SearchService) Suggest(ctx context.Context, ownerID, prefix string, limit int) ([]store.Suggestion, error) {
	if limit <= 0 || limit > MaxSuggestions {
		limit = MaxSuggestions
	}
	return s.store.Suggest(ctx, ownerID, prefix, limit)
}
