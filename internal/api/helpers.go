package api

import (
	"encoding/json/v2"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/keepstack/keepstack-server/internal/domain"
	"github.com/keepstack/keepstack-server/internal/store"
)

// decodeJSON decodes a request body into dst. Malformed bodies are reported
// as invalid input, never as internal errors.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.UnmarshalRead(r.Body, dst); err != nil {
		return store.ErrInvalidInput.WithMessage("malformed JSON body").WithCause(err)
	}
	return nil
}

// urlParamInt64 parses a numeric URL parameter.
func urlParamInt64(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, store.ErrInvalidInput.WithMessage(name + " must be a positive integer")
	}
	return id, nil
}

// queryBool parses an optional boolean query parameter. Absent or
// unparseable values are nil.
func queryBool(r *http.Request, name string) *bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

// queryInt parses an optional integer query parameter, returning def when
// absent or unparseable.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// queryInt64Ptr parses an optional int64 query parameter.
func queryInt64Ptr(r *http.Request, name string) *int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseResourceFilter maps listing/search query parameters onto the
// structured filter. Unknown enum values surface from filter validation,
// not from parsing.
func parseResourceFilter(r *http.Request) *store.ResourceFilter {
	q := r.URL.Query()

	filter := &store.ResourceFilter{
		CollectionID: queryInt64Ptr(r, "collection_id"),
		Favorite:     queryBool(r, "favorite"),
		Archived:     queryBool(r, "archived"),
		Private:      queryBool(r, "private"),
		Read:         queryBool(r, "read"),
		Query:        strings.TrimSpace(q.Get("q")),
		Sort:         store.SortField(q.Get("sort")),
		Direction:    store.SortDirection(q.Get("direction")),
		TagMode:      store.TagMode(q.Get("tag_mode")),
		Limit:        queryInt(r, "limit", 0),
		Offset:       queryInt(r, "offset", 0),
	}

	if raw := q.Get("type"); raw != "" {
		t := domain.ResourceType(raw)
		filter.Type = &t
	}
	if raw := q.Get("tags"); raw != "" {
		filter.Tags = strings.Split(raw, ",")
	}

	return filter
}

// parsePageParams extracts limit/offset pagination from the query string.
func parsePageParams(r *http.Request) store.PageParams {
	return store.PageParams{
		Limit:  queryInt(r, "limit", 0),
		Offset: queryInt(r, "offset", 0),
	}
}
