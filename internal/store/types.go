package store

import (
	"github.com/keepstack/keepstack-server/internal/domain"
)

// ResourceRecord is a resource joined with its denormalized read context:
// tag names, owning collection name, and inbound+outbound reference count.
type ResourceRecord struct {
	domain.Resource
	Tags           []string `json:"tags"`
	CollectionName *string  `json:"collection_name,omitempty"`
	ReferenceCount int64    `json:"reference_count"`
}

// Highlights maps resource id -> indexed field -> highlighted fragment.
// Only populated when the listing carried a free-text query.
type Highlights map[int64]map[string]string

// ResourceList is one page of listing/search results.
type ResourceList struct {
	Items      []*ResourceRecord `json:"items"`
	Pagination Pagination        `json:"pagination"`
	Highlights Highlights        `json:"highlights,omitempty"`
}

// ResourceUpdate is a partial update. Nil pointer fields are untouched.
// Description and Collection are three-state patches so "leave alone" and
// "clear" stay distinguishable. A nil Tags leaves the tag set alone; a
// non-nil Tags replaces it wholesale.
type ResourceUpdate struct {
	Title       *string
	URL         *string
	Content     *string
	Source      *string
	MimeType    *string
	Description domain.Patch[string]
	Collection  domain.Patch[int64]
	Favorite    *bool
	Archived    *bool
	Private     *bool
	Read        *bool
	Metadata    map[string]any
	Tags        *[]string
}

// CollectionUpdate is a partial collection update with a three-state parent
// patch: re-point, detach to root, or leave alone.
type CollectionUpdate struct {
	Name        *string
	Description domain.Patch[string]
	Color       *string
	Icon        *string
	SortOrder   *int64
	IsPublic    *bool
	Parent      domain.Patch[int64]
}

// Suggestion is one autocomplete entry for the search box.
type Suggestion struct {
	Text string `json:"text"`
	Kind string `json:"kind"` // "title" or "tag"
}

// IndexReport is the result of a search index consistency check.
type IndexReport struct {
	Resources int64   `json:"resources"`
	Indexed   int64   `json:"indexed"`
	Missing   []int64 `json:"missing,omitempty"`  // resource ids without an index row
	Orphaned  []int64 `json:"orphaned,omitempty"` // index rows without a resource
}

// Consistent reports whether the index exactly mirrors the resources table.
func (r *IndexReport) Consistent() bool {
	return len(r.Missing) == 0 && len(r.Orphaned) == 0
}
