package store

import (
	"fmt"

	"github.com/keepstack/keepstack-server/internal/domain"
)

// SortField is the enumerated set of legal sort keys. Only these identifiers
// are ever interpolated into SQL, and only after whitelist validation; every
// filter value travels as a bound parameter.
type SortField string

const (
	SortCreatedAt  SortField = "created_at"
	SortUpdatedAt  SortField = "updated_at"
	SortTitle      SortField = "title"
	SortVisitCount SortField = "visit_count"
	SortRelevance  SortField = "relevance"
)

// SortDirection is the enumerated sort direction.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// TagMode selects multi-tag filter semantics. The default is AND: a resource
// must carry every named tag. OR is an explicit opt-in.
type TagMode string

const (
	TagModeAll TagMode = "all"
	TagModeAny TagMode = "any"
)

// ResourceFilter is a structured listing/search request. Every field is
// independently optional; omitted fields impose no constraint. Supplied
// fields combine as a logical AND.
type ResourceFilter struct {
	CollectionID *int64
	Type         *domain.ResourceType
	Tags         []string
	TagMode      TagMode
	Favorite     *bool
	Archived     *bool
	Private      *bool
	Read         *bool
	Query        string
	Sort         SortField
	Direction    SortDirection
	Limit        int
	Offset       int
}

// Validate rejects malformed filters before any transaction opens and fills
// in defaults: recency ordering without a query, relevance ordering with one.
func (f *ResourceFilter) Validate() error {
	if f.Sort == "" {
		if f.Query != "" {
			f.Sort = SortRelevance
		} else {
			f.Sort = SortUpdatedAt
		}
	}
	switch f.Sort {
	case SortCreatedAt, SortUpdatedAt, SortTitle, SortVisitCount:
	case SortRelevance:
		if f.Query == "" {
			return ErrInvalidInput.WithMessage("sort: relevance requires a search query")
		}
	default:
		return ErrInvalidInput.WithMessage(fmt.Sprintf("sort: unknown field %q", f.Sort))
	}

	if f.Direction == "" {
		f.Direction = SortDesc
	}
	if f.Direction != SortAsc && f.Direction != SortDesc {
		return ErrInvalidInput.WithMessage(fmt.Sprintf("direction: must be asc or desc, got %q", f.Direction))
	}

	if f.TagMode == "" {
		f.TagMode = TagModeAll
	}
	if f.TagMode != TagModeAll && f.TagMode != TagModeAny {
		return ErrInvalidInput.WithMessage(fmt.Sprintf("tag_mode: must be all or any, got %q", f.TagMode))
	}

	if f.Type != nil {
		if _, err := domain.ParseResourceType(string(*f.Type)); err != nil {
			return ErrInvalidInput.WithMessage(err.Error())
		}
	}

	f.Tags = domain.NormalizeTagNames(f.Tags)

	page := PageParams{Limit: f.Limit, Offset: f.Offset}
	page.Normalize()
	f.Limit, f.Offset = page.Limit, page.Offset

	return nil
}

// ReferenceFilter selects reference edges around one resource.
type ReferenceFilter struct {
	Direction domain.ReferenceDirection
	Type      *domain.ReferenceType
	Limit     int
	Offset    int
}

// Validate fills defaults and rejects unknown enum values.
func (f *ReferenceFilter) Validate() error {
	dir, err := domain.ParseReferenceDirection(string(f.Direction))
	if err != nil {
		return ErrInvalidInput.WithMessage(err.Error())
	}
	f.Direction = dir

	if f.Type != nil {
		if _, err := domain.ParseReferenceType(string(*f.Type)); err != nil {
			return ErrInvalidInput.WithMessage(err.Error())
		}
	}

	page := PageParams{Limit: f.Limit, Offset: f.Offset}
	page.Normalize()
	f.Limit, f.Offset = page.Limit, page.Offset

	return nil
}

// BatchAction is the closed set of bulk operations.
type BatchAction string

const (
	BatchDelete      BatchAction = "delete"
	BatchSetFavorite BatchAction = "set_favorite"
	BatchSetArchived BatchAction = "set_archived"
	BatchMove        BatchAction = "move"
	BatchAddTags     BatchAction = "add_tags"
	BatchRemoveTags  BatchAction = "remove_tags"
)

// BatchRequest applies one action to a list of resource ids atomically.
type BatchRequest struct {
	Action BatchAction
	IDs    []int64

	// Flag is the value for set_favorite / set_archived.
	Flag bool
	// CollectionID is the destination for move; nil detaches.
	CollectionID *int64
	// Tags are the names for add_tags / remove_tags.
	Tags []string
}

// Validate rejects malformed batch requests before any transaction opens.
func (r *BatchRequest) Validate() error {
	switch r.Action {
	case BatchDelete, BatchSetFavorite, BatchSetArchived, BatchMove:
	case BatchAddTags, BatchRemoveTags:
		r.Tags = domain.NormalizeTagNames(r.Tags)
		if len(r.Tags) == 0 {
			return ErrInvalidInput.WithMessage("tags: at least one tag name is required")
		}
	default:
		return ErrInvalidInput.WithMessage(fmt.Sprintf("action: unknown batch action %q", r.Action))
	}

	if len(r.IDs) == 0 {
		return ErrInvalidInput.WithMessage("ids: at least one resource id is required")
	}
	if len(r.IDs) > domain.MaxBatchSize {
		return ErrInvalidInput.WithMessage(fmt.Sprintf("ids: batch exceeds maximum of %d", domain.MaxBatchSize))
	}
	return nil
}

// BatchResult reports what a batch touched. Skipped ids did not exist or did
// not belong to the caller; they never abort the batch.
type BatchResult struct {
	Processed int64   `json:"processed"`
	Skipped   []int64 `json:"skipped,omitempty"`
}
