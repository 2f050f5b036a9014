package store

// Pagination defaults. Limits outside the range are clamped, not rejected.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PageParams contains offset-based pagination request parameters.
type PageParams struct {
	Limit  int
	Offset int
}

// Normalize clamps the parameters into their allowed ranges.
func (p *PageParams) Normalize() {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// Pagination is the metadata block returned with every page.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// NewPagination derives page metadata from a total count and page params.
func NewPagination(total int64, limit, offset int) Pagination {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	page := offset/limit + 1
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{
		Page:       page,
		Limit:      limit,
		Offset:     offset,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    int64(offset+limit) < total,
		HasPrev:    offset > 0,
	}
}

// PaginatedResult contains one page of items and its metadata.
type PaginatedResult[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}
