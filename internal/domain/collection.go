package domain

import "time"

// Collection defaults applied on create when the caller leaves them empty.
const (
	DefaultCollectionColor = "#3b82f6"
	DefaultCollectionIcon  = "folder"
)

// Collection is an owner-scoped grouping bucket for resources, arranged in a
// shallow tree via ParentID. Resources hold a non-owning reference to it:
// deleting a collection detaches its resources, it never deletes them.
// ResourceCount is denormalized and maintained alongside resource mutations.
type Collection struct {
	ID            int64     `json:"id"`
	OwnerID       string    `json:"owner_id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description,omitempty"`
	Color         string    `json:"color"`
	Icon          string    `json:"icon"`
	SortOrder     int64     `json:"sort_order"`
	ParentID      *int64    `json:"parent_id,omitempty"`
	IsDefault     bool      `json:"is_default"`
	IsPublic      bool      `json:"is_public"`
	ResourceCount int64     `json:"resource_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ApplyDefaults fills empty presentation fields.
func (c *Collection) ApplyDefaults() {
	if c.Color == "" {
		c.Color = DefaultCollectionColor
	}
	if c.Icon == "" {
		c.Icon = DefaultCollectionIcon
	}
}
