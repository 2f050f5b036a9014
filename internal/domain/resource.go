// Package domain contains the core entities of the KeepStack server.
package domain

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ResourceType is the closed set of resource variants.
type ResourceType string

const (
	ResourceLink    ResourceType = "link"
	ResourceNote    ResourceType = "note"
	ResourceSnippet ResourceType = "snippet"
	ResourceFile    ResourceType = "file"
)

// ParseResourceType validates a raw type string.
func ParseResourceType(s string) (ResourceType, error) {
	switch ResourceType(s) {
	case ResourceLink, ResourceNote, ResourceSnippet, ResourceFile:
		return ResourceType(s), nil
	}
	return "", fmt.Errorf("unknown resource type %q", s)
}

// Field limits shared by the service and HTTP layers.
const (
	MaxTitleLength       = 500
	MaxDescriptionLength = 2000
	MaxContentLength     = 100_000
	MaxURLLength         = 2048
	MaxBatchSize         = 100
)

// Resource is the central stored item. Exactly the payload fields relevant
// to its type are populated: URL for links, Content for notes and snippets,
// Source and MimeType for files.
type Resource struct {
	ID           int64          `json:"id"`
	OwnerID      string         `json:"owner_id"`
	Type         ResourceType   `json:"type"`
	Title        string         `json:"title"`
	URL          *string        `json:"url,omitempty"`
	Content      *string        `json:"content,omitempty"`
	Source       *string        `json:"source,omitempty"`
	MimeType     *string        `json:"mime_type,omitempty"`
	Description  *string        `json:"description,omitempty"`
	CollectionID *int64         `json:"collection_id,omitempty"`
	Favorite     bool           `json:"favorite"`
	Archived     bool           `json:"archived"`
	Private      bool           `json:"private"`
	Read         bool           `json:"read"`
	VisitCount   int64          `json:"visit_count"`
	LastVisited  *time.Time     `json:"last_visited,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Validation errors reported with the offending field.
var (
	ErrTitleRequired  = errors.New("title: required")
	ErrTitleTooLong   = errors.New("title: exceeds maximum length")
	ErrDescTooLong    = errors.New("description: exceeds maximum length")
	ErrContentTooLong = errors.New("content: exceeds maximum length")
	ErrURLRequired    = errors.New("url: required for link resources")
	ErrURLTooLong     = errors.New("url: exceeds maximum length")
	ErrURLInvalid     = errors.New("url: must be an absolute http or https URL")
	ErrContentMissing = errors.New("content: required for note and snippet resources")
	ErrSourceMissing  = errors.New("source: required for file resources")
)

// Validate checks the type-independent and type-specific constraints.
func (r *Resource) Validate() error {
	if r.Title == "" {
		return ErrTitleRequired
	}
	if len(r.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if r.Description != nil && len(*r.Description) > MaxDescriptionLength {
		return ErrDescTooLong
	}
	if r.Content != nil && len(*r.Content) > MaxContentLength {
		return ErrContentTooLong
	}

	switch r.Type {
	case ResourceLink:
		if r.URL == nil || *r.URL == "" {
			return ErrURLRequired
		}
		return validateURL(*r.URL)
	case ResourceNote, ResourceSnippet:
		if r.Content == nil || *r.Content == "" {
			return ErrContentMissing
		}
	case ResourceFile:
		if r.Source == nil || *r.Source == "" {
			return ErrSourceMissing
		}
	default:
		return fmt.Errorf("unknown resource type %q", r.Type)
	}
	return nil
}

func validateURL(raw string) error {
	if len(raw) > MaxURLLength {
		return ErrURLTooLong
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrURLInvalid
	}
	return nil
}

// Domain returns the host of a link resource's URL, or "" for other types.
func (r *Resource) Domain() string {
	if r.URL == nil {
		return ""
	}
	u, err := url.Parse(*r.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
