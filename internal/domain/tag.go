package domain

import (
	"strings"
	"time"
)

// DefaultTagColor is applied when a tag is created lazily without a color.
const DefaultTagColor = "#64748b"

// Tag is a per-owner label. Name is unique per owner after normalization.
// UsageCount is denormalized and always equals the number of live
// resource_tags rows referencing the tag.
type Tag struct {
	ID          int64     `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Description *string   `json:"description,omitempty"`
	UsageCount  int64     `json:"usage_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NormalizeTagName lowercases, trims, and collapses interior whitespace.
// Returns "" for names that are empty after normalization.
func NormalizeTagName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return ""
	}
	return strings.Join(strings.Fields(name), " ")
}

// NormalizeTagNames normalizes and deduplicates a list, preserving the
// first-seen order and dropping names that normalize to "".
func NormalizeTagNames(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		name := NormalizeTagName(r)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
