package service

import (
	"context"
	"log/slog"

	"github.com/keepstack/keepstack-server/internal/domain"
	"github.com/keepstack/keepstack-server/internal/store"
)

// TagService exposes the owner's tag vocabulary. Tags are mostly created
// lazily through resource mutations; this service adds the explicit surface.
type TagService struct {
	store  store.Store
	logger *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(st store.Store, logger *slog.Logger) *TagService {
	return &TagService{store: st, logger: logger}
}

// CreateTagRequest carries the fields for an explicitly created tag.
type CreateTagRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Color       string  `json:"color,omitempty"`
	Description *string `json:"description,omitempty"`
}

// UpdateTagRequest is a partial tag update. Renames reindex every tagged
// resource in the same transaction.
type UpdateTagRequest struct {
	Name        *string              `json:"name,omitempty"`
	Color       *string              `json:"color,omitempty"`
	Description domain.Patch[string] `json:"description"`
}

// Create persists a new tag. The name is normalized first; a normalized
// duplicate is a conflict.
func (s *TagService) Create(ctx context.Context, ownerID string, req CreateTagRequest) (*domain.Tag, error) {
	tag := &domain.Tag{
		OwnerID:     ownerID,
		Name:        req.Name,
		Color:       req.Color,
		Description: req.Description,
	}
	if err := s.store.CreateTag(ctx, tag); err != nil {
		return nil, err
	}

	s.logger.Info("Tag created", "tag_id", tag.ID, "name", tag.Name)
	return tag, nil
}

// Get returns one owned tag.
func (s *TagService) Get(ctx context.Context, ownerID string, tagID int64) (*domain.Tag, error) {
	return s.store.GetTag(ctx, ownerID, tagID)
}

// List returns a page of tags ordered by usage, optionally filtered by a
// name substring.
func (s *TagService) List(ctx context.Context, ownerID, nameSearch string, page store.PageParams) (*store.PaginatedResult[*domain.Tag], error) {
	return s.store.ListTags(ctx, ownerID, nameSearch, page)
}

// Popular returns the most-used tags, excluding unused ones.
func (s *TagService) Popular(ctx context.Context, ownerID string, limit int) ([]*domain.Tag, error) {
	return s.store.PopularTags(ctx, ownerID, limit)
}

// Update applies a partial tag update.
func (s *TagService) Update(ctx context.Context, ownerID string, tagID int64, req UpdateTagRequest) (*domain.Tag, error) {
	updated, err := s.store.UpdateTag(ctx, ownerID, tagID, req.Name, req.Color, req.Description)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Tag updated", "tag_id", tagID)
	return updated, nil
}

// Delete removes a tag from every resource carrying it and reindexes those
// resources in the same transaction.
func (s *TagService) Delete(ctx context.Context, ownerID string, tagID int64) error {
	if err := s.store.DeleteTag(ctx, ownerID, tagID); err != nil {
		return err
	}
	s.logger.Info("Tag deleted", "tag_id", tagID)
	return nil
}
