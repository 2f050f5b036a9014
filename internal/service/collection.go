package service

import (
	"context"
	"log/slog"

	"github.com/keepstack/keepstack-server/internal/domain"
	"github.com/keepstack/keepstack-server/internal/store"
)

// CollectionService manages the owner's collection tree.
type CollectionService struct {
	store  store.Store
	logger *slog.Logger
}

// NewCollectionService creates a new collection service.
func NewCollectionService(st store.Store, logger *slog.Logger) *CollectionService {
	return &CollectionService{store: st, logger: logger}
}

// CreateCollectionRequest carries the fields for a new collection. Color and
// icon fall back to the domain defaults when empty.
type CreateCollectionRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description *string `json:"description,omitempty"`
	Color       string  `json:"color,omitempty"`
	Icon        string  `json:"icon,omitempty"`
	SortOrder   int64   `json:"sort_order"`
	ParentID    *int64  `json:"parent_id,omitempty"`
	IsPublic    bool    `json:"is_public"`
}

// UpdateCollectionRequest is a partial collection update. Parent is a
// three-state patch: re-point, detach to root, or leave alone.
type UpdateCollectionRequest struct {
	Name        *string              `json:"name,omitempty"`
	Description domain.Patch[string] `json:"description"`
	Color       *string              `json:"color,omitempty"`
	Icon        *string              `json:"icon,omitempty"`
	SortOrder   *int64               `json:"sort_order,omitempty"`
	IsPublic    *bool                `json:"is_public,omitempty"`
	Parent      domain.Patch[int64]  `json:"parent_id"`
}

// Create persists a new collection under the owner.
func (s *CollectionService) Create(ctx context.Context, ownerID string, req CreateCollectionRequest) (*domain.Collection, error) {
	collection := &domain.Collection{
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
		SortOrder:   req.SortOrder,
		ParentID:    req.ParentID,
		IsPublic:    req.IsPublic,
	}

	created, err := s.store.CreateCollection(ctx, collection)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Collection created", "collection_id", created.ID, "name", created.Name)
	return created, nil
}

// Get returns one owned collection.
func (s *CollectionService) Get(ctx context.Context, ownerID string, collectionID int64) (*domain.Collection, error) {
	return s.store.GetCollection(ctx, ownerID, collectionID)
}

// List returns all collections ordered by sort order then name.
func (s *CollectionService) List(ctx context.Context, ownerID string) ([]*domain.Collection, error) {
	return s.store.ListCollections(ctx, ownerID)
}

// Update applies a partial update. Parent re-pointing rejects self-parenting
// and cycles.
func (s *CollectionService) Update(ctx context.Context, ownerID string, collectionID int64, req UpdateCollectionRequest) (*domain.Collection, error) {
	upd := &store.CollectionUpdate{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
		SortOrder:   req.SortOrder,
		IsPublic:    req.IsPublic,
		Parent:      req.Parent,
	}

	updated, err := s.store.UpdateCollection(ctx, ownerID, collectionID, upd)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Collection updated", "collection_id", collectionID)
	return updated, nil
}

// Delete removes a collection, detaching its resources and promoting its
// children to the root. The default collection cannot be deleted.
func (s *CollectionService) Delete(ctx context.Context, ownerID string, collectionID int64) error {
	if err := s.store.DeleteCollection(ctx, ownerID, collectionID); err != nil {
		return err
	}
	s.logger.Info("Collection deleted", "collection_id", collectionID)
	return nil
}
