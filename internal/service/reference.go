package service

import (
	"context"
	"log/slog"

	"github.com/keepstack/keepstack-server/internal/domain"
	"github.com/keepstack/keepstack-server/internal/store"
)

// ReferenceService manages directed edges between resources.
type ReferenceService struct {
	store  store.Store
	logger *slog.Logger
}

// NewReferenceService creates a new reference service.
func NewReferenceService(st store.Store, logger *slog.Logger) *ReferenceService {
	return &ReferenceService{store: st, logger: logger}
}

// CreateReferenceRequest links a source resource to a target resource.
type CreateReferenceRequest struct {
	SourceID int64  `json:"source_id" validate:"required"`
	TargetID int64  `json:"target_id" validate:"required"`
	Type     string `json:"type" validate:"required"`
}

// Create persists a new edge. Both endpoints must be owned; a duplicate
// (source, target, type) edge is a conflict.
func (s *ReferenceService) Create(ctx context.Context, ownerID string, req CreateReferenceRequest) (*domain.Reference, error) {
	ref := &domain.Reference{
		SourceID: req.SourceID,
		TargetID: req.TargetID,
		Type:     domain.ReferenceType(req.Type),
	}

	created, err := s.store.CreateReference(ctx, ownerID, ref)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reference created",
		"reference_id", created.ID,
		"source_id", created.SourceID,
		"target_id", created.TargetID,
		"type", created.Type,
	)
	return created, nil
}

// Delete removes an owned edge.
func (s *ReferenceService) Delete(ctx context.Context, ownerID string, referenceID int64) error {
	if err := s.store.DeleteReference(ctx, ownerID, referenceID); err != nil {
		return err
	}
	s.logger.Info("Reference deleted", "reference_id", referenceID)
	return nil
}

// List returns the edges around one resource, filtered by direction and type.
func (s *ReferenceService) List(ctx context.Context, ownerID string, resourceID int64, filter *store.ReferenceFilter) ([]*domain.Reference, error) {
	if filter == nil {
		filter = &store.ReferenceFilter{}
	}
	return s.store.ListReferences(ctx, ownerID, resourceID, filter)
}
