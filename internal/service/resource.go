package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/keepstack/keepstack-server/internal/domain"
	"github.com/keepstack/keepstack-server/internal/store"
)

// ResourceService owns the resource lifecycle: create, read, partial update,
// delete, visit tracking, listing and batch operations.
type ResourceService struct {
	store  store.Store
	logger *slog.Logger
}

// NewResourceService creates a new resource service.
func NewResourceService(st store.Store, logger *slog.Logger) *ResourceService {
	return &ResourceService{store: st, logger: logger}
}

// CreateResourceRequest carries the fields for a new resource. Exactly the
// payload fields matching Type are required; domain validation enforces it.
type CreateResourceRequest struct {
	Type         string         `json:"type" validate:"required"`
	Title        string         `json:"title" validate:"required"`
	URL          *string        `json:"url,omitempty"`
	Content      *string        `json:"content,omitempty"`
	Source       *string        `json:"source,omitempty"`
	MimeType     *string        `json:"mime_type,omitempty"`
	Description  *string        `json:"description,omitempty"`
	CollectionID *int64         `json:"collection_id,omitempty"`
	Favorite     bool           `json:"favorite"`
	Private      bool           `json:"private"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
}

// UpdateResourceRequest is a partial update. Pointer fields replace when
// present; the Patch fields distinguish clearing from leaving alone; a
// non-nil Tags replaces the whole tag set.
type UpdateResourceRequest struct {
	Title       *string              `json:"title,omitempty"`
	URL         *string              `json:"url,omitempty"`
	Content     *string              `json:"content,omitempty"`
	Source      *string              `json:"source,omitempty"`
	MimeType    *string              `json:"mime_type,omitempty"`
	Description domain.Patch[string] `json:"description"`
	Collection  domain.Patch[int64]  `json:"collection_id"`
	Favorite    *bool                `json:"favorite,omitempty"`
	Archived    *bool                `json:"archived,omitempty"`
	Private     *bool                `json:"private,omitempty"`
	Read        *bool                `json:"read,omitempty"`
	Metadata    map[string]any       `json:"metadata,omitempty"`
	Tags        *[]string            `json:"tags,omitempty"`
}

// Create validates and persists a new resource with its tag set.
func (s *ResourceService) Create(ctx context.Context, ownerID string, req CreateResourceRequest) (*store.ResourceRecord, error) {
	resourceType, err := domain.ParseResourceType(req.Type)
	if err != nil {
		return nil, store.ErrInvalidInput.WithMessage(err.Error())
	}

	resource := &domain.Resource{
		OwnerID:      ownerID,
		Type:         resourceType,
		Title:        req.Title,
		URL:          req.URL,
		Content:      req.Content,
		Source:       req.Source,
		MimeType:     req.MimeType,
		Description:  req.Description,
		CollectionID: req.CollectionID,
		Favorite:     req.Favorite,
		Private:      req.Private,
		Metadata:     req.Metadata,
	}

	record, err := s.store.CreateResource(ctx, resource, req.Tags)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Resource created", "resource_id", record.ID, "type", record.Type)
	return record, nil
}

// Get returns one owned resource with its read context.
func (s *ResourceService) Get(ctx context.Context, ownerID string, resourceID int64) (*store.ResourceRecord, error) {
	return s.store.GetResource(ctx, ownerID, resourceID)
}

// Update applies a partial update and returns the updated record.
func (s *ResourceService) Update(ctx context.Context, ownerID string, resourceID int64, req UpdateResourceRequest) (*store.ResourceRecord, error) {
	upd := &store.ResourceUpdate{
		Title:       req.Title,
		URL:         req.URL,
		Content:     req.Content,
		Source:      req.Source,
		MimeType:    req.MimeType,
		Description: req.Description,
		Collection:  req.Collection,
		Favorite:    req.Favorite,
		Archived:    req.Archived,
		Private:     req.Private,
		Read:        req.Read,
		Metadata:    req.Metadata,
		Tags:        req.Tags,
	}

	record, err := s.store.UpdateResource(ctx, ownerID, resourceID, upd)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Resource updated", "resource_id", resourceID)
	return record, nil
}

// Delete removes a resource, its tag links, its reference edges and its
// index row.
func (s *ResourceService) Delete(ctx context.Context, ownerID string, resourceID int64) error {
	if err := s.store.DeleteResource(ctx, ownerID, resourceID); err != nil {
		return err
	}
	s.logger.Info("Resource deleted", "resource_id", resourceID)
	return nil
}

// RecordVisit bumps the visit counter and stamps the visit time without
// touching updated_at.
func (s *ResourceService) RecordVisit(ctx context.Context, ownerID string, resourceID int64) error {
	return s.store.RecordVisit(ctx, ownerID, resourceID)
}

// List runs a structured listing/search and returns one page of results.
func (s *ResourceService) List(ctx context.Context, ownerID string, filter *store.ResourceFilter) (*store.ResourceList, error) {
	return s.store.ListResources(ctx, ownerID, filter)
}

// Batch applies one action to up to MaxBatchSize owned resources atomically.
// Non-owned ids are reported skipped, never aborting the batch.
func (s *ResourceService) Batch(ctx context.Context, ownerID string, req *store.BatchRequest) (*store.BatchResult, error) {
	result, err := s.store.BatchApply(ctx, ownerID, req)
	if err != nil {
		return nil, fmt.Errorf("batch %s: %w", req.Action, err)
	}

	s.logger.Info("Batch applied",
		"action", req.Action,
		"processed", result.Processed,
		"skipped", len(result.Skipped),
	)
	return result, nil
}
