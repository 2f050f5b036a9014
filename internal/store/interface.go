// Package store defines the persistence interface for the KeepStack server.
package store

import (
	"context"
	"time"

	"github.com/keepstack/keepstack-server/internal/domain"
)

// Store defines the interface for all persistence operations. The SQLite
// implementation is the only one shipped; the interface keeps services
// testable and the wiring explicit.
type Store interface {
	// Lifecycle
	Close() error

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	CountUsers(ctx context.Context) (int64, error)

	// Auth Sessions
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	RotateSession(ctx context.Context, sessionID, newTokenHash string, expiresAt time.Time) error
	RevokeSession(ctx context.Context, sessionID string) error
	RevokeUserSessions(ctx context.Context, userID string) error
	DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error)

	// Resources
	CreateResource(ctx context.Context, resource *domain.Resource, tagNames []string) (*ResourceRecord, error)
	GetResource(ctx context.Context, ownerID string, id int64) (*ResourceRecord, error)
	UpdateResource(ctx context.Context, ownerID string, id int64, upd *ResourceUpdate) (*ResourceRecord, error)
	DeleteResource(ctx context.Context, ownerID string, id int64) error
	RecordVisit(ctx context.Context, ownerID string, id int64) error
	ListResources(ctx context.Context, ownerID string, filter *ResourceFilter) (*ResourceList, error)
	Suggest(ctx context.Context, ownerID, prefix string, limit int) ([]Suggestion, error)
	BatchApply(ctx context.Context, ownerID string, req *BatchRequest) (*BatchResult, error)

	// Collections
	CreateCollection(ctx context.Context, collection *domain.Collection) (*domain.Collection, error)
	GetCollection(ctx context.Context, ownerID string, id int64) (*domain.Collection, error)
	ListCollections(ctx context.Context, ownerID string) ([]*domain.Collection, error)
	UpdateCollection(ctx context.Context, ownerID string, id int64, upd *CollectionUpdate) (*domain.Collection, error)
	DeleteCollection(ctx context.Context, ownerID string, id int64) error

	// Tags
	EnsureTag(ctx context.Context, ownerID, name string) (*domain.Tag, error)
	GetTag(ctx context.Context, ownerID string, tagID int64) (*domain.Tag, error)
	GetTagByName(ctx context.Context, ownerID, name string) (*domain.Tag, error)
	ListTags(ctx context.Context, ownerID, nameSearch string, page PageParams) (*PaginatedResult[*domain.Tag], error)
	PopularTags(ctx context.Context, ownerID string, limit int) ([]*domain.Tag, error)
	CreateTag(ctx context.Context, tag *domain.Tag) error
	UpdateTag(ctx context.Context, ownerID string, tagID int64, name, color *string, description domain.Patch[string]) (*domain.Tag, error)
	DeleteTag(ctx context.Context, ownerID string, tagID int64) error

	// References
	CreateReference(ctx context.Context, ownerID string, ref *domain.Reference) (*domain.Reference, error)
	DeleteReference(ctx context.Context, ownerID string, id int64) error
	ListReferences(ctx context.Context, ownerID string, resourceID int64, filter *ReferenceFilter) ([]*domain.Reference, error)

	// Stats
	UserStats(ctx context.Context, ownerID string, period domain.StatsPeriod) (*domain.UserStats, error)

	// Search index maintenance
	RebuildIndex(ctx context.Context, ownerID string) (int64, error)
	VerifyIndex(ctx context.Context, ownerID string) (*IndexReport, error)
}
