package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"fmt"
	"time"

	"github.com/keepstack/keepstack-server/internal/domain"
	"github.com/keepstack/keepstack-server/internal/store"
)

// resourceColumns is the ordered list of columns selected in resource
// queries. Must match the scan order in scanResource.
const resourceColumns = `r.id, r.owner_id, r.type, r.title, r.url, r.content, r.source, r.mime_type,
	r.description, r.collection_id, r.favorite, r.archived, r.private, r.read,
	r.visit_count, r.last_visited, r.metadata, r.created_at, r.updated_at`

// scanResource scans a sql.Row (or sql.Rows via its Scan method) into a
// domain.Resource.
func scanResource(scanner interface{ Scan(dest ...any) error }) (*domain.Resource, error) {
	var r domain.Resource

	var (
		url          sql.NullString
		content      sql.NullString
		source       sql.NullString
		mimeType     sql.NullString
		description  sql.NullString
		collectionID sql.NullInt64
		lastVisited  sql.NullString
		metadata     sql.NullString
		createdAt    string
		updatedAt    string
	)

	err := scanner.Scan(
		&r.ID,
		&r.OwnerID,
		&r.Type,
		&r.Title,
		&url,
		&content,
		&source,
		&mimeType,
		&description,
		&collectionID,
		&r.Favorite,
		&r.Archived,
		&r.Private,
		&r.Read,
		&r.VisitCount,
		&lastVisited,
		&metadata,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.URL = stringPointer(url)
	r.Content = stringPointer(content)
	r.Source = stringPointer(source)
	r.MimeType = stringPointer(mimeType)
	r.Description = stringPointer(description)
	r.CollectionID = int64Pointer(collectionID)

	if r.LastVisited, err = parseNullableTime(lastVisited); err != nil {
		return nil, err
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &r.Metadata); err != nil {
			return nil, fmt.Errorf("parse metadata: %w", err)
		}
	}

	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &r, nil
}

func marshalMetadata(m map[string]any) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal metadata: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

// CreateResource inserts a resource, its tag associations, and its search
// index row in one transaction.
func (s *Store) CreateResource(ctx context.Context, r *domain.Resource, tagNames []string) (*store.ResourceRecord, error) {
	if err := r.Validate(); err != nil {
		return nil, store.ErrInvalidInput.WithMessage(err.Error())
	}

	metadata, err := marshalMetadata(r.Metadata)
	if err != nil {
		return nil, store.ErrInvalidInput.WithCause(err)
	}

	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now

	err = s.execTx(ctx, func(tx *sql.Tx) error {
		if r.CollectionID != nil {
			if err := verifyCollection(ctx, tx, r.OwnerID, *r.CollectionID); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO resources (
				owner_id, type, title, url, content, source, mime_type, description,
				collection_id, favorite, archived, private, read,
				visit_count, last_visited, metadata, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, ?, ?, ?)`,
			r.OwnerID, r.Type, r.Title,
			nullableString(r.URL), nullableString(r.Content),
			nullableString(r.Source), nullableString(r.MimeType),
			nullableString(r.Description), nullableInt64(r.CollectionID),
			r.Favorite, r.Archived, r.Private, r.Read,
			metadata, formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
		)
		if err != nil {
			return classify(err)
		}
		if r.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		if r.CollectionID != nil {
			if err := adjustCollectionCount(ctx, tx, *r.CollectionID, 1); err != nil {
				return err
			}
		}

		if err := s.setTagsTx(ctx, tx, r.OwnerID, r.ID, tagNames); err != nil {
			return err
		}

		return s.syncIndex(ctx, tx, r.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("resource created", "resource_id", r.ID, "type", r.Type, "owner_id", r.OwnerID)
	return s.GetResource(ctx, r.OwnerID, r.ID)
}

// GetResource retrieves one resource with its tags, collection name, and
// reference count.
func (s *Store) GetResource(ctx context.Context, ownerID string, id int64) (*store.ResourceRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+resourceColumns+`, c.name,
		       (SELECT COUNT(*) FROM resource_references rr
		        WHERE rr.source_id = r.id OR rr.target_id = r.id)
		FROM resources r
		LEFT JOIN collections c ON c.id = r.collection_id
		WHERE r.id = ? AND r.owner_id = ?`, id, ownerID)

	record, err := scanResourceRecord(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, classify(err)
	}

	if record.Tags, err = s.resourceTagNames(ctx, s.db, id); err != nil {
		return nil, err
	}
	return record, nil
}

// scanResourceRecord scans resourceColumns plus collection name and
// reference count.
func scanResourceRecord(scanner interface{ Scan(dest ...any) error }) (*store.ResourceRecord, error) {
	var r domain.Resource
	var record store.ResourceRecord

	var (
		url            sql.NullString
		content        sql.NullString
		source         sql.NullString
		mimeType       sql.NullString
		description    sql.NullString
		collectionID   sql.NullInt64
		lastVisited    sql.NullString
		metadata       sql.NullString
		createdAt      string
		updatedAt      string
		collectionName sql.NullString
	)

	err := scanner.Scan(
		&r.ID, &r.OwnerID, &r.Type, &r.Title,
		&url, &content, &source, &mimeType,
		&description, &collectionID,
		&r.Favorite, &r.Archived, &r.Private, &r.Read,
		&r.VisitCount, &lastVisited, &metadata,
		&createdAt, &updatedAt,
		&collectionName, &record.ReferenceCount,
	)
	if err != nil {
		return nil, err
	}

	r.URL = stringPointer(url)
	r.Content = stringPointer(content)
	r.Source = stringPointer(source)
	r.MimeType = stringPointer(mimeType)
	r.Description = stringPointer(description)
	r.CollectionID = int64Pointer(collectionID)

	if r.LastVisited, err = parseNullableTime(lastVisited); err != nil {
		return nil, err
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &r.Metadata); err != nil {
			return nil, fmt.Errorf("parse metadata: %w", err)
		}
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	record.Resource = r
	record.CollectionName = stringPointer(collectionName)
	record.Tags = []string{}
	return &record, nil
}

// UpdateResource applies a partial update. Any changed indexed field causes
// the index row to be rewritten in the same transaction.
func (s *Store) UpdateResource(ctx context.Context, ownerID string, id int64, upd *store.ResourceUpdate) (*store.ResourceRecord, error) {
	err := s.execTx(ctx, func(tx *sql.Tx) error {
		current, err := scanResource(tx.QueryRowContext(ctx, `
			SELECT `+resourceColumns+` FROM resources r
			WHERE r.id = ? AND r.owner_id = ?`, id, ownerID))
		if err == sql.ErrNoRows {
			return store.ErrNotFound
		}
		if err != nil {
			return classify(err)
		}

		merged := *current
		if upd.Title != nil {
			merged.Title = *upd.Title
		}
		if upd.URL != nil {
			merged.URL = upd.URL
		}
		if upd.Content != nil {
			merged.Content = upd.Content
		}
		if upd.Source != nil {
			merged.Source = upd.Source
		}
		if upd.MimeType != nil {
			merged.MimeType = upd.MimeType
		}
		merged.Description = upd.Description.Apply(current.Description)
		if upd.Favorite != nil {
			merged.Favorite = *upd.Favorite
		}
		if upd.Archived != nil {
			merged.Archived = *upd.Archived
		}
		if upd.Private != nil {
			merged.Private = *upd.Private
		}
		if upd.Read != nil {
			merged.Read = *upd.Read
		}
		if upd.Metadata != nil {
			merged.Metadata = upd.Metadata
		}

		merged.CollectionID = upd.Collection.Apply(current.CollectionID)
		if upd.Collection.IsSet() {
			if err := verifyCollection(ctx, tx, ownerID, upd.Collection.Value()); err != nil {
				return err
			}
		}

		if err := merged.Validate(); err != nil {
			return store.ErrInvalidInput.WithMessage(err.Error())
		}

		metadata, err := marshalMetadata(merged.Metadata)
		if err != nil {
			return store.ErrInvalidInput.WithCause(err)
		}

		merged.UpdatedAt = time.Now().UTC()

		if _, err := tx.ExecContext(ctx, `
			UPDATE resources SET
				title = ?, url = ?, content = ?, source = ?, mime_type = ?,
				description = ?, collection_id = ?,
				favorite = ?, archived = ?, private = ?, read = ?,
				metadata = ?, updated_at = ?
			WHERE id = ?`,
			merged.Title, nullableString(merged.URL), nullableString(merged.Content),
			nullableString(merged.Source), nullableString(merged.MimeType),
			nullableString(merged.Description), nullableInt64(merged.CollectionID),
			merged.Favorite, merged.Archived, merged.Private, merged.Read,
			metadata, formatTime(merged.UpdatedAt), id,
		); err != nil {
			return classify(err)
		}

		if err := moveCollectionCount(ctx, tx, current.CollectionID, merged.CollectionID); err != nil {
			return err
		}

		if upd.Tags != nil {
			if err := s.setTagsTx(ctx, tx, ownerID, id, *upd.Tags); err != nil {
				return err
			}
		}

		return s.syncIndex(ctx, tx, id)
	})
	if err != nil {
		return nil, err
	}
	return s.GetResource(ctx, ownerID, id)
}

// DeleteResource removes a resource, its tag associations (decrementing
// usage counts), its references in both directions, and its index row,
// atomically.
func (s *Store) DeleteResource(ctx context.Context, ownerID string, id int64) error {
	err := s.execTx(ctx, func(tx *sql.Tx) error {
		var collectionID sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT collection_id FROM resources WHERE id = ? AND owner_id = ?`,
			id, ownerID).Scan(&collectionID)
		if err == sql.ErrNoRows {
			return store.ErrNotFound
		}
		if err != nil {
			return classify(err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE tags SET usage_count = usage_count - 1
			WHERE id IN (SELECT tag_id FROM resource_tags WHERE resource_id = ?)`, id); err != nil {
			return classify(err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM resource_tags WHERE resource_id = ?`, id); err != nil {
			return classify(err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM resource_references WHERE source_id = ? OR target_id = ?`, id, id); err != nil {
			return classify(err)
		}
		if err := s.dropIndex(ctx, tx, []int64{id}); err != nil {
			return err
		}
		if collectionID.Valid {
			if err := adjustCollectionCount(ctx, tx, collectionID.Int64, -1); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
		return classify(err)
	})
	if err != nil {
		return err
	}

	s.logger.Info("resource deleted", "resource_id", id, "owner_id", ownerID)
	return nil
}

// RecordVisit increments the visit counter and stamps the visit time.
// Visits do not touch updated_at; they are not content mutations.
func (s *Store) RecordVisit(ctx context.Context, ownerID string, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE resources SET visit_count = visit_count + 1, last_visited = ?
		WHERE id = ? AND owner_id = ?`,
		formatTime(time.Now().UTC()), id, ownerID)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// verifyCollection confirms the collection exists and belongs to the owner.
func verifyCollection(ctx context.Context, q dbtx, ownerID string, collectionID int64) error {
	var one int
	err := q.QueryRowContext(ctx,
		`SELECT 1 FROM collections WHERE id = ? AND owner_id = ?`,
		collectionID, ownerID).Scan(&one)
	if err == sql.ErrNoRows {
		return store.ErrNotFound.WithMessage("collection not found")
	}
	return classify(err)
}

// adjustCollectionCount moves the denormalized resource counter.
func adjustCollectionCount(ctx context.Context, q dbtx, collectionID, delta int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE collections SET resource_count = resource_count + ? WHERE id = ?`,
		delta, collectionID)
	return classify(err)
}

// moveCollectionCount shifts counters when a resource changes collections.
func moveCollectionCount(ctx context.Context, q dbtx, from, to *int64) error {
	if from != nil && (to == nil || *from != *to) {
		if err := adjustCollectionCount(ctx, q, *from, -1); err != nil {
			return err
		}
	}
	if to != nil && (from == nil || *from != *to) {
		if err := adjustCollectionCount(ctx, q, *to, 1); err != nil {
			return err
		}
	}
	return nil
}
