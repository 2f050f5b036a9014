package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/keepstack/keepstack-server/internal/domain"
	"github.com/keepstack/keepstack-server/internal/store"
)

// collectionColumns is the ordered list of columns selected in collection
// queries. Must match the scan order in scanCollection.
const collectionColumns = `id, owner_id, name, description, color, icon, sort_order,
	parent_id, is_default, is_public, resource_count, created_at, updated_at`

// scanCollection scans a sql.Row (or sql.Rows via its Scan method) into a
// domain.Collection.
func scanCollection(scanner interface{ Scan(dest ...any) error }) (*domain.Collection, error) {
	var c domain.Collection

	var (
		description sql.NullString
		parentID    sql.NullInt64
		createdAt   string
		updatedAt   string
	)

	err := scanner.Scan(
		&c.ID,
		&c.OwnerID,
		&c.Name,
		&description,
		&c.Color,
		&c.Icon,
		&c.SortOrder,
		&parentID,
		&c.IsDefault,
		&c.IsPublic,
		&c.ResourceCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Description = stringPointer(description)
	c.ParentID = int64Pointer(parentID)

	c.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	c.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// CreateCollection inserts a collection. A parent, when given, must belong
// to the same owner.
func (s *Store) CreateCollection(ctx context.Context, c *domain.Collection) (*domain.Collection, error) {
	if c.Name == "" {
		return nil, store.ErrInvalidInput.WithMessage("name is required")
	}
	c.ApplyDefaults()

	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	err := s.execTx(ctx, func(tx *sql.Tx) error {
		if c.ParentID != nil {
			if err := verifyCollection(ctx, tx, c.OwnerID, *c.ParentID); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO collections (
				owner_id, name, description, color, icon, sort_order,
				parent_id, is_default, is_public, resource_count, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
			c.OwnerID, c.Name, nullableString(c.Description), c.Color, c.Icon, c.SortOrder,
			nullableInt64(c.ParentID), c.IsDefault, c.IsPublic,
			formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
		)
		if err != nil {
			return classify(err)
		}
		c.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("collection created", "collection_id", c.ID, "name", c.Name, "owner_id", c.OwnerID)
	return c, nil
}

// GetCollection retrieves one collection by id.
func (s *Store) GetCollection(ctx context.Context, ownerID string, id int64) (*domain.Collection, error) {
	c, err := scanCollection(s.db.QueryRowContext(ctx, `
		SELECT `+collectionColumns+` FROM collections
		WHERE id = ? AND owner_id = ?`, id, ownerID))
	if err != nil {
		return nil, classify(err)
	}
	return c, nil
}

// ListCollections returns every collection for the owner, ordered by sort
// order then name. Single-owner cardinality makes pagination unnecessary.
func (s *Store) ListCollections(ctx context.Context, ownerID string) ([]*domain.Collection, error) {
	rows, err := s.queryRetry(ctx, `
		SELECT `+collectionColumns+` FROM collections
		WHERE owner_id = ?
		ORDER BY sort_order ASC, name COLLATE NOCASE ASC`, ownerID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	collections := []*domain.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// UpdateCollection applies a partial update. Re-parenting validates
// ownership and rejects self-reference and ancestor cycles.
func (s *Store) UpdateCollection(ctx context.Context, ownerID string, id int64, upd *store.CollectionUpdate) (*domain.Collection, error) {
	err := s.execTx(ctx, func(tx *sql.Tx) error {
		current, err := scanCollection(tx.QueryRowContext(ctx, `
			SELECT `+collectionColumns+` FROM collections
			WHERE id = ? AND owner_id = ?`, id, ownerID))
		if err != nil {
			return classify(err)
		}

		merged := *current
		if upd.Name != nil {
			if *upd.Name == "" {
				return store.ErrInvalidInput.WithMessage("name is required")
			}
			merged.Name = *upd.Name
		}
		merged.Description = upd.Description.Apply(current.Description)
		if upd.Color != nil {
			merged.Color = *upd.Color
		}
		if upd.Icon != nil {
			merged.Icon = *upd.Icon
		}
		if upd.SortOrder != nil {
			merged.SortOrder = *upd.SortOrder
		}
		if upd.IsPublic != nil {
			merged.IsPublic = *upd.IsPublic
		}

		merged.ParentID = upd.Parent.Apply(current.ParentID)
		if upd.Parent.IsSet() {
			parent := upd.Parent.Value()
			if parent == id {
				return store.ErrInvalidInput.WithMessage("collection cannot be its own parent")
			}
			if err := verifyCollection(ctx, tx, ownerID, parent); err != nil {
				return err
			}
			if err := rejectCycle(ctx, tx, id, parent); err != nil {
				return err
			}
		}

		merged.UpdatedAt = time.Now().UTC()

		_, err = tx.ExecContext(ctx, `
			UPDATE collections SET
				name = ?, description = ?, color = ?, icon = ?, sort_order = ?,
				parent_id = ?, is_public = ?, updated_at = ?
			WHERE id = ?`,
			merged.Name, nullableString(merged.Description), merged.Color, merged.Icon,
			merged.SortOrder, nullableInt64(merged.ParentID), merged.IsPublic,
			formatTime(merged.UpdatedAt), id,
		)
		return classify(err)
	})
	if err != nil {
		return nil, err
	}
	return s.GetCollection(ctx, ownerID, id)
}

// rejectCycle walks the proposed parent's ancestor chain; finding the
// collection itself there would close a loop.
func rejectCycle(ctx context.Context, tx *sql.Tx, id, parent int64) error {
	cursor := parent
	for {
		var next sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT parent_id FROM collections WHERE id = ?`, cursor).Scan(&next)
		if err == sql.ErrNoRows || (err == nil && !next.Valid) {
			return nil
		}
		if err != nil {
			return classify(err)
		}
		if next.Int64 == id {
			return store.ErrInvalidInput.WithMessage("collection hierarchy cannot contain cycles")
		}
		cursor = next.Int64
	}
}

// DeleteCollection removes a collection. Resources in it are detached, not
// deleted; child collections are promoted to the root. The default
// collection cannot be removed.
func (s *Store) DeleteCollection(ctx context.Context, ownerID string, id int64) error {
	err := s.execTx(ctx, func(tx *sql.Tx) error {
		var isDefault bool
		err := tx.QueryRowContext(ctx,
			`SELECT is_default FROM collections WHERE id = ? AND owner_id = ?`,
			id, ownerID).Scan(&isDefault)
		if err == sql.ErrNoRows {
			return store.ErrNotFound
		}
		if err != nil {
			return classify(err)
		}
		if isDefault {
			return store.ErrInvalidInput.WithMessage("default collection cannot be deleted")
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE resources SET collection_id = NULL WHERE collection_id = ?`, id); err != nil {
			return classify(err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE collections SET parent_id = NULL WHERE parent_id = ?`, id); err != nil {
			return classify(err)
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id)
		return classify(err)
	})
	if err != nil {
		return err
	}

	s.logger.Info("collection deleted", "collection_id", id, "owner_id", ownerID)
	return nil
}
