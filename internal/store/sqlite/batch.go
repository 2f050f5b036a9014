package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/keepstack/keepstack-server/internal/store"
)

// BatchApply runs one action over a set of resources in a single
// transaction. Ids the owner does not hold are reported as skipped, never
// silently dropped; any execution error rolls back the whole batch.
func (s *Store) BatchApply(ctx context.Context, ownerID string, req *store.BatchRequest) (*store.BatchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result := &store.BatchResult{Skipped: []int64{}}
	err := s.execTx(ctx, func(tx *sql.Tx) error {
		owned, err := s.resolveOwned(ctx, tx, ownerID, req.IDs)
		if err != nil {
			return err
		}
		ownedSet := make(map[int64]struct{}, len(owned))
		for _, id := range owned {
			ownedSet[id] = struct{}{}
		}
		for _, id := range req.IDs {
			if _, ok := ownedSet[id]; !ok {
				result.Skipped = append(result.Skipped, id)
			}
		}
		result.Processed = int64(len(owned))
		if len(owned) == 0 {
			return nil
		}

		switch req.Action {
		case store.BatchDelete:
			return s.batchDelete(ctx, tx, owned)
		case store.BatchSetFavorite:
			return s.batchSetFlag(ctx, tx, "favorite", req.Flag, owned)
		case store.BatchSetArchived:
			return s.batchSetFlag(ctx, tx, "archived", req.Flag, owned)
		case store.BatchMove:
			return s.batchMove(ctx, tx, ownerID, req.CollectionID, owned)
		case store.BatchAddTags:
			return s.batchAddTags(ctx, tx, ownerID, req.Tags, owned)
		case store.BatchRemoveTags:
			return s.batchRemoveTags(ctx, tx, ownerID, req.Tags, owned)
		default:
			return store.ErrInvalidInput.WithMessage("unknown batch action")
		}
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("batch applied",
		"action", req.Action, "owner_id", ownerID,
		"processed", result.Processed, "skipped", len(result.Skipped))
	return result, nil
}

// resolveOwned narrows the requested ids to those the owner actually holds.
func (s *Store) resolveOwned(ctx context.Context, tx *sql.Tx, ownerID string, ids []int64) ([]int64, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM resources WHERE owner_id = ? AND id IN (`+inPlaceholders(len(ids))+`)
		 ORDER BY id ASC`,
		append([]any{ownerID}, int64Args(ids)...)...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var owned []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		owned = append(owned, id)
	}
	return owned, rows.Err()
}

// batchDelete removes the resources with the same bookkeeping as a single
// delete: tag usage counters, join rows, references, collection counters,
// and index rows all inside the caller's transaction.
func (s *Store) batchDelete(ctx context.Context, tx *sql.Tx, ids []int64) error {
	ph := inPlaceholders(len(ids))
	args := int64Args(ids)

	// One decrement per join row, set-based.
	if _, err := tx.ExecContext(ctx, `
		UPDATE tags SET usage_count = usage_count - (
			SELECT COUNT(*) FROM resource_tags rt
			WHERE rt.tag_id = tags.id AND rt.resource_id IN (`+ph+`)
		)
		WHERE id IN (SELECT tag_id FROM resource_tags WHERE resource_id IN (`+ph+`))`,
		append(append([]any{}, args...), args...)...); err != nil {
		return classify(err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE collections SET resource_count = resource_count - (
			SELECT COUNT(*) FROM resources r
			WHERE r.collection_id = collections.id AND r.id IN (`+ph+`)
		)
		WHERE id IN (SELECT collection_id FROM resources
		             WHERE collection_id IS NOT NULL AND id IN (`+ph+`))`,
		append(append([]any{}, args...), args...)...); err != nil {
		return classify(err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM resource_tags WHERE resource_id IN (`+ph+`)`, args...); err != nil {
		return classify(err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM resource_references
		WHERE source_id IN (`+ph+`) OR target_id IN (`+ph+`)`,
		append(append([]any{}, args...), args...)...); err != nil {
		return classify(err)
	}
	if err := s.dropIndex(ctx, tx, ids); err != nil {
		return err
	}

	_, err := tx.ExecContext(ctx,
		`DELETE FROM resources WHERE id IN (`+ph+`)`, args...)
	return classify(err)
}

// batchFlagColumns names the only columns batchSetFlag may touch.
var batchFlagColumns = map[string]bool{"favorite": true, "archived": true}

func (s *Store) batchSetFlag(ctx context.Context, tx *sql.Tx, column string, value bool, ids []int64) error {
	if !batchFlagColumns[column] {
		return store.ErrInvalidInput.WithMessage("unknown flag column")
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE resources SET `+column+` = ?, updated_at = ?
		 WHERE id IN (`+inPlaceholders(len(ids))+`)`,
		append([]any{value, formatTime(time.Now().UTC())}, int64Args(ids)...)...)
	return classify(err)
}

// batchMove reassigns the resources to a collection (nil detaches) and
// shifts the denormalized counters by actual membership.
func (s *Store) batchMove(ctx context.Context, tx *sql.Tx, ownerID string, collectionID *int64, ids []int64) error {
	if collectionID != nil {
		if err := verifyCollection(ctx, tx, ownerID, *collectionID); err != nil {
			return err
		}
	}

	ph := inPlaceholders(len(ids))
	args := int64Args(ids)

	// Decrement the collections the resources are leaving.
	if _, err := tx.ExecContext(ctx, `
		UPDATE collections SET resource_count = resource_count - (
			SELECT COUNT(*) FROM resources r
			WHERE r.collection_id = collections.id AND r.id IN (`+ph+`)
		)
		WHERE id IN (SELECT collection_id FROM resources
		             WHERE collection_id IS NOT NULL AND id IN (`+ph+`))`,
		append(append([]any{}, args...), args...)...); err != nil {
		return classify(err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE resources SET collection_id = ?, updated_at = ?
		 WHERE id IN (`+ph+`)`,
		append([]any{nullableInt64(collectionID), formatTime(time.Now().UTC())}, args...)...)
	if err != nil {
		return classify(err)
	}

	if collectionID != nil {
		moved, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if err := adjustCollectionCount(ctx, tx, *collectionID, moved); err != nil {
			return err
		}
	}
	return nil
}

// batchAddTags attaches every tag to every resource, creating missing tags
// and bumping usage counts only for join rows actually inserted.
func (s *Store) batchAddTags(ctx context.Context, tx *sql.Tx, ownerID string, names []string, ids []int64) error {
	ph := inPlaceholders(len(ids))
	args := int64Args(ids)

	for _, name := range names {
		tagID, err := ensureTag(ctx, tx, ownerID, name)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO resource_tags (resource_id, tag_id)
			SELECT id, ? FROM resources WHERE id IN (`+ph+`)`,
			append([]any{tagID}, args...)...)
		if err != nil {
			return classify(err)
		}
		added, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if added > 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE tags SET usage_count = usage_count + ? WHERE id = ?`,
				added, tagID); err != nil {
				return classify(err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE resources SET updated_at = ? WHERE id IN (`+ph+`)`,
		append([]any{formatTime(time.Now().UTC())}, args...)...); err != nil {
		return classify(err)
	}

	return s.reindexMany(ctx, tx, ids)
}

// batchRemoveTags detaches the named tags where attached. Names that match
// no tag are a no-op, not an error.
func (s *Store) batchRemoveTags(ctx context.Context, tx *sql.Tx, ownerID string, names []string, ids []int64) error {
	ph := inPlaceholders(len(ids))
	args := int64Args(ids)

	for _, name := range names {
		var tagID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM tags WHERE owner_id = ? AND name = ?`, ownerID, name).Scan(&tagID)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return classify(err)
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM resource_tags WHERE tag_id = ? AND resource_id IN (`+ph+`)`,
			append([]any{tagID}, args...)...)
		if err != nil {
			return classify(err)
		}
		removed, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if removed > 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE tags SET usage_count = usage_count - ? WHERE id = ?`,
				removed, tagID); err != nil {
				return classify(err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE resources SET updated_at = ? WHERE id IN (`+ph+`)`,
		append([]any{formatTime(time.Now().UTC())}, args...)...); err != nil {
		return classify(err)
	}

	return s.reindexMany(ctx, tx, ids)
}
