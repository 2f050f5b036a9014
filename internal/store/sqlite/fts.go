package sqlite

import (
	"context"
	"database/sql"

	"github.com/keepstack/keepstack-server/internal/store"
)

// ftsProjection selects the deterministic index projection of a set of
// resources: title, description, space-joined tag names, url, and content.
const ftsProjection = `
	SELECT r.id,
	       r.title,
	       COALESCE(r.description, ''),
	       COALESCE((
	           SELECT GROUP_CONCAT(t.name, ' ')
	           FROM resource_tags rt
	           JOIN tags t ON t.id = rt.tag_id
	           WHERE rt.resource_id = r.id
	       ), ''),
	       COALESCE(r.url, ''),
	       COALESCE(r.content, '')
	FROM resources r`

// syncIndex rewrites the index row for one resource inside the caller's
// transaction. Every mutation of an indexed field goes through here before
// the transaction commits; a resource row is never visible without its
// matching index row.
func (s *Store) syncIndex(ctx context.Context, tx *sql.Tx, resourceID int64) error {
	return s.reindexMany(ctx, tx, []int64{resourceID})
}

// reindexMany rewrites index rows for a set of resources with two set-based
// statements. Resources missing from the resources table simply produce no
// new row, which is exactly right for deletes.
func (s *Store) reindexMany(ctx context.Context, tx *sql.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	ph := inPlaceholders(len(ids))
	args := int64Args(ids)

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM resources_fts WHERE rowid IN (`+ph+`)`, args...); err != nil {
		return classify(err)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO resources_fts (rowid, title, description, tags, url, content)
		`+ftsProjection+` WHERE r.id IN (`+ph+`)`, args...)
	return classify(err)
}

// dropIndex removes index rows inside the caller's transaction, paired with
// the resource delete in the same transaction.
func (s *Store) dropIndex(ctx context.Context, tx *sql.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		`DELETE FROM resources_fts WHERE rowid IN (`+inPlaceholders(len(ids))+`)`,
		int64Args(ids)...)
	return classify(err)
}

// RebuildIndex regenerates the full-text index from the resources table in
// one transaction. An empty ownerID rebuilds every owner's rows. Returns the
// number of resources indexed.
func (s *Store) RebuildIndex(ctx context.Context, ownerID string) (int64, error) {
	var indexed int64
	err := s.execTx(ctx, func(tx *sql.Tx) error {
		if ownerID == "" {
			if _, err := tx.ExecContext(ctx, `DELETE FROM resources_fts`); err != nil {
				return classify(err)
			}
			res, err := tx.ExecContext(ctx, `
				INSERT INTO resources_fts (rowid, title, description, tags, url, content)
				`+ftsProjection)
			if err != nil {
				return classify(err)
			}
			indexed, err = res.RowsAffected()
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM resources_fts
			WHERE rowid IN (SELECT id FROM resources WHERE owner_id = ?)`, ownerID); err != nil {
			return classify(err)
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO resources_fts (rowid, title, description, tags, url, content)
			`+ftsProjection+` WHERE r.owner_id = ?`, ownerID)
		if err != nil {
			return classify(err)
		}
		indexed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("search index rebuilt", "owner_id", ownerID, "indexed", indexed)
	return indexed, nil
}

// VerifyIndex compares the resources table against the index and reports
// any divergence. The transactional write path makes divergence structurally
// impossible, so a failed report means external interference; the caller
// should surface store.ErrIndexInconsistent and trigger a rebuild.
func (s *Store) VerifyIndex(ctx context.Context, ownerID string) (*store.IndexReport, error) {
	report := &store.IndexReport{}

	resourceWhere := ``
	args := []any{}
	if ownerID != "" {
		resourceWhere = ` WHERE owner_id = ?`
		args = append(args, ownerID)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM resources`+resourceWhere, args...).Scan(&report.Resources); err != nil {
		return nil, classify(err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM resources_fts`).Scan(&report.Indexed); err != nil {
		return nil, classify(err)
	}

	missingQuery := `SELECT id FROM resources WHERE id NOT IN (SELECT rowid FROM resources_fts)`
	if ownerID != "" {
		missingQuery = `SELECT id FROM resources WHERE owner_id = ? AND id NOT IN (SELECT rowid FROM resources_fts)`
	}
	missing, err := s.collectIDs(ctx, missingQuery, args...)
	if err != nil {
		return nil, err
	}
	report.Missing = missing

	orphaned, err := s.collectIDs(ctx,
		`SELECT rowid FROM resources_fts WHERE rowid NOT IN (SELECT id FROM resources)`)
	if err != nil {
		return nil, err
	}
	report.Orphaned = orphaned

	return report, nil
}

func (s *Store) collectIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := s.queryRetry(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
