package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/keepstack/keepstack-server/internal/domain"
	"github.com/keepstack/keepstack-server/internal/store"
)

const referenceColumns = `id, source_id, target_id, type, created_at`

func scanReference(scanner interface{ Scan(dest ...any) error }) (*domain.Reference, error) {
	var ref domain.Reference
	var createdAt string

	err := scanner.Scan(&ref.ID, &ref.SourceID, &ref.TargetID, &ref.Type, &createdAt)
	if err != nil {
		return nil, err
	}

	ref.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// CreateReference links two resources. Both endpoints must belong to the
// owner; a duplicate link of the same type is a conflict.
func (s *Store) CreateReference(ctx context.Context, ownerID string, ref *domain.Reference) (*domain.Reference, error) {
	if _, err := domain.ParseReferenceType(string(ref.Type)); err != nil {
		return nil, store.ErrInvalidInput.WithMessage(err.Error())
	}
	if ref.SourceID == ref.TargetID {
		return nil, store.ErrInvalidInput.WithMessage("resource cannot reference itself")
	}

	ref.CreatedAt = time.Now().UTC()

	err := s.execTx(ctx, func(tx *sql.Tx) error {
		for _, id := range []int64{ref.SourceID, ref.TargetID} {
			var one int
			err := tx.QueryRowContext(ctx,
				`SELECT 1 FROM resources WHERE id = ? AND owner_id = ?`, id, ownerID).Scan(&one)
			if err == sql.ErrNoRows {
				return store.ErrNotFound.WithMessage("resource not found")
			}
			if err != nil {
				return classify(err)
			}
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO resource_references (source_id, target_id, type, created_at)
			VALUES (?, ?, ?, ?)`,
			ref.SourceID, ref.TargetID, ref.Type, formatTime(ref.CreatedAt))
		if err != nil {
			return classify(err)
		}
		ref.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// DeleteReference removes a link. Ownership is checked through the source
// endpoint.
func (s *Store) DeleteReference(ctx context.Context, ownerID string, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM resource_references
		WHERE id = ? AND source_id IN (SELECT id FROM resources WHERE owner_id = ?)`,
		id, ownerID)
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

// ListReferences returns links touching a resource, filtered by direction
// and optionally by type.
func (s *Store) ListReferences(ctx context.Context, ownerID string, resourceID int64, f *store.ReferenceFilter) ([]*domain.Reference, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM resources WHERE id = ? AND owner_id = ?`, resourceID, ownerID).Scan(&one)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, classify(err)
	}

	where := ``
	args := []any{}
	switch f.Direction {
	case domain.DirectionSource:
		where = `source_id = ?`
		args = append(args, resourceID)
	case domain.DirectionTarget:
		where = `target_id = ?`
		args = append(args, resourceID)
	default:
		where = `(source_id = ? OR target_id = ?)`
		args = append(args, resourceID, resourceID)
	}
	if f.Type != nil {
		where += ` AND type = ?`
		args = append(args, string(*f.Type))
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := s.queryRetry(ctx, `
		SELECT `+referenceColumns+` FROM resource_references
		WHERE `+where+`
		ORDER BY created_at DESC, id ASC
		LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	refs := []*domain.Reference{}
	for rows.Next() {
		ref, err := scanReference(rows)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
