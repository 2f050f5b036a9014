package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/keepstack/keepstack-server/internal/domain"
	"github.com/keepstack/keepstack-server/internal/store"
)

// tagColumns is the ordered list of columns selected in tag queries.
// Must match the scan order in scanTag.
const tagColumns = `id, owner_id, name, color, description, usage_count, created_at, updated_at`

// scanTag scans a sql.Row (or sql.Rows via its Scan method) into a domain.Tag.
func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var t domain.Tag

	var (
		description sql.NullString
		createdAt   string
		updatedAt   string
	)

	err := scanner.Scan(
		&t.ID,
		&t.OwnerID,
		&t.Name,
		&t.Color,
		&description,
		&t.UsageCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Description = stringPointer(description)

	t.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so the tag primitives can run
// standalone or inside a caller's transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ensureTag looks up a tag by normalized name, creating it if absent.
// The UNIQUE(owner_id, name) constraint is the source of truth: when a
// concurrent caller wins the insert race, the conflict is retried as a
// lookup so both callers resolve to the same tag id.
func ensureTag(ctx context.Context, q dbtx, ownerID, name string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM tags WHERE owner_id = ? AND name = ?`, ownerID, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, classify(err)
	}

	now := formatTime(time.Now().UTC())
	res, err := q.ExecContext(ctx, `
		INSERT INTO tags (owner_id, name, color, usage_count, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)`,
		ownerID, name, domain.DefaultTagColor, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost the race; the winner's row is the tag.
			if err := q.QueryRowContext(ctx,
				`SELECT id FROM tags WHERE owner_id = ? AND name = ?`, ownerID, name).Scan(&id); err != nil {
				return 0, classify(err)
			}
			return id, nil
		}
		return 0, classify(err)
	}

	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, nil
}

// associate inserts the join row if absent and increments the tag's usage
// count exactly once per newly created association. Idempotent.
func associate(ctx context.Context, q dbtx, resourceID, tagID int64) (bool, error) {
	res, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO resource_tags (resource_id, tag_id) VALUES (?, ?)`,
		resourceID, tagID,
	)
	if err != nil {
		return false, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	if _, err := q.ExecContext(ctx,
		`UPDATE tags SET usage_count = usage_count + 1 WHERE id = ?`, tagID); err != nil {
		return false, classify(err)
	}
	return true, nil
}

// disassociate removes the join row if present and decrements the usage
// count exactly once per row actually removed.
func disassociate(ctx context.Context, q dbtx, resourceID, tagID int64) (bool, error) {
	res, err := q.ExecContext(ctx,
		`DELETE FROM resource_tags WHERE resource_id = ? AND tag_id = ?`,
		resourceID, tagID,
	)
	if err != nil {
		return false, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	if _, err := q.ExecContext(ctx,
		`UPDATE tags SET usage_count = usage_count - 1 WHERE id = ?`, tagID); err != nil {
		return false, classify(err)
	}
	return true, nil
}

// setTagsTx replaces the full tag set of a resource by symmetric difference
// against the current set. Shared by resource create and update; the caller
// owns the transaction and the index resync.
func (s *Store) setTagsTx(ctx context.Context, tx *sql.Tx, ownerID string, resourceID int64, names []string) error {
	names = domain.NormalizeTagNames(names)

	rows, err := tx.QueryContext(ctx, `
		SELECT t.id, t.name
		FROM resource_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.resource_id = ?`, resourceID)
	if err != nil {
		return classify(err)
	}
	current := make(map[string]int64)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return err
		}
		current[name] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	desired := make(map[string]struct{}, len(names))
	for _, name := range names {
		desired[name] = struct{}{}
	}

	for _, name := range names {
		if _, ok := current[name]; ok {
			continue
		}
		tagID, err := ensureTag(ctx, tx, ownerID, name)
		if err != nil {
			return fmt.Errorf("ensure tag %q: %w", name, err)
		}
		if _, err := associate(ctx, tx, resourceID, tagID); err != nil {
			return fmt.Errorf("associate tag %q: %w", name, err)
		}
	}

	for name, tagID := range current {
		if _, ok := desired[name]; ok {
			continue
		}
		if _, err := disassociate(ctx, tx, resourceID, tagID); err != nil {
			return fmt.Errorf("disassociate tag %q: %w", name, err)
		}
	}

	return nil
}

// EnsureTag is the public get-or-create entry point.
func (s *Store) EnsureTag(ctx context.Context, ownerID, rawName string) (*domain.Tag, error) {
	name := domain.NormalizeTagName(rawName)
	if name == "" {
		return nil, store.ErrInvalidInput.WithMessage("tag name is empty after normalization")
	}

	id, err := ensureTag(ctx, s.db, ownerID, name)
	if err != nil {
		return nil, err
	}
	return s.GetTag(ctx, ownerID, id)
}

// GetTag retrieves an owner's tag by id.
func (s *Store) GetTag(ctx context.Context, ownerID string, tagID int64) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ? AND owner_id = ?`, tagID, ownerID)

	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound.WithMessage("tag not found")
	}
	if err != nil {
		return nil, classify(err)
	}
	return t, nil
}

// GetTagByName retrieves an owner's tag by normalized name.
func (s *Store) GetTagByName(ctx context.Context, ownerID, rawName string) (*domain.Tag, error) {
	name := domain.NormalizeTagName(rawName)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE owner_id = ? AND name = ?`, ownerID, name)

	t, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound.WithMessage("tag not found")
	}
	if err != nil {
		return nil, classify(err)
	}
	return t, nil
}

// ListTags returns an owner's tags ordered by usage then name, optionally
// filtered by a substring match on the name.
func (s *Store) ListTags(ctx context.Context, ownerID, nameSearch string, page store.PageParams) (*store.PaginatedResult[*domain.Tag], error) {
	page.Normalize()

	where := `owner_id = ?`
	args := []any{ownerID}
	if nameSearch != "" {
		where += ` AND name LIKE '%' || ? || '%'`
		args = append(args, domain.NormalizeTagName(nameSearch))
	}

	var total int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tags WHERE `+where, args...).Scan(&total); err != nil {
		return nil, classify(err)
	}

	rows, err := s.queryRetry(ctx, `
		SELECT `+tagColumns+` FROM tags
		WHERE `+where+`
		ORDER BY usage_count DESC, name ASC
		LIMIT ? OFFSET ?`,
		append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &store.PaginatedResult[*domain.Tag]{
		Items:      tags,
		Pagination: store.NewPagination(total, page.Limit, page.Offset),
	}, nil
}

// PopularTags returns the owner's most used tags.
func (s *Store) PopularTags(ctx context.Context, ownerID string, limit int) ([]*domain.Tag, error) {
	if limit <= 0 || limit > store.MaxPageLimit {
		limit = 10
	}

	rows, err := s.queryRetry(ctx, `
		SELECT `+tagColumns+` FROM tags
		WHERE owner_id = ? AND usage_count > 0
		ORDER BY usage_count DESC, name ASC
		LIMIT ?`, ownerID, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// CreateTag explicitly creates a tag. Returns store.ErrAlreadyExists when
// the owner already has a tag with that normalized name.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	name := domain.NormalizeTagName(t.Name)
	if name == "" {
		return store.ErrInvalidInput.WithMessage("tag name is empty after normalization")
	}
	t.Name = name
	if t.Color == "" {
		t.Color = domain.DefaultTagColor
	}

	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (owner_id, name, color, description, usage_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)`,
		t.OwnerID, t.Name, t.Color, nullableString(t.Description),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage(fmt.Sprintf("tag %q already exists", t.Name))
		}
		return classify(err)
	}

	t.ID, err = res.LastInsertId()
	return err
}

// UpdateTag updates a tag's mutable fields. A rename rewrites the index row
// of every resource carrying the tag, in the same transaction, since tag
// names are part of the indexed projection.
func (s *Store) UpdateTag(ctx context.Context, ownerID string, tagID int64, name, color *string, description domain.Patch[string]) (*domain.Tag, error) {
	err := s.execTx(ctx, func(tx *sql.Tx) error {
		current, err := scanTag(tx.QueryRowContext(ctx,
			`SELECT `+tagColumns+` FROM tags WHERE id = ? AND owner_id = ?`, tagID, ownerID))
		if err == sql.ErrNoRows {
			return store.ErrNotFound.WithMessage("tag not found")
		}
		if err != nil {
			return classify(err)
		}

		newName := current.Name
		if name != nil {
			newName = domain.NormalizeTagName(*name)
			if newName == "" {
				return store.ErrInvalidInput.WithMessage("tag name is empty after normalization")
			}
		}
		newColor := current.Color
		if color != nil {
			newColor = *color
		}
		newDescription := description.Apply(current.Description)

		_, err = tx.ExecContext(ctx, `
			UPDATE tags SET name = ?, color = ?, description = ?, updated_at = ?
			WHERE id = ?`,
			newName, newColor, nullableString(newDescription),
			formatTime(time.Now().UTC()), tagID,
		)
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists.WithMessage(fmt.Sprintf("tag %q already exists", newName))
		}
		if err != nil {
			return classify(err)
		}

		if newName != current.Name {
			return s.reindexTagged(ctx, tx, tagID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetTag(ctx, ownerID, tagID)
}

// DeleteTag removes a tag. Join rows cascade; the affected resources get
// their index rows rewritten without the deleted name.
func (s *Store) DeleteTag(ctx context.Context, ownerID string, tagID int64) error {
	return s.execTx(ctx, func(tx *sql.Tx) error {
		affected, err := taggedResourceIDs(ctx, tx, tagID)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM tags WHERE id = ? AND owner_id = ?`, tagID, ownerID)
		if err != nil {
			return classify(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound.WithMessage("tag not found")
		}

		return s.reindexMany(ctx, tx, affected)
	})
}

// reindexTagged rewrites the index rows of every resource carrying a tag.
func (s *Store) reindexTagged(ctx context.Context, tx *sql.Tx, tagID int64) error {
	ids, err := taggedResourceIDs(ctx, tx, tagID)
	if err != nil {
		return err
	}
	return s.reindexMany(ctx, tx, ids)
}

func taggedResourceIDs(ctx context.Context, q dbtx, tagID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT resource_id FROM resource_tags WHERE tag_id = ?`, tagID)
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

// resourceTagNames returns the tag names on a resource, ordered by name.
func (s *Store) resourceTagNames(ctx context.Context, q dbtx, resourceID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT t.name
		FROM resource_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.resource_id = ?
		ORDER BY t.name ASC`, resourceID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
