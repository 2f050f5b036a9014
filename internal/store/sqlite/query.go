package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"fmt"
	"strings"

	"github.com/keepstack/keepstack-server/internal/domain"
	"github.com/keepstack/keepstack-server/internal/search"
	"github.com/keepstack/keepstack-server/internal/store"
)

// sortColumns is the whitelist of structural sort fragments. This map and
// sortDirections are the only identifiers ever interpolated into listing
// SQL; every filter value is bound as a typed parameter.
var sortColumns = map[store.SortField]string{
	store.SortCreatedAt:  "r.created_at",
	store.SortUpdatedAt:  "r.updated_at",
	store.SortTitle:      "r.title COLLATE NOCASE",
	store.SortVisitCount: "r.visit_count",
}

var sortDirections = map[store.SortDirection]string{
	store.SortAsc:  "ASC",
	store.SortDesc: "DESC",
}

// queryPlan is a compiled filter: structural SQL fragments plus the bound
// arguments for the WHERE predicates.
type queryPlan struct {
	join    string
	where   []string
	args    []any
	orderBy string
	match   string
}

// buildResourcePlan compiles a validated filter into a query plan. Supplied
// filters combine as a logical AND; omitted filters impose no constraint.
func buildResourcePlan(ownerID string, f *store.ResourceFilter) (*queryPlan, error) {
	plan := &queryPlan{
		where: []string{"r.owner_id = ?"},
		args:  []any{ownerID},
	}

	if f.CollectionID != nil {
		plan.where = append(plan.where, "r.collection_id = ?")
		plan.args = append(plan.args, *f.CollectionID)
	}
	if f.Type != nil {
		plan.where = append(plan.where, "r.type = ?")
		plan.args = append(plan.args, string(*f.Type))
	}
	if f.Favorite != nil {
		plan.where = append(plan.where, "r.favorite = ?")
		plan.args = append(plan.args, *f.Favorite)
	}
	if f.Archived != nil {
		plan.where = append(plan.where, "r.archived = ?")
		plan.args = append(plan.args, *f.Archived)
	}
	if f.Private != nil {
		plan.where = append(plan.where, "r.private = ?")
		plan.args = append(plan.args, *f.Private)
	}
	if f.Read != nil {
		plan.where = append(plan.where, "r.read = ?")
		plan.args = append(plan.args, *f.Read)
	}

	if len(f.Tags) > 0 {
		sub := `r.id IN (
			SELECT rt.resource_id
			FROM resource_tags rt
			JOIN tags t ON t.id = rt.tag_id
			WHERE t.owner_id = ? AND t.name IN (` + inPlaceholders(len(f.Tags)) + `)`
		args := make([]any, 0, len(f.Tags)+2)
		args = append(args, ownerID)
		for _, name := range f.Tags {
			args = append(args, name)
		}
		if f.TagMode == store.TagModeAll {
			sub += `
			GROUP BY rt.resource_id
			HAVING COUNT(DISTINCT t.id) = ?`
			args = append(args, len(f.Tags))
		}
		sub += `)`
		plan.where = append(plan.where, sub)
		plan.args = append(plan.args, args...)
	}

	if f.Query != "" {
		plan.match = search.BuildMatch(f.Query)
		if plan.match != "" {
			plan.join = ` JOIN resources_fts ON resources_fts.rowid = r.id`
			plan.where = append(plan.where, "resources_fts MATCH ?")
			plan.args = append(plan.args, plan.match)
		}
	}

	if f.Sort == store.SortRelevance {
		// fts5 rank ascends from best match; descending relevance is
		// therefore ascending rank.
		if f.Direction == store.SortDesc {
			plan.orderBy = "resources_fts.rank ASC, r.id ASC"
		} else {
			plan.orderBy = "resources_fts.rank DESC, r.id ASC"
		}
		return plan, nil
	}

	column, ok := sortColumns[f.Sort]
	if !ok {
		return nil, store.ErrInvalidInput.WithMessage(fmt.Sprintf("sort: unknown field %q", f.Sort))
	}
	direction, ok := sortDirections[f.Direction]
	if !ok {
		return nil, store.ErrInvalidInput.WithMessage(fmt.Sprintf("direction: unknown value %q", f.Direction))
	}
	// The id tie-break keeps pages stable when the primary key repeats.
	plan.orderBy = column + " " + direction + ", r.id ASC"
	return plan, nil
}

// tagConcatColumn joins a resource's tag names with the unit separator so
// names containing spaces or commas split back apart safely.
const tagConcatColumn = `COALESCE((
	SELECT GROUP_CONCAT(name, CHAR(31)) FROM (
		SELECT t.name FROM resource_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.resource_id = r.id
		ORDER BY t.name ASC
	)
), '')`

const referenceCountColumn = `(
	SELECT COUNT(*) FROM resource_references rr
	WHERE rr.source_id = r.id OR rr.target_id = r.id
)`

// ListResources runs a filtered, optionally full-text, listing and returns
// one stable page with totals. Ranking falls back to recency when no query
// was supplied; highlights are attached only for query results.
func (s *Store) ListResources(ctx context.Context, ownerID string, f *store.ResourceFilter) (*store.ResourceList, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	plan, err := buildResourcePlan(ownerID, f)
	if err != nil {
		return nil, err
	}

	// A query with no indexable terms matches nothing.
	if f.Query != "" && plan.match == "" {
		return &store.ResourceList{
			Items:      []*store.ResourceRecord{},
			Pagination: store.NewPagination(0, f.Limit, f.Offset),
		}, nil
	}

	where := strings.Join(plan.where, " AND ")

	total, err := s.countRows(ctx,
		`SELECT COUNT(*) FROM resources r`+plan.join+` WHERE `+where, plan.args...)
	if err != nil {
		return nil, err
	}

	selectCols := resourceColumns + `, c.name, ` + referenceCountColumn + `, ` + tagConcatColumn
	var selectArgs []any
	withHighlights := plan.match != ""
	if withHighlights {
		selectCols += `,
			highlight(resources_fts, 0, ?, ?),
			highlight(resources_fts, 1, ?, ?),
			snippet(resources_fts, 4, ?, ?, '...', 12)`
		selectArgs = []any{
			search.HighlightStart, search.HighlightEnd,
			search.HighlightStart, search.HighlightEnd,
			search.HighlightStart, search.HighlightEnd,
		}
	}

	query := `SELECT ` + selectCols + `
		FROM resources r` + plan.join + `
		LEFT JOIN collections c ON c.id = r.collection_id
		WHERE ` + where + `
		ORDER BY ` + plan.orderBy + `
		LIMIT ? OFFSET ?`

	args := append(selectArgs, plan.args...)
	args = append(args, f.Limit, f.Offset)

	rows, err := s.queryRetry(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	list := &store.ResourceList{
		Items:      []*store.ResourceRecord{},
		Pagination: store.NewPagination(total, f.Limit, f.Offset),
	}
	if withHighlights {
		list.Highlights = store.Highlights{}
	}

	for rows.Next() {
		record, highlights, err := scanListRow(rows, withHighlights)
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, record)
		if len(highlights) > 0 {
			list.Highlights[record.ID] = highlights
		}
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	return list, nil
}

// scanListRow scans one listing row: the record columns, the tag
// concatenation, and optionally the three highlight columns.
func scanListRow(scanner interface{ Scan(dest ...any) error }, withHighlights bool) (*store.ResourceRecord, map[string]string, error) {
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
		tagsConcat     string
		hlTitle        string
		hlDescription  string
		hlContent      string
	)

	dest := []any{
		&r.ID, &r.OwnerID, &r.Type, &r.Title,
		&url, &content, &source, &mimeType,
		&description, &collectionID,
		&r.Favorite, &r.Archived, &r.Private, &r.Read,
		&r.VisitCount, &lastVisited, &metadata,
		&createdAt, &updatedAt,
		&collectionName, &record.ReferenceCount, &tagsConcat,
	}
	if withHighlights {
		dest = append(dest, &hlTitle, &hlDescription, &hlContent)
	}

	if err := scanner.Scan(dest...); err != nil {
		return nil, nil, err
	}

	r.URL = stringPointer(url)
	r.Content = stringPointer(content)
	r.Source = stringPointer(source)
	r.MimeType = stringPointer(mimeType)
	r.Description = stringPointer(description)
	r.CollectionID = int64Pointer(collectionID)

	var err error
	if r.LastVisited, err = parseNullableTime(lastVisited); err != nil {
		return nil, nil, err
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &r.Metadata); err != nil {
			return nil, nil, fmt.Errorf("parse metadata: %w", err)
		}
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, nil, err
	}

	record.Resource = r
	record.CollectionName = stringPointer(collectionName)
	record.Tags = splitTagConcat(tagsConcat)

	var highlights map[string]string
	if withHighlights {
		highlights = map[string]string{}
		for field, fragment := range map[string]string{
			"title":       hlTitle,
			"description": hlDescription,
			"content":     hlContent,
		} {
			if strings.Contains(fragment, search.HighlightStart) {
				highlights[field] = fragment
			}
		}
	}

	return &record, highlights, nil
}

// splitTagConcat splits a CHAR(31)-joined tag list.
func splitTagConcat(concat string) []string {
	if concat == "" {
		return []string{}
	}
	return strings.Split(concat, "\x1f")
}

// countRows runs a COUNT query with the read retry policy.
func (s *Store) countRows(ctx context.Context, query string, args ...any) (int64, error) {
	rows, err := s.queryRetry(ctx, query, args...)
	if err != nil {
		return 0, classify(err)
	}
	defer rows.Close()

	var total int64
	if rows.Next() {
		if err := rows.Scan(&total); err != nil {
			return 0, err
		}
	}
	return total, rows.Err()
}

// Suggest returns autocomplete entries: resource titles and tag names that
// start with the prefix, tags ranked by usage.
func (s *Store) Suggest(ctx context.Context, ownerID, prefix string, limit int) ([]store.Suggestion, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []store.Suggestion{}, nil
	}
	if limit <= 0 || limit > store.MaxPageLimit {
		limit = 10
	}

	suggestions := []store.Suggestion{}
	seen := map[string]struct{}{}

	tagRows, err := s.queryRetry(ctx, `
		SELECT name FROM tags
		WHERE owner_id = ? AND name LIKE ? || '%'
		ORDER BY usage_count DESC, name ASC
		LIMIT ?`, ownerID, strings.ToLower(prefix), limit)
	if err != nil {
		return nil, classify(err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var name string
		if err := tagRows.Scan(&name); err != nil {
			return nil, err
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		suggestions = append(suggestions, store.Suggestion{Text: name, Kind: "tag"})
	}
	if err := tagRows.Err(); err != nil {
		return nil, err
	}

	titleRows, err := s.queryRetry(ctx, `
		SELECT DISTINCT title FROM resources
		WHERE owner_id = ? AND title LIKE ? || '%'
		ORDER BY title ASC
		LIMIT ?`, ownerID, prefix, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer titleRows.Close()
	for titleRows.Next() {
		var title string
		if err := titleRows.Scan(&title); err != nil {
			return nil, err
		}
		if _, ok := seen[title]; ok {
			continue
		}
		seen[title] = struct{}{}
		suggestions = append(suggestions, store.Suggestion{Text: title, Kind: "title"})
	}
	if err := titleRows.Err(); err != nil {
		return nil, err
	}

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}
