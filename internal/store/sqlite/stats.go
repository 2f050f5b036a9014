package sqlite

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/keepstack/keepstack-server/internal/domain"
)

// UserStats assembles the aggregate overview for an owner: totals, per-day
// activity over the period, most used tags, and most linked domains.
func (s *Store) UserStats(ctx context.Context, ownerID string, period domain.StatsPeriod) (*domain.UserStats, error) {
	stats := &domain.UserStats{
		RecentActivity: []domain.ActivityEntry{},
		TopTags:        []domain.TagCount{},
		TopDomains:     []domain.DomainCount{},
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM resources WHERE owner_id = ?),
			(SELECT COUNT(*) FROM collections WHERE owner_id = ?),
			(SELECT COUNT(*) FROM tags WHERE owner_id = ?),
			(SELECT COUNT(*) FROM resources WHERE owner_id = ? AND favorite = 1),
			(SELECT COUNT(*) FROM resources WHERE owner_id = ? AND archived = 1),
			(SELECT COALESCE(SUM(visit_count), 0) FROM resources WHERE owner_id = ?)`,
		ownerID, ownerID, ownerID, ownerID, ownerID, ownerID,
	).Scan(
		&stats.TotalResources, &stats.TotalCollections, &stats.TotalTags,
		&stats.FavoriteResources, &stats.ArchivedResources, &stats.TotalVisits,
	)
	if err != nil {
		return nil, classify(err)
	}

	cutoff := formatTime(time.Now().UTC().AddDate(0, 0, -period.Days()))

	activity := map[string]*domain.ActivityEntry{}
	entry := func(date string) *domain.ActivityEntry {
		if e, ok := activity[date]; ok {
			return e
		}
		e := &domain.ActivityEntry{Date: date}
		activity[date] = e
		return e
	}

	// Timestamps are RFC3339 text, so the first ten characters are the day.
	addedRows, err := s.queryRetry(ctx, `
		SELECT substr(created_at, 1, 10) AS day, COUNT(*)
		FROM resources
		WHERE owner_id = ? AND created_at >= ?
		GROUP BY day`, ownerID, cutoff)
	if err != nil {
		return nil, classify(err)
	}
	defer addedRows.Close()
	for addedRows.Next() {
		var day string
		var count int64
		if err := addedRows.Scan(&day, &count); err != nil {
			return nil, err
		}
		entry(day).Added = count
	}
	if err := addedRows.Err(); err != nil {
		return nil, err
	}

	visitRows, err := s.queryRetry(ctx, `
		SELECT substr(last_visited, 1, 10) AS day, COUNT(*)
		FROM resources
		WHERE owner_id = ? AND last_visited IS NOT NULL AND last_visited >= ?
		GROUP BY day`, ownerID, cutoff)
	if err != nil {
		return nil, classify(err)
	}
	defer visitRows.Close()
	for visitRows.Next() {
		var day string
		var count int64
		if err := visitRows.Scan(&day, &count); err != nil {
			return nil, err
		}
		entry(day).Visited = count
	}
	if err := visitRows.Err(); err != nil {
		return nil, err
	}

	for _, e := range activity {
		stats.RecentActivity = append(stats.RecentActivity, *e)
	}
	sort.Slice(stats.RecentActivity, func(i, j int) bool {
		return stats.RecentActivity[i].Date < stats.RecentActivity[j].Date
	})

	tagRows, err := s.queryRetry(ctx, `
		SELECT name, usage_count FROM tags
		WHERE owner_id = ? AND usage_count > 0
		ORDER BY usage_count DESC, name ASC
		LIMIT 10`, ownerID)
	if err != nil {
		return nil, classify(err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var tc domain.TagCount
		if err := tagRows.Scan(&tc.Name, &tc.Count); err != nil {
			return nil, err
		}
		stats.TopTags = append(stats.TopTags, tc)
	}
	if err := tagRows.Err(); err != nil {
		return nil, err
	}

	domains, err := s.topDomains(ctx, ownerID, 10)
	if err != nil {
		return nil, err
	}
	stats.TopDomains = domains

	return stats, nil
}

// topDomains counts link resources by host. Hosts are parsed in Go; the
// stored url column stays an opaque string.
func (s *Store) topDomains(ctx context.Context, ownerID string, limit int) ([]domain.DomainCount, error) {
	rows, err := s.queryRetry(ctx, `
		SELECT url FROM resources
		WHERE owner_id = ? AND type = 'link' AND url IS NOT NULL`, ownerID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		counts[strings.ToLower(u.Host)]++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]domain.DomainCount, 0, len(counts))
	for host, count := range counts {
		result = append(result, domain.DomainCount{Domain: host, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Domain < result[j].Domain
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
