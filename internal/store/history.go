package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"unveil/internal/logging"
	"unveil/internal/types"
)

// =============================================================================
// SEARCH HISTORY
// =============================================================================

// SearchEntry is one remembered query. Repeating a query updates the
// existing entry instead of adding a new one.
type SearchEntry struct {
	ID           int64
	Query        string
	Filter       types.Filter
	Found        bool
	TotalResults int64
	SearchCount  int
	SearchedAt   time.Time
}

// RecordSearch remembers a successful search.
func (s *Store) RecordSearch(ctx context.Context, query string, filter types.Filter, found bool, total int64) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_history (query, filter, found, total_results, search_count, searched_at)
		 VALUES (?, ?, ?, ?, 1, ?)
		 ON CONFLICT(query, filter) DO UPDATE SET
		   found = excluded.found,
		   total_results = excluded.total_results,
		   search_count = search_history.search_count + 1,
		   searched_at = excluded.searched_at`,
		query, string(filter), found, total, time.Now().UnixNano(),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to record search %q: %v", query, err)
		return fmt.Errorf("failed to record search: %w", err)
	}
	logging.StoreDebug("Recorded search: filter=%s query=%q total=%d", filter, query, total)
	return nil
}

// RecentSearches returns the most recent searches first.
func (s *Store) RecentSearches(ctx context.Context, limit int) ([]SearchEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, filter, found, total_results, search_count, searched_at
		 FROM search_history
		 ORDER BY searched_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query search history: %w", err)
	}
	defer rows.Close()

	var entries []SearchEntry
	for rows.Next() {
		var (
			e        SearchEntry
			filter   string
			searched int64
		)
		if err := rows.Scan(&e.ID, &e.Query, &filter, &e.Found, &e.TotalResults, &e.SearchCount, &searched); err != nil {
			return nil, fmt.Errorf("failed to scan search history: %w", err)
		}
		e.Filter = types.Filter(filter)
		e.SearchedAt = time.Unix(0, searched)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ClearSearches forgets every search.
func (s *Store) ClearSearches(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM search_history"); err != nil {
		return fmt.Errorf("failed to clear search history: %w", err)
	}
	logging.Store("Search history cleared")
	return nil
}
