package store

import (
	"context"
	"fmt"

	"unveil/internal/logging"
)

// migrations are applied in order; PRAGMA user_version records how many ran.
// Append only.
var migrations = []string{
	// v1: search history
	`CREATE TABLE IF NOT EXISTS search_history (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		query         TEXT NOT NULL,
		filter        TEXT NOT NULL,
		found         INTEGER NOT NULL DEFAULT 0,
		total_results INTEGER NOT NULL DEFAULT 0,
		search_count  INTEGER NOT NULL DEFAULT 1,
		searched_at   INTEGER NOT NULL,
		UNIQUE(query, filter)
	);
	CREATE INDEX IF NOT EXISTS idx_search_history_searched_at ON search_history(searched_at DESC);`,

	// v2: submitted reports
	`CREATE TABLE IF NOT EXISTS reports (
		case_id        INTEGER PRIMARY KEY,
		subject        TEXT NOT NULL,
		actions        TEXT NOT NULL,
		description    TEXT NOT NULL,
		reporter_email TEXT NOT NULL,
		reporter_name  TEXT NOT NULL,
		submitted_at   INTEGER NOT NULL
	);`,

	// v3: remembered verification (single row)
	`CREATE TABLE IF NOT EXISTS verification (
		id          INTEGER PRIMARY KEY CHECK (id = 1),
		email       TEXT NOT NULL,
		token       TEXT NOT NULL,
		verified_at INTEGER NOT NULL
	);`,
}

// SchemaVersion returns the number of applied migrations.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var v int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

func (s *Store) migrate(ctx context.Context) error {
	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := current; i < len(migrations); i++ {
		version := i + 1
		logging.StoreDebug("Applying migration v%d", version)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("migration v%d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration v%d: %w", version, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration v%d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration v%d: %w", version, err)
		}
	}

	if current < len(migrations) {
		logging.Store("Migrated schema v%d -> v%d", current, len(migrations))
	}
	return nil
}
