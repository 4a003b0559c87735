package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"unveil/internal/logging"
)

// RememberedVerification is a verified email kept across runs.
type RememberedVerification struct {
	Email      string
	Token      string
	VerifiedAt time.Time
}

// SaveVerification replaces the remembered verification.
func (s *Store) SaveVerification(ctx context.Context, v RememberedVerification) error {
	if v.VerifiedAt.IsZero() {
		v.VerifiedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO verification (id, email, token, verified_at) VALUES (1, ?, ?, ?)`,
		v.Email, v.Token, v.VerifiedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save verification: %w", err)
	}
	logging.StoreDebug("Remembered verification for %s", v.Email)
	return nil
}

// LoadVerification returns the remembered verification, or nil when there is none.
func (s *Store) LoadVerification(ctx context.Context) (*RememberedVerification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		v        RememberedVerification
		verified int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT email, token, verified_at FROM verification WHERE id = 1`,
	).Scan(&v.Email, &v.Token, &verified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load verification: %w", err)
	}
	v.VerifiedAt = time.UnixMilli(verified)
	return &v, nil
}

// ClearVerification forgets the remembered verification.
func (s *Store) ClearVerification(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM verification"); err != nil {
		return fmt.Errorf("failed to clear verification: %w", err)
	}
	return nil
}
