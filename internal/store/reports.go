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
// SUBMITTED REPORTS
// =============================================================================

// ReportEntry is a case this user reported.
type ReportEntry struct {
	CaseID        int64
	Subject       string // first of name, email, phone, company
	Actions       string
	Description   string
	ReporterEmail string
	ReporterName  string
	SubmittedAt   time.Time
}

// ReportSubject picks the label a report is listed under.
func ReportSubject(req types.ReportRequest) string {
	for _, p := range []*string{req.Name, req.Email, req.Phone, req.Company} {
		if p != nil && strings.TrimSpace(*p) != "" {
			return strings.TrimSpace(*p)
		}
	}
	return "(unnamed)"
}

// RecordReport remembers a successfully submitted report.
func (s *Store) RecordReport(ctx context.Context, caseID int64, req types.ReportRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO reports
		 (case_id, subject, actions, description, reporter_email, reporter_name, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		caseID, ReportSubject(req), req.Actions, req.Description,
		req.ReporterEmail, req.ReporterName, time.Now().UnixNano(),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to record report for case %d: %v", caseID, err)
		return fmt.Errorf("failed to record report: %w", err)
	}
	logging.Store("Recorded report for case #%d", caseID)
	return nil
}

// Reports returns submitted reports, newest first.
func (s *Store) Reports(ctx context.Context, limit int) ([]ReportEntry, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT case_id, subject, actions, description, reporter_email, reporter_name, submitted_at
		 FROM reports
		 ORDER BY submitted_at DESC, case_id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var entries []ReportEntry
	for rows.Next() {
		var (
			e         ReportEntry
			submitted int64
		)
		if err := rows.Scan(&e.CaseID, &e.Subject, &e.Actions, &e.Description,
			&e.ReporterEmail, &e.ReporterName, &submitted); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		e.SubmittedAt = time.Unix(0, submitted)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
