package catalog

import (
	"context"
	"fmt"
	"time"
)

// SetManualStatus records an operator decision for an identifier.
func (s *Store) SetManualStatus(ctx context.Context, asin string, status ManualStatus, comment string) error {
	ctx = ensureContext(ctx)
	return s.execWithRetry(ctx, `
		INSERT OR REPLACE INTO manual_statuses (asin, status, comment, updated_at)
		VALUES (?, ?, ?, ?)`,
		asin, string(status), comment, formatTime(time.Now()))
}

// ManualStatusFor reports the operator decision for one identifier, or
// unprocessed when none exists.
func (s *Store) ManualStatusFor(ctx context.Context, asin string) (ManualStatus, error) {
	ctx = ensureContext(ctx)
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM manual_statuses WHERE asin = ?`, asin).Scan(&status)
	if err != nil {
		return StatusUnprocessed, nil
	}
	parsed, ok := ParseManualStatus(status)
	if !ok {
		return StatusUnprocessed, nil
	}
	return parsed, nil
}

func (s *Store) asinsWithStatus(ctx context.Context, status ManualStatus) (map[string]bool, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT asin FROM manual_statuses WHERE status = ?`, string(status))
	if err != nil {
		return nil, fmt.Errorf("query %s identifiers: %w", status, err)
	}
	defer rows.Close()

	set := make(map[string]bool)
	for rows.Next() {
		var asin string
		if err := rows.Scan(&asin); err != nil {
			return nil, fmt.Errorf("scan identifier: %w", err)
		}
		set[asin] = true
	}
	return set, rows.Err()
}

// RejectedASINs returns identifiers the operator marked rejected.
func (s *Store) RejectedASINs(ctx context.Context) (map[string]bool, error) {
	return s.asinsWithStatus(ctx, StatusRejected)
}

// AcceptedASINs returns identifiers the operator marked accepted.
func (s *Store) AcceptedASINs(ctx context.Context) (map[string]bool, error) {
	return s.asinsWithStatus(ctx, StatusAccepted)
}
