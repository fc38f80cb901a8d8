package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RecordClassification stores the latest disposition of an identifier under
// a series, replacing any earlier one.
func (s *Store) RecordClassification(ctx context.Context, c Classification) error {
	ctx = ensureContext(ctx)
	return s.execWithRetry(ctx, `
		INSERT OR REPLACE INTO classifications (series, asin, outcome, source, title, linked_asin, seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Series, c.ASIN, string(c.Outcome), c.Source, c.Title, c.LinkedASIN,
		formatTime(time.Now()))
}

// KnownASINs returns every identifier already seen for a series, whether it
// became a volume or was classified away. Discovery uses this set to skip
// re-processing.
func (s *Store) KnownASINs(ctx context.Context, series string) (map[string]bool, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT asin FROM volumes WHERE series = ?
		UNION
		SELECT asin FROM classifications WHERE series = ?`, series, series)
	if err != nil {
		return nil, fmt.Errorf("query known identifiers for %s: %w", series, err)
	}
	defer rows.Close()

	known := make(map[string]bool)
	for rows.Next() {
		var asin string
		if err := rows.Scan(&asin); err != nil {
			return nil, fmt.Errorf("scan identifier: %w", err)
		}
		known[asin] = true
	}
	return known, rows.Err()
}

// ClassificationsBySeries lists classification rows for a series, newest
// first, for status output.
func (s *Store) ClassificationsBySeries(ctx context.Context, series string) ([]Classification, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT series, asin, outcome, source, title, linked_asin, seen_at
		FROM classifications
		WHERE series = ?
		ORDER BY seen_at DESC`, series)
	if err != nil {
		return nil, fmt.Errorf("query classifications for %s: %w", series, err)
	}
	defer rows.Close()

	var results []Classification
	for rows.Next() {
		var c Classification
		var outcome, seenAt string
		if err := rows.Scan(&c.Series, &c.ASIN, &outcome, &c.Source, &c.Title, &c.LinkedASIN, &seenAt); err != nil {
			return nil, fmt.Errorf("scan classification: %w", err)
		}
		c.Outcome = Outcome(outcome)
		c.SeenAt = parseTimeString(seenAt)
		results = append(results, c)
	}
	return results, rows.Err()
}

// DigitalLink returns the physical identifier previously linked to a digital
// listing, if one was recorded.
func (s *Store) DigitalLink(ctx context.Context, series, asin string) (string, error) {
	ctx = ensureContext(ctx)
	var linked string
	err := s.db.QueryRowContext(ctx, `
		SELECT linked_asin FROM classifications
		WHERE series = ? AND asin = ? AND outcome = ?`,
		series, asin, string(OutcomeDigital)).Scan(&linked)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query digital link for %s: %w", asin, err)
	}
	return linked, nil
}
