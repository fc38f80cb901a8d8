package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AlertDate returns the release date recorded with a previous alert for a
// series+URL pair, and whether such an alert exists.
func (s *Store) AlertDate(ctx context.Context, series, url string) (string, bool, error) {
	ctx = ensureContext(ctx)
	var date string
	err := s.db.QueryRowContext(ctx, `
		SELECT release_date FROM alerts WHERE series = ? AND url = ?`,
		series, url).Scan(&date)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query alert for %s: %w", series, err)
	}
	return date, true, nil
}

// RecordAlert marks a series+URL as alerted at a release date. A later call
// with a different date replaces the row, which is how date corrections
// trigger a fresh notification upstream.
func (s *Store) RecordAlert(ctx context.Context, a Alert) error {
	ctx = ensureContext(ctx)
	return s.execWithRetry(ctx, `
		INSERT OR REPLACE INTO alerts (series, url, release_date, created_at)
		VALUES (?, ?, ?, ?)`,
		a.Series, a.URL, a.ReleaseDate, formatTime(time.Now()))
}

// AlertsBySeries lists recorded alerts for a series, newest first.
func (s *Store) AlertsBySeries(ctx context.Context, series string) ([]Alert, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT series, url, release_date, created_at FROM alerts
		WHERE series = ?
		ORDER BY created_at DESC`, series)
	if err != nil {
		return nil, fmt.Errorf("query alerts for %s: %w", series, err)
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var a Alert
		var createdAt string
		if err := rows.Scan(&a.Series, &a.URL, &a.ReleaseDate, &createdAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.CreatedAt = parseTimeString(createdAt)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// FutureAlerts returns alerts for a series whose release date lies after the
// given day. Phase B re-fetches these so shifted pre-order dates are caught.
func (s *Store) FutureAlerts(ctx context.Context, series string, today string) ([]Alert, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT series, url, release_date, created_at FROM alerts
		WHERE series = ? AND release_date > ?`, series, today)
	if err != nil {
		return nil, fmt.Errorf("query future alerts for %s: %w", series, err)
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var a Alert
		var createdAt string
		if err := rows.Scan(&a.Series, &a.URL, &a.ReleaseDate, &createdAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.CreatedAt = parseTimeString(createdAt)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
