package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shinkan/internal/textnorm"
)

// PublisherOfRecord resolves the publisher to filter candidates against for
// a series. Preference order: the majority publisher among operator-accepted
// volumes, then a previously stored value, then the majority across all
// recorded volumes. An accepted-majority result overwrites whatever was
// stored before.
func (s *Store) PublisherOfRecord(ctx context.Context, series string) (string, error) {
	ctx = ensureContext(ctx)

	accepted, err := s.majorityPublisher(ctx, series, true)
	if err != nil {
		return "", err
	}
	if accepted != "" {
		if err := s.savePublisherOfRecord(ctx, series, accepted, true); err != nil {
			return "", err
		}
		return accepted, nil
	}

	var stored string
	err = s.db.QueryRowContext(ctx,
		`SELECT publisher FROM publishers_of_record WHERE series = ?`, series).Scan(&stored)
	if err == nil && stored != "" {
		return stored, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("query publisher of record for %s: %w", series, err)
	}

	overall, err := s.majorityPublisher(ctx, series, false)
	if err != nil {
		return "", err
	}
	if overall != "" {
		if err := s.savePublisherOfRecord(ctx, series, overall, false); err != nil {
			return "", err
		}
	}
	return overall, nil
}

func (s *Store) savePublisherOfRecord(ctx context.Context, series, publisher string, fromAccepted bool) error {
	return s.execWithRetry(ctx, `
		INSERT OR REPLACE INTO publishers_of_record (series, publisher, from_accepted, updated_at)
		VALUES (?, ?, ?, ?)`,
		series, publisher, boolToInt(fromAccepted), formatTime(time.Now()))
}

// majorityPublisher counts volume publishers for a series, folding imprints
// into their parent houses, and returns the most common one.
func (s *Store) majorityPublisher(ctx context.Context, series string, acceptedOnly bool) (string, error) {
	query := `SELECT publisher FROM volumes WHERE series = ? AND publisher != ''`
	if acceptedOnly {
		query = `
			SELECT v.publisher FROM volumes v
			JOIN manual_statuses m ON m.asin = v.asin AND m.status = 'accepted'
			WHERE v.series = ? AND v.publisher != ''`
	}
	rows, err := s.db.QueryContext(ctx, query, series)
	if err != nil {
		return "", fmt.Errorf("query publishers for %s: %w", series, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	display := make(map[string]string)
	for rows.Next() {
		var publisher string
		if err := rows.Scan(&publisher); err != nil {
			return "", fmt.Errorf("scan publisher: %w", err)
		}
		canonical := textnorm.CanonicalPublisher(publisher)
		if canonical == "" {
			continue
		}
		counts[canonical]++
		if _, ok := display[canonical]; !ok {
			display[canonical] = publisher
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	best, bestCount := "", 0
	for canonical, n := range counts {
		if n > bestCount {
			best, bestCount = canonical, n
		}
	}
	if best == "" {
		return "", nil
	}
	return display[best], nil
}
