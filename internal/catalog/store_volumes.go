package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertVolume inserts a volume or refreshes the existing row for the same
// identifier. Existing non-empty series names and publishers survive an
// update that arrives without them, and a known tome is never overwritten
// with an unknown one.
func (s *Store) UpsertVolume(ctx context.Context, v Volume) error {
	ctx = ensureContext(ctx)
	now := formatTime(time.Now())
	return s.execWithRetry(ctx, `
		INSERT INTO volumes (series, series_name, tome, asin, url, release_date, title, publisher, first_seen, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(asin) DO UPDATE SET
			series = excluded.series,
			series_name = CASE WHEN excluded.series_name != '' THEN excluded.series_name ELSE volumes.series_name END,
			tome = COALESCE(excluded.tome, volumes.tome),
			url = CASE WHEN excluded.url != '' THEN excluded.url ELSE volumes.url END,
			release_date = CASE WHEN excluded.release_date != '' THEN excluded.release_date ELSE volumes.release_date END,
			title = CASE WHEN excluded.title != '' THEN excluded.title ELSE volumes.title END,
			publisher = CASE WHEN excluded.publisher != '' THEN excluded.publisher ELSE volumes.publisher END,
			updated_at = excluded.updated_at`,
		v.Series, v.SeriesName, nullableInt(v.Tome), v.ASIN, v.URL,
		v.ReleaseDate, v.Title, v.Publisher, now, now)
}

const volumeColumns = `id, series, series_name, tome, asin, url, release_date, title, publisher, first_seen, updated_at`

func scanVolume(row interface{ Scan(...any) error }) (Volume, error) {
	var v Volume
	var tome sql.NullInt64
	var firstSeen, updatedAt string
	err := row.Scan(&v.ID, &v.Series, &v.SeriesName, &tome, &v.ASIN, &v.URL,
		&v.ReleaseDate, &v.Title, &v.Publisher, &firstSeen, &updatedAt)
	if err != nil {
		return Volume{}, err
	}
	v.Tome = intPtr(tome)
	v.FirstSeen = parseTimeString(firstSeen)
	v.UpdatedAt = parseTimeString(updatedAt)
	return v, nil
}

// VolumesBySeries returns every recorded volume for a series ordered by tome,
// unknown tomes last.
func (s *Store) VolumesBySeries(ctx context.Context, series string) ([]Volume, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+volumeColumns+` FROM volumes
		WHERE series = ?
		ORDER BY tome IS NULL, tome, asin`, series)
	if err != nil {
		return nil, fmt.Errorf("query volumes for %s: %w", series, err)
	}
	defer rows.Close()

	var volumes []Volume
	for rows.Next() {
		v, err := scanVolume(rows)
		if err != nil {
			return nil, fmt.Errorf("scan volume row: %w", err)
		}
		volumes = append(volumes, v)
	}
	return volumes, rows.Err()
}

// VolumeByASIN fetches one volume by identifier. Returns nil when absent.
func (s *Store) VolumeByASIN(ctx context.Context, asin string) (*Volume, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `
		SELECT `+volumeColumns+` FROM volumes WHERE asin = ?`, asin)
	v, err := scanVolume(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query volume %s: %w", asin, err)
	}
	return &v, nil
}

// VolumeCounts returns the number of recorded volumes per series for the
// scan scheduler's prioritization.
func (s *Store) VolumeCounts(ctx context.Context) (map[string]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT series, COUNT(*) FROM volumes GROUP BY series`)
	if err != nil {
		return nil, fmt.Errorf("count volumes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var series string
		var n int
		if err := rows.Scan(&series, &n); err != nil {
			return nil, fmt.Errorf("scan volume count: %w", err)
		}
		counts[series] = n
	}
	return counts, rows.Err()
}

// ReferenceASIN picks the best stored identifier to anchor detail lookups
// for a series: an accepted volume if the operator marked one, otherwise
// the highest-tome volume on record.
func (s *Store) ReferenceASIN(ctx context.Context, series string) (string, error) {
	ctx = ensureContext(ctx)
	var asin string
	err := s.db.QueryRowContext(ctx, `
		SELECT v.asin FROM volumes v
		JOIN manual_statuses m ON m.asin = v.asin AND m.status = ?
		WHERE v.series = ?
		ORDER BY v.tome IS NULL, v.tome DESC
		LIMIT 1`, string(StatusAccepted), series).Scan(&asin)
	if err == nil {
		return asin, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("query accepted reference for %s: %w", series, err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT asin FROM volumes
		WHERE series = ?
		ORDER BY tome IS NULL, tome DESC
		LIMIT 1`, series).Scan(&asin)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query reference for %s: %w", series, err)
	}
	return asin, nil
}

// KnownTomes returns the set of tome numbers recorded for a series.
func (s *Store) KnownTomes(ctx context.Context, series string) (map[int]bool, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT tome FROM volumes
		WHERE series = ? AND tome IS NOT NULL`, series)
	if err != nil {
		return nil, fmt.Errorf("query tomes for %s: %w", series, err)
	}
	defer rows.Close()

	tomes := make(map[int]bool)
	for rows.Next() {
		var tome int
		if err := rows.Scan(&tome); err != nil {
			return nil, fmt.Errorf("scan tome: %w", err)
		}
		tomes[tome] = true
	}
	return tomes, rows.Err()
}

// SetVolumeTome corrects the stored tome of one identifier.
func (s *Store) SetVolumeTome(ctx context.Context, asin string, tome int) error {
	ctx = ensureContext(ctx)
	return s.execWithRetry(ctx, `
		UPDATE volumes SET tome = ?, updated_at = ? WHERE asin = ?`,
		tome, formatTime(time.Now()), asin)
}
