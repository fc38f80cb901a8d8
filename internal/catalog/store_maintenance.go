package catalog

import (
	"context"
	"fmt"
	"os"
)

// PurgeSeries removes every trace of a series from the catalog. Manual
// statuses and cache entries keyed by identifier are dropped only for
// identifiers belonging to the purged series.
func (s *Store) PurgeSeries(ctx context.Context, series string) error {
	ctx = ensureContext(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin purge of %s: %w", series, err)
	}
	defer func() { _ = tx.Rollback() }()

	statements := []string{
		`DELETE FROM verification_cache WHERE asin IN (SELECT asin FROM volumes WHERE series = ?)`,
		`DELETE FROM manual_statuses WHERE asin IN (SELECT asin FROM volumes WHERE series = ?)`,
		`DELETE FROM volumes WHERE series = ?`,
		`DELETE FROM classifications WHERE series = ?`,
		`DELETE FROM search_progress WHERE series = ?`,
		`DELETE FROM alerts WHERE series = ?`,
		`DELETE FROM publishers_of_record WHERE series = ?`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, series); err != nil {
			return fmt.Errorf("purge %s: %w", series, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit purge of %s: %w", series, err)
	}
	s.hot.Purge()
	return nil
}

// GatherStats aggregates table counts for status output.
func (s *Store) GatherStats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	var stats Stats
	queries := []struct {
		query string
		dst   *int
	}{
		{`SELECT COUNT(*) FROM volumes`, &stats.Volumes},
		{`SELECT COUNT(*) FROM classifications`, &stats.Classifications},
		{`SELECT COUNT(*) FROM verification_cache`, &stats.CacheEntries},
		{`SELECT COUNT(*) FROM alerts`, &stats.Alerts},
		{`SELECT COUNT(DISTINCT series) FROM volumes`, &stats.SeriesTracked},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dst); err != nil {
			return stats, fmt.Errorf("gather stats: %w", err)
		}
	}
	return stats, nil
}

// CheckHealth runs basic diagnostics against the catalog database.
func (s *Store) CheckHealth(ctx context.Context) Health {
	ctx = ensureContext(ctx)
	health := Health{DBPath: s.path}

	if _, err := os.Stat(s.path); err != nil {
		health.Error = fmt.Sprintf("database file: %v", err)
		return health
	}
	health.DatabaseExists = true

	if err := s.db.PingContext(ctx); err != nil {
		health.Error = fmt.Sprintf("ping database: %v", err)
		return health
	}
	health.DatabaseReadable = true

	var version string
	if err := s.db.QueryRowContext(ctx,
		`SELECT name FROM schema_migrations ORDER BY name DESC LIMIT 1`).Scan(&version); err == nil {
		health.SchemaVersion = version
	}

	var integrity string
	if err := s.db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&integrity); err != nil {
		health.Error = fmt.Sprintf("integrity check: %v", err)
		return health
	}
	health.IntegrityCheck = integrity == "ok"

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM volumes`).Scan(&health.TotalVolumes); err != nil {
		health.Error = fmt.Sprintf("count volumes: %v", err)
	}
	return health
}
