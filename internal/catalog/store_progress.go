package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SearchProgress returns the pagination state for a series. A series never
// scanned reports page 1, not complete.
func (s *Store) SearchProgress(ctx context.Context, series string) (Progress, error) {
	ctx = ensureContext(ctx)
	p := Progress{Series: series, LastPage: 1}
	var complete int
	err := s.db.QueryRowContext(ctx, `
		SELECT last_page, complete FROM search_progress WHERE series = ?`,
		series).Scan(&p.LastPage, &complete)
	if errors.Is(err, sql.ErrNoRows) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("query search progress for %s: %w", series, err)
	}
	p.Complete = complete != 0
	return p, nil
}

// SaveSearchProgress records how far pagination reached for a series.
func (s *Store) SaveSearchProgress(ctx context.Context, p Progress) error {
	ctx = ensureContext(ctx)
	if p.LastPage < 1 {
		p.LastPage = 1
	}
	return s.execWithRetry(ctx, `
		INSERT OR REPLACE INTO search_progress (series, last_page, complete, updated_at)
		VALUES (?, ?, ?, ?)`,
		p.Series, p.LastPage, boolToInt(p.Complete), formatTime(time.Now()))
}
