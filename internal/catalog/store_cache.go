package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CacheLookup returns a usable verification cache entry for an identifier.
// Entries whose extraction failed (no tome, retry allowed) are treated as
// misses so the pipeline fetches the listing again.
func (s *Store) CacheLookup(ctx context.Context, asin string) (*CacheEntry, error) {
	entry, err := s.CacheLookupAny(ctx, asin)
	if err != nil || entry == nil {
		return nil, err
	}
	if entry.Tome == nil && entry.RetryAllowed {
		return nil, nil
	}
	return entry, nil
}

// CacheLookupAny returns the raw cache entry regardless of retry state.
func (s *Store) CacheLookupAny(ctx context.Context, asin string) (*CacheEntry, error) {
	if entry, ok := s.hot.Get(asin); ok {
		return &entry, nil
	}

	ctx = ensureContext(ctx)
	var entry CacheEntry
	var tome sql.NullInt64
	var tomeFinal, retryAllowed int
	var verifiedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT asin, tome, tome_final, retry_allowed, release_date, title, publisher, verified_at
		FROM verification_cache WHERE asin = ?`, asin).Scan(
		&entry.ASIN, &tome, &tomeFinal, &retryAllowed,
		&entry.ReleaseDate, &entry.Title, &entry.Publisher, &verifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cache for %s: %w", asin, err)
	}
	entry.Tome = intPtr(tome)
	entry.TomeFinal = tomeFinal != 0
	entry.RetryAllowed = retryAllowed != 0
	entry.VerifiedAt = parseTimeString(verifiedAt)

	s.hot.Add(asin, entry)
	return &entry, nil
}

// CacheStore saves or replaces a verification result for an identifier.
func (s *Store) CacheStore(ctx context.Context, entry CacheEntry) error {
	ctx = ensureContext(ctx)
	if entry.VerifiedAt.IsZero() {
		entry.VerifiedAt = time.Now()
	}
	err := s.execWithRetry(ctx, `
		INSERT OR REPLACE INTO verification_cache
			(asin, tome, tome_final, retry_allowed, release_date, title, publisher, verified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ASIN, nullableInt(entry.Tome), boolToInt(entry.TomeFinal),
		boolToInt(entry.RetryAllowed), entry.ReleaseDate, entry.Title,
		entry.Publisher, formatTime(entry.VerifiedAt))
	if err != nil {
		return err
	}
	s.hot.Add(entry.ASIN, entry)
	return nil
}

// CacheInvalidate drops an identifier from the cache so the next scan
// re-fetches the listing. Used when an alerted release date sits in the
// future and may have shifted.
func (s *Store) CacheInvalidate(ctx context.Context, asin string) error {
	ctx = ensureContext(ctx)
	s.hot.Remove(asin)
	return s.execWithRetry(ctx,
		`DELETE FROM verification_cache WHERE asin = ?`, asin)
}
