package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"shinkan/internal/catalog"
	"shinkan/internal/extractor"
	"shinkan/internal/fetch"
	"shinkan/internal/logging"
	"shinkan/internal/textnorm"
)

// verifiedFacts is the distilled outcome of verifying one candidate,
// whatever source it came from.
type verifiedFacts struct {
	asin        string
	url         string
	title       string
	tome        *int
	tomeFinal   bool
	releaseDate string
	publisher   string
	coverURL    string
}

// verifyAll runs phase B over the candidate map in discovery order.
// Candidates previously alerted with a still-future release date are
// refetched past the cache so pre-order date corrections are caught.
func (s *seriesScan) verifyAll(ctx context.Context) error {
	today := s.p.now().Format("2006/01/02")
	future, err := s.p.store.FutureAlerts(ctx, s.series.Name, today)
	if err != nil {
		return fmt.Errorf("load future alerts: %w", err)
	}
	forced := make(map[string]bool, len(future))
	for _, a := range future {
		forced[a.URL] = true
	}

	for _, c := range s.candidates.all() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.rejected[c.asin] {
			continue
		}
		if err := s.verifyCandidate(ctx, c, forced[c.url]); err != nil {
			return err
		}
	}
	return nil
}

func (s *seriesScan) verifyCandidate(ctx context.Context, c candidate, force bool) error {
	logger := s.logger.With(slog.String(logging.FieldASIN, c.asin))

	if force {
		logger.Info("refetching past cache for date change check")
	} else {
		entry, err := s.p.store.CacheLookup(ctx, c.asin)
		if err != nil {
			return fmt.Errorf("cache lookup: %w", err)
		}
		if entry != nil {
			s.finish(ctx, factsFromCache(c, *entry))
			return nil
		}
	}

	body, err := s.fetch(ctx, c.url, fetch.ProductPage)
	if err != nil {
		// Retries are exhausted at this point. An older snapshot, even one
		// flagged for re-verification, beats dropping the candidate.
		if entry, lerr := s.p.store.CacheLookupAny(ctx, c.asin); lerr == nil && entry != nil {
			logger.Warn("fetch failed, using stale cache", slog.Any("error", err))
			s.finish(ctx, factsFromCache(c, *entry))
			return nil
		}
		logger.Warn("candidate dropped after fetch failure", slog.Any("error", err))
		return nil
	}

	detail, err := extractor.ParseDetailPage(body)
	if err != nil {
		logger.Warn("detail page parse failed", slog.Any("error", err))
		return nil
	}
	if detail.Invalid != extractor.InvalidNone {
		return s.handleInvalidPage(ctx, c, detail.Invalid)
	}
	s.invalidStreak = 0

	if detail.IsBundle() {
		s.recordClassification(ctx, c.asin, catalog.OutcomeBundle, "verify", detail.Title, "")
		return nil
	}
	if !textnorm.FormatMatchesKind(detail.Format, s.kind) {
		logger.Debug("format mismatch",
			slog.String("format", detail.Format), slog.String("kind", string(s.kind)))
		return nil
	}

	tome, final := s.tomeForTitle(c.asin, detail.Title)
	facts := verifiedFacts{
		asin:        c.asin,
		url:         c.url,
		title:       detail.Title,
		tome:        tome,
		tomeFinal:   final,
		releaseDate: detail.ReleaseDate,
		publisher:   detail.Publisher,
		coverURL:    detail.CoverURL,
	}
	if err := s.persist(ctx, facts); err != nil {
		return err
	}
	s.finish(ctx, facts)
	return nil
}

// handleInvalidPage counts consecutive interstitials toward the circuit
// breaker and salvages the candidate from the cache or its search snippet.
func (s *seriesScan) handleInvalidPage(ctx context.Context, c candidate, reason extractor.InvalidReason) error {
	s.invalidStreak++
	if s.p.metrics != nil {
		s.p.metrics.IncInvalidPage()
	}
	s.logger.Warn("invalid detail page",
		slog.String(logging.FieldASIN, c.asin),
		slog.String("reason", string(reason)),
		slog.Int("streak", s.invalidStreak))

	// A snippet captured by this run's search pass beats whatever stale
	// facts the cache still holds.
	if snip, ok := s.snippets[c.asin]; ok {
		if err := s.finishFromSnippet(ctx, c, snip); err != nil {
			return err
		}
	} else if entry, err := s.p.store.CacheLookupAny(ctx, c.asin); err == nil && entry != nil {
		s.finish(ctx, factsFromCache(c, *entry))
	} else {
		s.logger.Warn("candidate dropped, no fallback data",
			slog.String(logging.FieldASIN, c.asin))
	}

	if s.invalidStreak >= s.p.cfg.Timing.BreakerThreshold {
		cooldown := time.Duration(s.p.cfg.Timing.BreakerCooldownSeconds) * time.Second
		s.logger.Warn("interstitial streak tripped breaker",
			slog.Duration("cooldown", cooldown))
		if err := s.p.sleep(ctx, cooldown); err != nil {
			return err
		}
		s.invalidStreak = 0
	}
	return nil
}

// finishFromSnippet verifies a candidate from its search snippet when the
// detail page was unusable. Snippet facts are persisted so a later run can
// start from them, but extraction stays retriable unless the snippet proved
// the tome.
func (s *seriesScan) finishFromSnippet(ctx context.Context, c candidate, snip extractor.SnippetMeta) error {
	if !textnorm.FormatMatchesKind(snip.Format, s.kind) {
		s.logger.Debug("snippet format mismatch",
			slog.String(logging.FieldASIN, c.asin), slog.String("format", snip.Format))
		return nil
	}
	facts := verifiedFacts{
		asin:        c.asin,
		url:         c.url,
		title:       s.titles[c.asin],
		tome:        snip.Tome,
		tomeFinal:   snip.TomeFinal,
		releaseDate: snip.ReleaseDate,
		publisher:   snip.Publisher,
	}
	s.logger.Info("falling back to search snippet",
		slog.String(logging.FieldASIN, c.asin))
	if err := s.persist(ctx, facts); err != nil {
		return err
	}
	s.finish(ctx, facts)
	return nil
}

// persist writes the verification snapshot. It is written even when a later
// filter excludes the candidate, so the next run can answer from the cache.
// The volume row is only written once finish has accepted the candidate.
func (s *seriesScan) persist(ctx context.Context, f verifiedFacts) error {
	entry := catalog.CacheEntry{
		ASIN:         f.asin,
		Tome:         f.tome,
		TomeFinal:    f.tomeFinal,
		RetryAllowed: f.tome == nil && !f.tomeFinal,
		ReleaseDate:  f.releaseDate,
		Title:        f.title,
		Publisher:    f.publisher,
	}
	if err := s.p.store.CacheStore(ctx, entry); err != nil {
		return fmt.Errorf("store verification snapshot: %w", err)
	}
	return nil
}

func (s *seriesScan) storeVolume(ctx context.Context, f verifiedFacts) error {
	return s.p.store.UpsertVolume(ctx, catalog.Volume{
		Series:      s.series.Name,
		SeriesName:  s.series.DisplayName(),
		Tome:        f.tome,
		ASIN:        f.asin,
		URL:         f.url,
		ReleaseDate: f.releaseDate,
		Title:       f.title,
		Publisher:   f.publisher,
	})
}

// finish applies the publisher-of-record filter, records the accepted volume,
// and decides newness. An operator-accepted identifier skips the filter.
func (s *seriesScan) finish(ctx context.Context, f verifiedFacts) {
	if s.publisherOfRecord != "" && f.publisher != "" && !s.accepted[f.asin] &&
		!textnorm.PublishersMatch(f.publisher, s.publisherOfRecord) {
		s.logger.Debug("publisher mismatch",
			slog.String(logging.FieldASIN, f.asin),
			slog.String("publisher", f.publisher),
			slog.String("record", s.publisherOfRecord))
		return
	}
	if s.publisherOfRecord == "" && f.publisher != "" {
		s.publisherOfRecord = f.publisher
	}

	if err := s.storeVolume(ctx, f); err != nil {
		s.logger.Warn("store volume failed",
			slog.String(logging.FieldASIN, f.asin), slog.Any("error", err))
	}

	isNew := s.evaluateNewness(ctx, f)
	s.result.Snapshot = append(s.result.Snapshot, Verified{
		ASIN:        f.asin,
		URL:         f.url,
		Title:       f.title,
		Tome:        f.tome,
		ReleaseDate: f.releaseDate,
		Publisher:   f.publisher,
		New:         isNew,
	})
}

// evaluateNewness classifies the release date against the freshness window
// and the alert history, re-alerting when a previously announced date moved.
func (s *seriesScan) evaluateNewness(ctx context.Context, f verifiedFacts) bool {
	released, ok := parseReleaseDate(f.releaseDate)
	if !ok {
		if f.releaseDate != "" {
			s.logger.Debug("unparseable release date",
				slog.String(logging.FieldASIN, f.asin),
				slog.String("date", f.releaseDate))
		}
		return false
	}
	if !released.After(s.newnessThreshold()) {
		return false
	}

	alerted, found, err := s.p.store.AlertDate(ctx, s.series.Name, f.url)
	if err != nil {
		s.logger.Warn("alert lookup failed", slog.Any("error", err))
		return false
	}
	normalizedDate := extractor.NormalizeDate(f.releaseDate)
	if found && alerted == normalizedDate {
		return false
	}

	nv := NewVolume{
		Series:      s.series.Name,
		SeriesName:  s.series.DisplayName(),
		Tome:        f.tome,
		ASIN:        f.asin,
		URL:         f.url,
		ReleaseDate: normalizedDate,
		Title:       f.title,
		Publisher:   f.publisher,
		CoverURL:    f.coverURL,
	}
	if found {
		nv.DateChanged = true
		nv.PreviousDate = alerted
		s.logger.Info("release date changed",
			slog.String(logging.FieldASIN, f.asin),
			slog.String("previous", alerted),
			slog.String("current", normalizedDate))
	} else {
		s.logger.Info("new volume detected",
			slog.String(logging.FieldASIN, f.asin),
			slog.String("date", normalizedDate))
	}
	s.result.New = append(s.result.New, nv)
	if s.p.metrics != nil {
		s.p.metrics.IncNewVolume()
	}

	err = s.p.store.RecordAlert(ctx, catalog.Alert{
		Series:      s.series.Name,
		URL:         f.url,
		ReleaseDate: normalizedDate,
	})
	if err != nil {
		s.logger.Warn("record alert failed", slog.Any("error", err))
	}
	return true
}

// tomeForTitle extracts the tome number from a listing title, falling back
// to the label seen next to this identifier in a bulk purchase section.
func (s *seriesScan) tomeForTitle(asin, title string) (*int, bool) {
	if t, ok := textnorm.ExtractTome(title); ok {
		if t.Final && t.Number == 0 {
			return nil, true
		}
		n := t.Number
		return &n, t.Final
	}
	if n, ok := s.bulkTomes[asin]; ok {
		return &n, false
	}
	return nil, false
}

func factsFromCache(c candidate, entry catalog.CacheEntry) verifiedFacts {
	return verifiedFacts{
		asin:        c.asin,
		url:         c.url,
		title:       entry.Title,
		tome:        entry.Tome,
		tomeFinal:   entry.TomeFinal,
		releaseDate: entry.ReleaseDate,
		publisher:   entry.Publisher,
	}
}
