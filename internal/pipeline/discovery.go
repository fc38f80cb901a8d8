package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"shinkan/internal/catalog"
	"shinkan/internal/extractor"
	"shinkan/internal/fetch"
	"shinkan/internal/logging"
	"shinkan/internal/textnorm"
)

// discover runs phase A: assemble the ordered candidate map from the store,
// the reference identifier, operator URLs, cross-sell exploration, and
// paginated catalog search.
func (s *seriesScan) discover(ctx context.Context) error {
	if err := s.seedFromStore(ctx); err != nil {
		return err
	}

	if s.candidates.len() == 0 && s.series.ReferenceASIN != "" {
		if err := s.bootstrapFromReference(ctx); err != nil {
			s.logger.Warn("reference bootstrap failed", slog.Any("error", err))
		}
	}

	s.seedFromManualURLs()

	if seed, ok := s.explorationSeed(ctx); ok {
		if err := s.exploreCrossSell(ctx, seed); err != nil {
			s.logger.Warn("cross-sell exploration failed",
				slog.String(logging.FieldASIN, seed.asin),
				slog.Any("error", err))
		}
	}

	if err := s.searchCatalog(ctx); err != nil {
		return err
	}

	if !s.bundleDone {
		s.retryCrossSell(ctx)
	}
	return nil
}

// seedFromStore loads every volume already recorded for the series and marks
// all previously classified identifiers as seen so search does not reprocess
// them.
func (s *seriesScan) seedFromStore(ctx context.Context) error {
	volumes, err := s.p.store.VolumesBySeries(ctx, s.series.Name)
	if err != nil {
		return fmt.Errorf("load cached volumes: %w", err)
	}
	for _, v := range volumes {
		url := v.URL
		if url == "" {
			url = s.detailURL(v.ASIN)
		}
		s.candidates.add(candidate{asin: v.ASIN, url: url, source: "store"})
		s.seen[v.ASIN] = true
		if v.Title != "" {
			s.titles[v.ASIN] = v.Title
		}
	}

	known, err := s.p.store.KnownASINs(ctx, s.series.Name)
	if err != nil {
		return fmt.Errorf("load known identifiers: %w", err)
	}
	for asin := range known {
		s.seen[asin] = true
	}
	return nil
}

// bootstrapFromReference resolves the configured reference identifier into a
// physical candidate. A digital reference is chased through its format
// switcher; if no physical edition is linked, the reference itself is used
// so the scan has at least one starting point.
func (s *seriesScan) bootstrapFromReference(ctx context.Context) error {
	ref := s.series.ReferenceASIN
	s.bootstrap = true

	if textnorm.IsPhysicalID(ref) {
		s.candidates.add(candidate{asin: ref, url: s.detailURL(ref), source: "reference"})
		return nil
	}

	body, err := s.fetch(ctx, s.detailURL(ref), fetch.ProductPage)
	if err != nil {
		return fmt.Errorf("fetch reference page: %w", err)
	}
	if physURL, ok, err := extractor.ParseFormatSwitcher(body, s.kind); err == nil && ok {
		if asin, found := textnorm.ExtractASIN(physURL); found {
			s.candidates.add(candidate{asin: asin, url: physURL, source: "reference"})
			s.recordClassification(ctx, ref, catalog.OutcomeDigital, "reference", "", asin)
			return nil
		}
	}

	// No physical edition linked. Track the digital reference itself rather
	// than scanning blind.
	s.candidates.add(candidate{asin: ref, url: s.detailURL(ref), source: "reference"})
	return nil
}

func (s *seriesScan) seedFromManualURLs() {
	for _, raw := range s.series.ExtraURLs {
		asin, ok := textnorm.ExtractASIN(raw)
		if !ok {
			s.logger.Warn("manual URL has no identifier", slog.String("url", raw))
			continue
		}
		if s.candidates.add(candidate{asin: asin, url: textnorm.CanonicalURL(raw), source: "manual"}) {
			s.logger.Debug("manual candidate added", slog.String(logging.FieldASIN, asin))
		}
	}
}

// exploreCrossSell fetches the seed's detail page and walks its bulk
// purchase, publisher, and frequently-bought sections for sibling volumes.
// A page without a bulk section leaves bundleDone unset so a later seed can
// be tried.
func (s *seriesScan) exploreCrossSell(ctx context.Context, seed candidate) error {
	if s.bundleDone || s.bundleTried[seed.asin] {
		return nil
	}
	s.bundleTried[seed.asin] = true

	body, err := s.fetch(ctx, seed.url, fetch.ProductPage)
	if err != nil {
		return fmt.Errorf("fetch cross-sell seed: %w", err)
	}

	// Frequently-bought items stray across series too often to trust except
	// when bootstrapping from a single reference, where any lead helps.
	sources := []extractor.CrossSellSource{extractor.SourceBulk, extractor.SourcePublisher}
	if s.bootstrap {
		sources = append(sources, extractor.SourceFrequentlyBought)
	}
	cross, err := extractor.ParseCrossSell(body, s.titleKey, seed.asin, sources...)
	if err != nil {
		return fmt.Errorf("parse cross-sell sections: %w", err)
	}

	s.addCrossSellASINs(cross.Bulk, "bulk")
	s.addCrossSellASINs(cross.Publisher, "publisher")
	s.addCrossSellASINs(cross.FrequentlyBought, "fbt")
	for asin, tome := range cross.BulkTomes {
		s.bulkTomes[asin] = tome
	}

	if len(cross.Bulk) > 0 {
		s.bundleDone = true
	}
	s.logger.Debug("cross-sell explored",
		slog.String(logging.FieldASIN, seed.asin),
		slog.Int("bulk", len(cross.Bulk)),
		slog.Int("publisher", len(cross.Publisher)),
		slog.Int("fbt", len(cross.FrequentlyBought)))
	return nil
}

// explorationSeed picks the candidate whose detail page gets walked for
// cross-sell sections: the configured reference, then the store's reference
// identifier (an accepted or highest-tome volume anchors the best sections),
// then the first candidate discovered.
func (s *seriesScan) explorationSeed(ctx context.Context) (candidate, bool) {
	if c, ok := s.candidates.get(s.series.ReferenceASIN); ok {
		return c, true
	}
	asin, err := s.p.store.ReferenceASIN(ctx, s.series.Name)
	if err != nil {
		s.logger.Warn("reference lookup failed", slog.Any("error", err))
	} else if asin != "" {
		if c, ok := s.candidates.get(asin); ok {
			return c, true
		}
	}
	return s.candidates.first()
}

func (s *seriesScan) addCrossSellASINs(asins []string, source string) {
	for _, asin := range asins {
		if s.rejected[asin] || !textnorm.IsPhysicalID(asin) {
			continue
		}
		s.candidates.add(candidate{asin: asin, url: s.detailURL(asin), source: source})
	}
}

// retryCrossSell picks one more exploration seed after search, preferring a
// candidate whose title names the edition format being tracked.
func (s *seriesScan) retryCrossSell(ctx context.Context) {
	const maxSeeds = 2

	ordered := make([]candidate, 0, s.candidates.len())
	for _, c := range s.candidates.all() {
		if textnorm.TitleSuggestsKind(s.titles[c.asin], s.kind) {
			ordered = append([]candidate{c}, ordered...)
		} else {
			ordered = append(ordered, c)
		}
	}

	for _, c := range ordered {
		if s.bundleDone || len(s.bundleTried) >= maxSeeds {
			return
		}
		if s.bundleTried[c.asin] {
			continue
		}
		if err := s.exploreCrossSell(ctx, c); err != nil {
			s.logger.Warn("cross-sell retry failed",
				slog.String(logging.FieldASIN, c.asin),
				slog.Any("error", err))
		}
	}
}

// searchCatalog runs the paginated relevance search. The first page is
// always refetched; deeper pages advance only while the previous pass found
// nothing new and pagination has not been exhausted.
func (s *seriesScan) searchCatalog(ctx context.Context) error {
	progress, err := s.p.store.SearchProgress(ctx, s.series.Name)
	if err != nil {
		return fmt.Errorf("load search progress: %w", err)
	}

	newOnFirst, hasNext, err := s.classifySearchPage(ctx, 1)
	if err != nil {
		if errors.Is(err, fetch.ErrInvalidPage) || errors.Is(err, fetch.ErrNotFound) {
			s.logger.Warn("first search page unusable", slog.Any("error", err))
			return nil
		}
		return err
	}
	if !hasNext {
		progress.Complete = true
		if err := s.p.store.SaveSearchProgress(ctx, progress); err != nil {
			s.logger.Warn("save search progress failed", slog.Any("error", err))
		}
		return nil
	}

	if progress.Complete || newOnFirst > 0 {
		return nil
	}

	maxNew := s.p.cfg.Catalog.MaxNewPagesPerRun
	for i := 0; i < maxNew; i++ {
		page := progress.LastPage + 1
		_, hasNext, err := s.classifySearchPage(ctx, page)
		if err != nil {
			if errors.Is(err, fetch.ErrInvalidPage) || errors.Is(err, fetch.ErrNotFound) {
				s.logger.Warn("search page unusable",
					slog.Int("page", page), slog.Any("error", err))
				return nil
			}
			return err
		}

		progress.LastPage = page
		if !hasNext {
			progress.Complete = true
		}
		if err := s.p.store.SaveSearchProgress(ctx, progress); err != nil {
			s.logger.Warn("save search progress failed", slog.Any("error", err))
		}
		if progress.Complete {
			return nil
		}
	}
	return nil
}

// classifySearchPage fetches one search page and routes every item through
// the classification cascade. Returns how many new candidates the page
// yielded and whether pagination continues past it.
func (s *seriesScan) classifySearchPage(ctx context.Context, page int) (int, bool, error) {
	body, err := s.fetch(ctx, s.searchPageURL(page), fetch.SearchPage)
	if err != nil {
		return 0, false, err
	}

	parsed, err := extractor.ParseSearchPage(body)
	if err != nil {
		return 0, false, fmt.Errorf("parse search page %d: %w", page, err)
	}

	added := 0
	for _, item := range parsed.Items {
		if s.classifyItem(ctx, item) {
			added++
		}
	}

	hasNext := parsed.HasNext
	if page > 1 && len(parsed.Items) < s.p.cfg.Catalog.MinPageItems {
		// A short deep page means the result set has run out even when the
		// pagination widget still renders a next link.
		hasNext = false
	}

	s.logger.Debug("search page classified",
		slog.Int("page", page),
		slog.Int("items", len(parsed.Items)),
		slog.Int("new", added),
		slog.Bool("has_next", hasNext))
	return added, hasNext, nil
}

// classifyItem runs one search result through the cascade. Every branch is
// terminal and recorded; reports whether the item became a candidate.
func (s *seriesScan) classifyItem(ctx context.Context, item extractor.SearchItem) bool {
	if item.ASIN == "" || s.seen[item.ASIN] {
		return false
	}
	s.seen[item.ASIN] = true

	if s.rejected[item.ASIN] {
		s.recordClassification(ctx, item.ASIN, catalog.OutcomeOffTopicTitle, "search", item.Title, "")
		return false
	}

	normalized := textnorm.NormalizeTitle(item.Title)
	if !strings.Contains(normalized, s.titleKey) {
		s.recordClassification(ctx, item.ASIN, catalog.OutcomeOffTopicTitle, "search", item.Title, "")
		return false
	}

	if kw, found := s.derivativeKeyword(item.Title); found {
		s.logger.Debug("derivative listing skipped",
			slog.String(logging.FieldASIN, item.ASIN), slog.String("keyword", kw))
		s.recordClassification(ctx, item.ASIN, catalog.OutcomeDerivative, "search", item.Title, "")
		return false
	}

	if item.Sponsored {
		s.recordClassification(ctx, item.ASIN, catalog.OutcomeSponsored, "search", item.Title, "")
		return false
	}

	if textnorm.IsDigitalListing(item.URL, item.Title) {
		s.classifyDigitalItem(ctx, item)
		return false
	}

	if _, isBundle := textnorm.DetectBundle(item.Title); isBundle {
		s.recordClassification(ctx, item.ASIN, catalog.OutcomeBundle, "search", item.Title, "")
		return false
	}

	if !textnorm.IsPhysicalID(item.ASIN) {
		s.recordClassification(ctx, item.ASIN, catalog.OutcomeNonPhysical, "search", item.Title, "")
		return false
	}

	s.candidates.add(candidate{asin: item.ASIN, url: textnorm.CanonicalURL(item.URL), source: "search"})
	s.titles[item.ASIN] = item.Title
	s.snippets[item.ASIN] = item.Snippet
	s.recordClassification(ctx, item.ASIN, catalog.OutcomeCandidate, "search", item.Title, "")
	return true
}

// classifyDigitalItem chases a digital listing to its physical edition via
// the detail page format switcher and records the link either way. A link
// recorded by an earlier run is reused without refetching the page.
func (s *seriesScan) classifyDigitalItem(ctx context.Context, item extractor.SearchItem) {
	prev, err := s.p.store.DigitalLink(ctx, s.series.Name, item.ASIN)
	if err != nil {
		s.logger.Warn("digital link lookup failed",
			slog.String(logging.FieldASIN, item.ASIN), slog.Any("error", err))
	} else if prev != "" {
		if !s.seen[prev] && !s.rejected[prev] {
			s.candidates.add(candidate{asin: prev, url: s.detailURL(prev), source: "format_switcher"})
			s.titles[prev] = item.Title
		}
		s.recordClassification(ctx, item.ASIN, catalog.OutcomeDigital, "search", item.Title, prev)
		return
	}

	linked := ""
	body, err := s.fetch(ctx, item.URL, fetch.ProductPage)
	if err != nil {
		s.logger.Debug("digital listing fetch failed",
			slog.String(logging.FieldASIN, item.ASIN), slog.Any("error", err))
	} else if physURL, ok, perr := extractor.ParseFormatSwitcher(body, s.kind); perr == nil && ok {
		if asin, found := textnorm.ExtractASIN(physURL); found && !s.seen[asin] && !s.rejected[asin] {
			linked = asin
			s.candidates.add(candidate{asin: asin, url: physURL, source: "format_switcher"})
			s.titles[asin] = item.Title
		}
	}
	s.recordClassification(ctx, item.ASIN, catalog.OutcomeDigital, "search", item.Title, linked)
}

func (s *seriesScan) derivativeKeyword(title string) (string, bool) {
	for _, kw := range s.p.cfg.Catalog.DerivativeKeywords {
		if kw != "" && strings.Contains(title, kw) {
			return kw, true
		}
	}
	return "", false
}
