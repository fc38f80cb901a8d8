package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"shinkan/internal/extractor"
	"shinkan/internal/fetch"
	"shinkan/internal/logging"
	"shinkan/internal/textnorm"
)

// gapSearchPages bounds how deep the dedicated gap hunt paginates. Missing
// middle tomes are rarely ranked on the first page, almost never past the
// fourth.
const (
	gapSearchFirstPage = 2
	gapSearchLastPage  = 4
	gapSearchItemCap   = 30
	gapExtendedBulkMax = 5
)

// searchMissingTomes runs phase C: once a run has shown a contiguous range
// with holes, hunt the missing tome numbers through deeper search pages and
// the bulk sections of representative known volumes.
func (s *seriesScan) searchMissingTomes(ctx context.Context) error {
	s.correctTomesFromBulk(ctx)

	gaps := textnorm.AnalyzeTomes(s.knownTomeNumbers(ctx))
	if gaps.Max < 3 || gaps.Complete {
		return nil
	}
	s.logger.Info("tome gaps detected",
		slog.Int("max", gaps.Max),
		slog.Any("missing", gaps.Missing))

	if s.distinctTomeCount() < gaps.Max-2 {
		s.logger.Warn("tome range incoherent with volume count",
			slog.Int("max", gaps.Max),
			slog.Int("volumes", s.distinctTomeCount()))
	}

	if err := s.gapSearch(ctx); err != nil {
		return err
	}

	gaps = textnorm.AnalyzeTomes(s.knownTomeNumbers(ctx))
	if !gaps.Complete && len(gaps.Missing) <= gapExtendedBulkMax {
		if err := s.extendedBulkProbe(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *seriesScan) snapshotTomes() []int {
	var numbers []int
	for _, v := range s.result.Snapshot {
		if v.Tome != nil {
			numbers = append(numbers, *v.Tome)
		}
	}
	return numbers
}

// knownTomeNumbers unions this run's snapshot with the tomes already on
// record, so the gap hunt never chases a tome that a filter excluded from the
// current snapshot but an earlier run had stored.
func (s *seriesScan) knownTomeNumbers(ctx context.Context) []int {
	numbers := s.snapshotTomes()
	stored, err := s.p.store.KnownTomes(ctx, s.series.Name)
	if err != nil {
		s.logger.Warn("load known tomes failed", slog.Any("error", err))
		return numbers
	}
	for n := range stored {
		numbers = append(numbers, n)
	}
	return numbers
}

func (s *seriesScan) distinctTomeCount() int {
	seen := make(map[int]bool)
	for _, v := range s.result.Snapshot {
		if v.Tome != nil {
			seen[*v.Tome] = true
		}
	}
	return len(seen)
}

// gapSearch walks deeper search pages with a lighter filter than discovery:
// anything on-topic, physical, and not digital is verified inline.
func (s *seriesScan) gapSearch(ctx context.Context) error {
	for page := gapSearchFirstPage; page <= gapSearchLastPage; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		body, err := s.fetch(ctx, s.searchPageURL(page), fetch.SearchPage)
		if err != nil {
			s.logger.Warn("gap search page failed",
				slog.Int("page", page), slog.Any("error", err))
			return nil
		}
		parsed, err := extractor.ParseSearchPage(body)
		if err != nil {
			return fmt.Errorf("parse gap search page %d: %w", page, err)
		}

		items := parsed.Items
		if len(items) > gapSearchItemCap {
			items = items[:gapSearchItemCap]
		}
		for _, item := range items {
			if !s.gapItemRelevant(item) {
				continue
			}
			c := candidate{asin: item.ASIN, url: textnorm.CanonicalURL(item.URL), source: "gap_search"}
			s.candidates.add(c)
			s.titles[item.ASIN] = item.Title
			s.snippets[item.ASIN] = item.Snippet
			if err := s.verifyCandidate(ctx, c, false); err != nil {
				return err
			}
		}

		if textnorm.AnalyzeTomes(s.snapshotTomes()).Complete {
			return nil
		}
		if !parsed.HasNext {
			return nil
		}
	}
	return nil
}

// gapItemRelevant is the lighter phase C filter. Classification outcomes are
// not recorded here; the item either gets verified or ignored.
func (s *seriesScan) gapItemRelevant(item extractor.SearchItem) bool {
	if item.ASIN == "" || s.candidates.has(item.ASIN) || s.rejected[item.ASIN] {
		return false
	}
	if !strings.Contains(textnorm.NormalizeTitle(item.Title), s.titleKey) {
		return false
	}
	if !textnorm.IsPhysicalID(item.ASIN) {
		return false
	}
	if textnorm.IsDigitalListing(item.URL, item.Title) {
		return false
	}
	if _, isBundle := textnorm.DetectBundle(item.Title); isBundle {
		return false
	}
	return true
}

// extendedBulkProbe revisits the bulk purchase sections of up to three
// representative known volumes, spread across the tome range, looking for
// the few still-missing siblings.
func (s *seriesScan) extendedBulkProbe(ctx context.Context) error {
	reps := s.representativeVolumes()
	for _, rep := range reps {
		if err := ctx.Err(); err != nil {
			return err
		}

		body, err := s.fetch(ctx, rep.URL, fetch.ProductPage)
		if err != nil {
			s.logger.Warn("bulk probe fetch failed",
				slog.String(logging.FieldASIN, rep.ASIN), slog.Any("error", err))
			continue
		}
		cross, err := extractor.ParseCrossSell(body, s.titleKey, rep.ASIN, extractor.SourceBulk)
		if err != nil {
			s.logger.Warn("bulk probe parse failed",
				slog.String(logging.FieldASIN, rep.ASIN), slog.Any("error", err))
			continue
		}
		for asin, tome := range cross.BulkTomes {
			s.bulkTomes[asin] = tome
		}

		for _, asin := range cross.Bulk {
			if s.candidates.has(asin) || s.rejected[asin] || !textnorm.IsPhysicalID(asin) {
				continue
			}
			c := candidate{asin: asin, url: s.detailURL(asin), source: "extended_bulk"}
			s.candidates.add(c)
			if err := s.verifyCandidate(ctx, c, false); err != nil {
				return err
			}
		}

		if textnorm.AnalyzeTomes(s.snapshotTomes()).Complete {
			return nil
		}
	}
	return nil
}

// representativeVolumes picks the first, middle, and last known volumes by
// tome so the probe samples the whole range.
func (s *seriesScan) representativeVolumes() []Verified {
	var numbered []Verified
	for _, v := range s.result.Snapshot {
		if v.Tome != nil {
			numbered = append(numbered, v)
		}
	}
	if len(numbered) == 0 {
		return nil
	}
	sort.Slice(numbered, func(i, j int) bool { return *numbered[i].Tome < *numbered[j].Tome })

	picks := []int{0, len(numbered) / 2, len(numbered) - 1}
	var out []Verified
	taken := make(map[int]bool)
	for _, i := range picks {
		if !taken[i] {
			taken[i] = true
			out = append(out, numbered[i])
		}
	}
	return out
}

// correctTomesFromBulk resolves volumes that the title parser could not
// number but that a bulk purchase section labeled.
func (s *seriesScan) correctTomesFromBulk(ctx context.Context) {
	for i := range s.result.Snapshot {
		v := &s.result.Snapshot[i]
		if v.Tome != nil {
			continue
		}
		tome, ok := s.bulkTomes[v.ASIN]
		if !ok {
			continue
		}
		if err := s.p.store.SetVolumeTome(ctx, v.ASIN, tome); err != nil {
			s.logger.Warn("tome correction failed",
				slog.String(logging.FieldASIN, v.ASIN), slog.Any("error", err))
			continue
		}
		n := tome
		v.Tome = &n
		s.logger.Info("tome corrected from bulk label",
			slog.String(logging.FieldASIN, v.ASIN), slog.Int("tome", tome))
	}
}
