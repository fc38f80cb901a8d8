package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"shinkan/internal/catalog"
	"shinkan/internal/config"
	"shinkan/internal/extractor"
	"shinkan/internal/fetch"
	"shinkan/internal/logging"
	"shinkan/internal/metrics"
	"shinkan/internal/textnorm"
)

// Fetcher retrieves catalog pages. Satisfied by fetch.Client.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string, kind fetch.PageKind) (string, error)
}

// Pipeline runs discovery and verification for one series at a time.
type Pipeline struct {
	cfg     *config.Config
	store   *catalog.Store
	fetcher Fetcher
	logger  *slog.Logger
	metrics *metrics.Metrics

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New assembles a pipeline over the given store and fetcher.
func New(cfg *config.Config, store *catalog.Store, fetcher Fetcher, logger *slog.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		store:   store,
		fetcher: fetcher,
		logger:  logging.WithComponent(logger, "pipeline"),
		metrics: m,
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// seriesScan carries the mutable state of one series scan invocation.
type seriesScan struct {
	p      *Pipeline
	series config.Series
	kind   textnorm.EditionKind
	logger *slog.Logger

	// titleKey is the normalized prefix of the search key used for
	// relevance filtering of search results and bulk headings.
	titleKey string

	candidates *discoveryMap
	seen       map[string]bool
	rejected   map[string]bool
	accepted   map[string]bool
	titles     map[string]string
	snippets   map[string]extractor.SnippetMeta
	bulkTomes  map[string]int

	bundleDone  bool
	bundleTried map[string]bool
	bootstrap   bool

	publisherOfRecord string
	invalidStreak     int

	result *Result
}

// ScanSeries runs the full A/B/C phase sequence for one tracked series.
func (p *Pipeline) ScanSeries(ctx context.Context, series config.Series) (*Result, error) {
	kind := textnorm.ParseEditionKind(series.Kind)

	rejected, err := p.store.RejectedASINs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rejected identifiers: %w", err)
	}
	accepted, err := p.store.AcceptedASINs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load accepted identifiers: %w", err)
	}

	scan := &seriesScan{
		p:      p,
		series: series,
		kind:   kind,
		logger: p.logger.With(slog.String(logging.FieldSeries, series.Name)),

		titleKey:    titleKeyFor(series.SearchKey),
		candidates:  newDiscoveryMap(),
		seen:        make(map[string]bool),
		rejected:    rejected,
		accepted:    accepted,
		titles:      make(map[string]string),
		snippets:    make(map[string]extractor.SnippetMeta),
		bulkTomes:   make(map[string]int),
		bundleTried: make(map[string]bool),

		result: &Result{Series: series.Name, SeriesName: series.DisplayName()},
	}

	por, err := p.store.PublisherOfRecord(ctx, series.Name)
	if err != nil {
		return nil, fmt.Errorf("resolve publisher of record: %w", err)
	}
	scan.publisherOfRecord = por

	if err := scan.discover(ctx); err != nil {
		return nil, fmt.Errorf("discovery for %s: %w", series.Name, err)
	}
	scan.result.Discovered = scan.candidates.len()
	if scan.candidates.len() == 0 {
		scan.logger.Info("no candidates discovered")
		return scan.result, nil
	}

	if err := scan.verifyAll(ctx); err != nil {
		return nil, fmt.Errorf("verification for %s: %w", series.Name, err)
	}

	if err := scan.searchMissingTomes(ctx); err != nil {
		return nil, fmt.Errorf("gap search for %s: %w", series.Name, err)
	}

	if scan.p.metrics != nil {
		scan.p.metrics.IncSeriesScanned()
	}
	return scan.result, nil
}

// titleKeyFor builds the normalized prefix used to judge whether a listing
// title belongs to the series.
func titleKeyFor(searchKey string) string {
	runes := []rune(searchKey)
	if len(runes) > 8 {
		runes = runes[:8]
	}
	return textnorm.NormalizeTitle(string(runes))
}

// searchQuery quotes multi-character keys and keys known to be too generic
// to search bare.
func (s *seriesScan) searchQuery() string {
	key := s.series.SearchKey
	if len([]rune(key)) <= 10 && !s.isQuotedKey(key) {
		return key
	}
	return `"` + key + `"`
}

func (s *seriesScan) isQuotedKey(key string) bool {
	for _, k := range s.p.cfg.Catalog.QuotedSearchKeys {
		if k == key {
			return true
		}
	}
	return false
}

// merchantFilter restricts results to the catalog's own listings, which
// keeps marketplace reseller noise out of discovery.
const merchantFilter = "p_6%3AAN1VRQENFRJN5"

func (s *seriesScan) searchPageURL(page int) string {
	base := s.p.cfg.Catalog.BaseURL + "/s?k=" + url.QueryEscape(s.searchQuery()) +
		"&i=" + s.p.cfg.Catalog.SearchCategory +
		"&s=relevancerank&rh=" + merchantFilter
	if page > 1 {
		base += "&page=" + strconv.Itoa(page)
	}
	return base
}

func (s *seriesScan) detailURL(asin string) string {
	return s.p.cfg.Catalog.BaseURL + "/dp/" + asin
}

func (s *seriesScan) fetch(ctx context.Context, pageURL string, kind fetch.PageKind) (string, error) {
	start := s.p.now()
	body, err := s.p.fetcher.Fetch(ctx, pageURL, kind)
	if s.p.metrics != nil {
		label := "product"
		if kind == fetch.SearchPage {
			label = "search"
		}
		s.p.metrics.IncFetch(label)
		s.p.metrics.ObserveFetch(s.p.now().Sub(start))
	}
	return body, err
}

func (s *seriesScan) recordClassification(ctx context.Context, asin string, outcome catalog.Outcome, source, title, linked string) {
	if s.p.metrics != nil {
		s.p.metrics.IncClassification(string(outcome))
	}
	err := s.p.store.RecordClassification(ctx, catalog.Classification{
		Series:     s.series.Name,
		ASIN:       asin,
		Outcome:    outcome,
		Source:     source,
		Title:      title,
		LinkedASIN: linked,
	})
	if err != nil {
		s.logger.Warn("record classification failed",
			slog.String(logging.FieldASIN, asin),
			slog.Any("error", err))
	}
}
