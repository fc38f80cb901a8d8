package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"shinkan/internal/catalog"
	"shinkan/internal/config"
	"shinkan/internal/fetch"
	"shinkan/internal/logging"
	"shinkan/internal/testsupport"
)

// fakeFetcher serves canned page bodies keyed by URL and counts calls.
type fakeFetcher struct {
	pages map[string]string
	calls map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: make(map[string]string), calls: make(map[string]int)}
}

func (f *fakeFetcher) Fetch(ctx context.Context, pageURL string, kind fetch.PageKind) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.calls[pageURL]++
	body, ok := f.pages[pageURL]
	if !ok {
		return "", fetch.ErrNotFound
	}
	return body, nil
}

func testSearchURL(cfg *config.Config, key string, page int) string {
	u := cfg.Catalog.BaseURL + "/s?k=" + url.QueryEscape(key) +
		"&i=" + cfg.Catalog.SearchCategory + "&s=relevancerank&rh=" + merchantFilter
	if page > 1 {
		u += fmt.Sprintf("&page=%d", page)
	}
	return u
}

func detailPageHTML(title, date, publisher string) string {
	return fmt.Sprintf(`<html><body>
<span id="productTitle"> %s </span>
<div id="detailBulletsWrapper_feature_div"><ul>
<li><span>発売日 : %s</span></li>
<li><span>出版社 : %s</span></li>
</ul></div>
<div id="tmmSwatches"><span class="a-button-selected">コミック</span></div>
</body></html>`, title, date, publisher)
}

// bulkSection renders a bulk purchase box listing the given identifiers
// with tome labels, headed by the series title.
func bulkSection(heading string, asins ...string) string {
	var b strings.Builder
	b.WriteString(`<div class="pbnx-desktop-box"><span class="a-size-base">`)
	b.WriteString(heading)
	b.WriteString(` 新品まとめ買い</span>`)
	for i, asin := range asins {
		fmt.Fprintf(&b, `<div class="pbnx-single-product"><a href="/dp/%s">%d巻</a></div>`, asin, i+1)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func searchItemHTML(asin, title, dateLine string) string {
	return fmt.Sprintf(`<div class="s-result-item" data-asin="%s">
<h2><a class="a-link-normal" href="/dp/%s"><span>%s</span></a></h2>
<span class="a-size-base">%s</span>
</div>`, asin, asin, title, dateLine)
}

func searchPageHTML(hasNext bool, items ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="s-main-slot">`)
	for _, item := range items {
		b.WriteString(item)
	}
	b.WriteString(`</div>`)
	if hasNext {
		b.WriteString(`<a class="s-pagination-next" href="/s?page=2">Next</a>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func newTestPipeline(t *testing.T) (*Pipeline, *fakeFetcher, *catalog.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	fetcher := newFakeFetcher()
	p := New(cfg, store, fetcher, logging.NewNop(), nil)
	p.now = func() time.Time {
		return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	}
	p.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return p, fetcher, store, cfg
}

const (
	asinVol1 = "4098501112"
	asinVol2 = "4098501129"
)

var frierenSeries = config.Series{
	Name:          "葬送のフリーレン",
	SearchKey:     "葬送のフリーレン",
	Kind:          "manga",
	ReferenceASIN: asinVol1,
}

func dpURL(asin string) string {
	return "https://www.amazon.co.jp/dp/" + asin
}

func TestScanSeriesBootstrapsFromReference(t *testing.T) {
	p, fetcher, store, cfg := newTestPipeline(t)

	fetcher.pages[testSearchURL(cfg, frierenSeries.SearchKey, 1)] = searchPageHTML(false,
		searchItemHTML(asinVol1, "葬送のフリーレン (1)", "コミック - 2020/1/1"),
		searchItemHTML(asinVol2, "葬送のフリーレン (2)", "コミック - 2026/1/23"),
	)
	fetcher.pages[dpURL(asinVol1)] = detailPageHTML("葬送のフリーレン (1)", "2020/1/1", "小学館") +
		bulkSection("葬送のフリーレン", asinVol1, asinVol2)
	fetcher.pages[dpURL(asinVol2)] = detailPageHTML("葬送のフリーレン (2)", "2026/1/23", "小学館")

	result, err := p.ScanSeries(context.Background(), frierenSeries)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if len(result.New) != 1 {
		t.Fatalf("expected 1 new volume, got %d", len(result.New))
	}
	nv := result.New[0]
	if nv.ASIN != asinVol2 {
		t.Fatalf("unexpected new volume identifier %s", nv.ASIN)
	}
	if nv.Tome == nil || *nv.Tome != 2 {
		t.Fatalf("unexpected tome: %v", nv.Tome)
	}
	if nv.DateChanged {
		t.Fatal("fresh detection must not be flagged as date change")
	}
	if nv.ReleaseDate != "2026/01/23" {
		t.Fatalf("unexpected release date %q", nv.ReleaseDate)
	}
	if len(result.Snapshot) != 2 {
		t.Fatalf("expected 2 verified volumes, got %d", len(result.Snapshot))
	}

	date, found, err := store.AlertDate(context.Background(), frierenSeries.Name, dpURL(asinVol2))
	if err != nil || !found {
		t.Fatalf("alert not recorded: found=%v err=%v", found, err)
	}
	if date != "2026/01/23" {
		t.Fatalf("alert recorded with date %q", date)
	}

	volumes, err := store.VolumesBySeries(context.Background(), frierenSeries.Name)
	if err != nil {
		t.Fatalf("load volumes: %v", err)
	}
	if len(volumes) != 2 {
		t.Fatalf("expected 2 stored volumes, got %d", len(volumes))
	}
}

func TestScanSeriesSecondRunAnswersFromCache(t *testing.T) {
	p, fetcher, _, cfg := newTestPipeline(t)

	fetcher.pages[testSearchURL(cfg, frierenSeries.SearchKey, 1)] = searchPageHTML(false,
		searchItemHTML(asinVol1, "葬送のフリーレン (1)", "コミック - 2020/1/1"),
		searchItemHTML(asinVol2, "葬送のフリーレン (2)", "コミック - 2026/1/23"),
	)
	fetcher.pages[dpURL(asinVol1)] = detailPageHTML("葬送のフリーレン (1)", "2020/1/1", "小学館") +
		bulkSection("葬送のフリーレン", asinVol1, asinVol2)
	fetcher.pages[dpURL(asinVol2)] = detailPageHTML("葬送のフリーレン (2)", "2026/1/23", "小学館")

	if _, err := p.ScanSeries(context.Background(), frierenSeries); err != nil {
		t.Fatalf("first scan failed: %v", err)
	}
	vol2Fetches := fetcher.calls[dpURL(asinVol2)]

	result, err := p.ScanSeries(context.Background(), frierenSeries)
	if err != nil {
		t.Fatalf("second scan failed: %v", err)
	}
	if len(result.New) != 0 {
		t.Fatalf("second run must not re-alert, got %d new", len(result.New))
	}
	if fetcher.calls[dpURL(asinVol2)] != vol2Fetches {
		t.Fatalf("second run refetched a cached volume: %d calls",
			fetcher.calls[dpURL(asinVol2)])
	}
	if len(result.Snapshot) != 2 {
		t.Fatalf("expected cached snapshot of 2 volumes, got %d", len(result.Snapshot))
	}
}

func TestScanSeriesClassifiesOffTopicResults(t *testing.T) {
	p, fetcher, store, cfg := newTestPipeline(t)

	const offTopic = "4098509999"
	fetcher.pages[testSearchURL(cfg, frierenSeries.SearchKey, 1)] = searchPageHTML(false,
		searchItemHTML(asinVol1, "葬送のフリーレン (1)", "コミック - 2020/1/1"),
		searchItemHTML(offTopic, "別作品のタイトル (3)", "コミック - 2026/1/10"),
	)
	fetcher.pages[dpURL(asinVol1)] = detailPageHTML("葬送のフリーレン (1)", "2020/1/1", "小学館") +
		bulkSection("葬送のフリーレン", asinVol1)

	result, err := p.ScanSeries(context.Background(), frierenSeries)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	for _, v := range result.Snapshot {
		if v.ASIN == offTopic {
			t.Fatal("off-topic listing was verified")
		}
	}
	if fetcher.calls[dpURL(offTopic)] != 0 {
		t.Fatal("off-topic listing should never be fetched")
	}

	classifications, err := store.ClassificationsBySeries(context.Background(), frierenSeries.Name)
	if err != nil {
		t.Fatalf("load classifications: %v", err)
	}
	var outcome catalog.Outcome
	for _, c := range classifications {
		if c.ASIN == offTopic {
			outcome = c.Outcome
		}
	}
	if outcome != catalog.OutcomeOffTopicTitle {
		t.Fatalf("expected off_topic_title classification, got %q", outcome)
	}
}

func TestScanSeriesReAlertsOnDateChange(t *testing.T) {
	p, fetcher, store, cfg := newTestPipeline(t)
	ctx := context.Background()

	tome := 2
	err := store.UpsertVolume(ctx, catalog.Volume{
		Series:      frierenSeries.Name,
		SeriesName:  frierenSeries.Name,
		Tome:        &tome,
		ASIN:        asinVol2,
		URL:         dpURL(asinVol2),
		ReleaseDate: "2026/03/10",
		Title:       "葬送のフリーレン (2)",
		Publisher:   "Shogakukan",
	})
	if err != nil {
		t.Fatalf("seed volume: %v", err)
	}
	err = store.CacheStore(ctx, catalog.CacheEntry{
		ASIN:        asinVol2,
		Tome:        &tome,
		ReleaseDate: "2026/03/10",
		Title:       "葬送のフリーレン (2)",
		Publisher:   "Shogakukan",
	})
	if err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	err = store.RecordAlert(ctx, catalog.Alert{
		Series:      frierenSeries.Name,
		URL:         dpURL(asinVol2),
		ReleaseDate: "2026/03/10",
	})
	if err != nil {
		t.Fatalf("seed alert: %v", err)
	}

	// The pre-order date slipped a month since the alert went out.
	fetcher.pages[dpURL(asinVol2)] = detailPageHTML("葬送のフリーレン (2)", "2026/4/15", "小学館") +
		bulkSection("葬送のフリーレン", asinVol2)
	fetcher.pages[testSearchURL(cfg, frierenSeries.SearchKey, 1)] = searchPageHTML(false)

	result, err := p.ScanSeries(ctx, frierenSeries)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if len(result.New) != 1 {
		t.Fatalf("expected 1 re-alert, got %d", len(result.New))
	}
	nv := result.New[0]
	if !nv.DateChanged {
		t.Fatal("expected date change flag")
	}
	if nv.PreviousDate != "2026/03/10" || nv.ReleaseDate != "2026/04/15" {
		t.Fatalf("unexpected dates: previous=%q current=%q", nv.PreviousDate, nv.ReleaseDate)
	}

	date, found, err := store.AlertDate(ctx, frierenSeries.Name, dpURL(asinVol2))
	if err != nil || !found {
		t.Fatalf("alert missing after re-alert: found=%v err=%v", found, err)
	}
	if date != "2026/04/15" {
		t.Fatalf("alert not updated, still %q", date)
	}
}

// seedPublisherRecord stores two verified Shogakukan volumes so the series
// carries an established publisher of record.
func seedPublisherRecord(t *testing.T, store *catalog.Store, series string) {
	t.Helper()
	ctx := context.Background()
	dates := []string{"2020/01/01", "2021/01/01"}
	for i, asin := range []string{asinVol1, asinVol2} {
		tome := i + 1
		err := store.UpsertVolume(ctx, catalog.Volume{
			Series:      series,
			SeriesName:  series,
			Tome:        &tome,
			ASIN:        asin,
			URL:         dpURL(asin),
			ReleaseDate: dates[i],
			Title:       fmt.Sprintf("葬送のフリーレン (%d)", tome),
			Publisher:   "小学館",
		})
		if err != nil {
			t.Fatalf("seed volume %s: %v", asin, err)
		}
		err = store.CacheStore(ctx, catalog.CacheEntry{
			ASIN:        asin,
			Tome:        &tome,
			ReleaseDate: dates[i],
			Title:       fmt.Sprintf("葬送のフリーレン (%d)", tome),
			Publisher:   "小学館",
		})
		if err != nil {
			t.Fatalf("seed cache %s: %v", asin, err)
		}
	}
}

func TestScanSeriesOffPublisherListingNeverBecomesVolume(t *testing.T) {
	p, fetcher, store, cfg := newTestPipeline(t)
	ctx := context.Background()

	const offPub = "4063333333"
	series := config.Series{
		Name:      "葬送のフリーレン",
		SearchKey: "葬送のフリーレン",
		Kind:      "manga",
		ExtraURLs: []string{dpURL(offPub)},
	}
	seedPublisherRecord(t, store, series.Name)

	fetcher.pages[testSearchURL(cfg, series.SearchKey, 1)] = searchPageHTML(false)
	fetcher.pages[dpURL(offPub)] = detailPageHTML("葬送のフリーレン (3)", "2026/1/20", "講談社")

	result, err := p.ScanSeries(ctx, series)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	volumes, err := store.VolumesBySeries(ctx, series.Name)
	if err != nil {
		t.Fatalf("load volumes: %v", err)
	}
	if len(volumes) != 2 {
		t.Fatalf("expected 2 stored volumes, got %d", len(volumes))
	}
	for _, v := range volumes {
		if v.ASIN == offPub {
			t.Fatalf("off-publisher listing stored as volume: %+v", v)
		}
	}
	for _, v := range result.Snapshot {
		if v.ASIN == offPub {
			t.Fatal("off-publisher listing present in snapshot")
		}
	}

	// The verification itself is still cached so the next run does not
	// refetch the page just to filter it again.
	entry, err := store.CacheLookupAny(ctx, offPub)
	if err != nil || entry == nil {
		t.Fatalf("verification not cached: entry=%v err=%v", entry, err)
	}
	if entry.Publisher != "講談社" {
		t.Fatalf("cached publisher %q", entry.Publisher)
	}
}

func TestScanSeriesAcceptedListingBypassesPublisherFilter(t *testing.T) {
	p, fetcher, store, cfg := newTestPipeline(t)
	ctx := context.Background()

	const offPub = "4063333333"
	series := config.Series{
		Name:      "葬送のフリーレン",
		SearchKey: "葬送のフリーレン",
		Kind:      "manga",
		ExtraURLs: []string{dpURL(offPub)},
	}
	seedPublisherRecord(t, store, series.Name)
	if err := store.SetManualStatus(ctx, offPub, catalog.StatusAccepted, "publisher change"); err != nil {
		t.Fatalf("accept listing: %v", err)
	}

	fetcher.pages[testSearchURL(cfg, series.SearchKey, 1)] = searchPageHTML(false)
	fetcher.pages[dpURL(offPub)] = detailPageHTML("葬送のフリーレン (3)", "2026/1/20", "講談社")

	result, err := p.ScanSeries(ctx, series)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	volumes, err := store.VolumesBySeries(ctx, series.Name)
	if err != nil {
		t.Fatalf("load volumes: %v", err)
	}
	if len(volumes) != 3 {
		t.Fatalf("expected 3 stored volumes, got %d", len(volumes))
	}
	var found bool
	for _, v := range volumes {
		if v.ASIN == offPub {
			found = true
			if v.Tome == nil || *v.Tome != 3 {
				t.Fatalf("unexpected tome for accepted volume: %v", v.Tome)
			}
		}
	}
	if !found {
		t.Fatal("accepted listing missing from volumes")
	}
	if len(result.New) != 1 {
		t.Fatalf("expected the accepted volume to alert, got %d new", len(result.New))
	}
}

func TestScanSeriesBreakerTripsOnInvalidStreak(t *testing.T) {
	p, fetcher, store, cfg := newTestPipeline(t)
	ctx := context.Background()

	var slept []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	asins := []string{"4098501201", "4098501202", "4098501203"}
	for i, asin := range asins {
		tome := i + 1
		err := store.UpsertVolume(ctx, catalog.Volume{
			Series:     frierenSeries.Name,
			SeriesName: frierenSeries.Name,
			Tome:       &tome,
			ASIN:       asin,
			URL:        dpURL(asin),
			Title:      fmt.Sprintf("葬送のフリーレン (%d)", tome),
		})
		if err != nil {
			t.Fatalf("seed volume %s: %v", asin, err)
		}
	}

	// Well-formed HTML but no product title and under the plausible size
	// floor, so every verification counts toward the breaker.
	for _, asin := range asins {
		fetcher.pages[dpURL(asin)] = `<html><body><div>loading</div></body></html>`
	}
	fetcher.pages[testSearchURL(cfg, frierenSeries.SearchKey, 1)] = searchPageHTML(false)

	if _, err := p.ScanSeries(ctx, frierenSeries); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	cooldown := time.Duration(cfg.Timing.BreakerCooldownSeconds) * time.Second
	found := false
	for _, d := range slept {
		if d == cooldown {
			found = true
		}
	}
	if !found {
		t.Fatalf("breaker cooldown sleep not observed, slept %v", slept)
	}
}
