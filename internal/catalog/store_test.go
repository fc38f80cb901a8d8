package catalog_test

import (
	"context"
	"testing"

	"shinkan/internal/catalog"
	"shinkan/internal/testsupport"
)

func intRef(n int) *int { return &n }

func TestUpsertVolumePreservesKnownFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	err := store.UpsertVolume(ctx, catalog.Volume{
		Series:     "frieren-manga",
		SeriesName: "葬送のフリーレン",
		Tome:       intRef(12),
		ASIN:       "4098512345",
		URL:        "https://www.amazon.co.jp/dp/4098512345",
		Publisher:  "小学館",
	})
	if err != nil {
		t.Fatalf("insert volume: %v", err)
	}

	// A later sighting without metadata must not erase what is known.
	err = store.UpsertVolume(ctx, catalog.Volume{
		Series: "frieren-manga",
		ASIN:   "4098512345",
		Title:  "葬送のフリーレン (12)",
	})
	if err != nil {
		t.Fatalf("update volume: %v", err)
	}

	v, err := store.VolumeByASIN(ctx, "4098512345")
	if err != nil {
		t.Fatalf("fetch volume: %v", err)
	}
	if v == nil {
		t.Fatal("volume missing after upsert")
	}
	if v.SeriesName != "葬送のフリーレン" {
		t.Errorf("series name overwritten: %q", v.SeriesName)
	}
	if v.Tome == nil || *v.Tome != 12 {
		t.Errorf("tome lost: %v", v.Tome)
	}
	if v.Publisher != "小学館" {
		t.Errorf("publisher lost: %q", v.Publisher)
	}
	if v.Title != "葬送のフリーレン (12)" {
		t.Errorf("new title not applied: %q", v.Title)
	}
}

func TestKnownASINsUnionsVolumesAndClassifications(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := store.UpsertVolume(ctx, catalog.Volume{Series: "s1", ASIN: "4001111111", Tome: intRef(1)}); err != nil {
		t.Fatalf("insert volume: %v", err)
	}
	err := store.RecordClassification(ctx, catalog.Classification{
		Series: "s1", ASIN: "B0DIGITAL01", Outcome: catalog.OutcomeDigital, Source: "search",
	})
	if err != nil {
		t.Fatalf("record classification: %v", err)
	}

	known, err := store.KnownASINs(ctx, "s1")
	if err != nil {
		t.Fatalf("known identifiers: %v", err)
	}
	if !known["4001111111"] || !known["B0DIGITAL01"] {
		t.Fatalf("expected both identifiers in set, got %v", known)
	}
	if known["4009999999"] {
		t.Fatal("unseen identifier reported as known")
	}
}

func TestCacheDistinguishesNoTomeFromFailedExtraction(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	// Verified listing that genuinely carries no tome number.
	err := store.CacheStore(ctx, catalog.CacheEntry{
		ASIN: "4002222222", Tome: nil, RetryAllowed: false, Title: "読み切り作品",
	})
	if err != nil {
		t.Fatalf("store no-tome entry: %v", err)
	}
	// Listing whose extraction failed and should be retried.
	err = store.CacheStore(ctx, catalog.CacheEntry{
		ASIN: "4003333333", Tome: nil, RetryAllowed: true,
	})
	if err != nil {
		t.Fatalf("store retry entry: %v", err)
	}

	entry, err := store.CacheLookup(ctx, "4002222222")
	if err != nil {
		t.Fatalf("lookup no-tome entry: %v", err)
	}
	if entry == nil {
		t.Fatal("no-tome entry should be a cache hit")
	}
	if entry.Tome != nil {
		t.Errorf("unexpected tome: %v", entry.Tome)
	}

	entry, err = store.CacheLookup(ctx, "4003333333")
	if err != nil {
		t.Fatalf("lookup retry entry: %v", err)
	}
	if entry != nil {
		t.Fatal("failed extraction should read as a cache miss")
	}

	raw, err := store.CacheLookupAny(ctx, "4003333333")
	if err != nil {
		t.Fatalf("raw lookup: %v", err)
	}
	if raw == nil || !raw.RetryAllowed {
		t.Fatalf("raw entry should survive with retry flag: %+v", raw)
	}
}

func TestCacheInvalidateForcesRefetch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	err := store.CacheStore(ctx, catalog.CacheEntry{
		ASIN: "4004444444", Tome: intRef(3), ReleaseDate: "2026/09/18",
	})
	if err != nil {
		t.Fatalf("store entry: %v", err)
	}
	if err := store.CacheInvalidate(ctx, "4004444444"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	entry, err := store.CacheLookupAny(ctx, "4004444444")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if entry != nil {
		t.Fatalf("entry should be gone, got %+v", entry)
	}
}

func TestPublisherOfRecordPrefersAcceptedMajority(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	volumes := []catalog.Volume{
		{Series: "s1", ASIN: "4005555551", Tome: intRef(1), Publisher: "KADOKAWA"},
		{Series: "s1", ASIN: "4005555552", Tome: intRef(2), Publisher: "KADOKAWA"},
		{Series: "s1", ASIN: "4005555553", Tome: intRef(3), Publisher: "集英社"},
	}
	for _, v := range volumes {
		if err := store.UpsertVolume(ctx, v); err != nil {
			t.Fatalf("insert volume %s: %v", v.ASIN, err)
		}
	}

	// Overall majority wins when nothing is accepted yet.
	publisher, err := store.PublisherOfRecord(ctx, "s1")
	if err != nil {
		t.Fatalf("resolve publisher: %v", err)
	}
	if publisher != "KADOKAWA" {
		t.Fatalf("expected overall majority, got %q", publisher)
	}

	// One accepted volume flips the record to its publisher.
	if err := store.SetManualStatus(ctx, "4005555553", catalog.StatusAccepted, ""); err != nil {
		t.Fatalf("accept volume: %v", err)
	}
	publisher, err = store.PublisherOfRecord(ctx, "s1")
	if err != nil {
		t.Fatalf("resolve publisher after accept: %v", err)
	}
	if publisher != "集英社" {
		t.Fatalf("accepted majority should win, got %q", publisher)
	}
}

func TestAlertDateChangeDetection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	url := "https://www.amazon.co.jp/dp/4006666666"
	err := store.RecordAlert(ctx, catalog.Alert{
		Series: "s1", URL: url, ReleaseDate: "2026/10/15",
	})
	if err != nil {
		t.Fatalf("record alert: %v", err)
	}

	date, alerted, err := store.AlertDate(ctx, "s1", url)
	if err != nil {
		t.Fatalf("read alert: %v", err)
	}
	if !alerted || date != "2026/10/15" {
		t.Fatalf("alert not recorded: %v %q", alerted, date)
	}

	// A shifted pre-order date replaces the stored one.
	err = store.RecordAlert(ctx, catalog.Alert{
		Series: "s1", URL: url, ReleaseDate: "2026/11/20",
	})
	if err != nil {
		t.Fatalf("re-record alert: %v", err)
	}
	date, _, err = store.AlertDate(ctx, "s1", url)
	if err != nil {
		t.Fatalf("read alert again: %v", err)
	}
	if date != "2026/11/20" {
		t.Fatalf("date not updated: %q", date)
	}
}

func TestReferenceASINPrefersAccepted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for _, v := range []catalog.Volume{
		{Series: "s1", ASIN: "4007777771", Tome: intRef(5)},
		{Series: "s1", ASIN: "4007777772", Tome: intRef(9)},
		{Series: "s1", ASIN: "4007777773"},
	} {
		if err := store.UpsertVolume(ctx, v); err != nil {
			t.Fatalf("insert volume %s: %v", v.ASIN, err)
		}
	}

	asin, err := store.ReferenceASIN(ctx, "s1")
	if err != nil {
		t.Fatalf("reference without accepts: %v", err)
	}
	if asin != "4007777772" {
		t.Fatalf("expected highest tome, got %q", asin)
	}

	if err := store.SetManualStatus(ctx, "4007777771", catalog.StatusAccepted, ""); err != nil {
		t.Fatalf("accept: %v", err)
	}
	asin, err = store.ReferenceASIN(ctx, "s1")
	if err != nil {
		t.Fatalf("reference with accept: %v", err)
	}
	if asin != "4007777771" {
		t.Fatalf("expected accepted volume, got %q", asin)
	}
}

func TestSearchProgressDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	p, err := store.SearchProgress(ctx, "never-scanned")
	if err != nil {
		t.Fatalf("default progress: %v", err)
	}
	if p.LastPage != 1 || p.Complete {
		t.Fatalf("unexpected default progress: %+v", p)
	}

	if err := store.SaveSearchProgress(ctx, catalog.Progress{Series: "s1", LastPage: 4, Complete: true}); err != nil {
		t.Fatalf("save progress: %v", err)
	}
	p, err = store.SearchProgress(ctx, "s1")
	if err != nil {
		t.Fatalf("read progress: %v", err)
	}
	if p.LastPage != 4 || !p.Complete {
		t.Fatalf("progress not persisted: %+v", p)
	}
}

func TestPurgeSeriesRemovesEverything(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := store.UpsertVolume(ctx, catalog.Volume{Series: "gone", ASIN: "4008888881", Tome: intRef(1)}); err != nil {
		t.Fatalf("insert volume: %v", err)
	}
	if err := store.UpsertVolume(ctx, catalog.Volume{Series: "kept", ASIN: "4008888882", Tome: intRef(1)}); err != nil {
		t.Fatalf("insert volume: %v", err)
	}
	if err := store.CacheStore(ctx, catalog.CacheEntry{ASIN: "4008888881", Tome: intRef(1)}); err != nil {
		t.Fatalf("cache entry: %v", err)
	}
	if err := store.SetManualStatus(ctx, "4008888881", catalog.StatusAccepted, ""); err != nil {
		t.Fatalf("manual status: %v", err)
	}
	if err := store.RecordAlert(ctx, catalog.Alert{Series: "gone", URL: "https://www.amazon.co.jp/dp/4008888881"}); err != nil {
		t.Fatalf("record alert: %v", err)
	}

	if err := store.PurgeSeries(ctx, "gone"); err != nil {
		t.Fatalf("purge: %v", err)
	}

	volumes, err := store.VolumesBySeries(ctx, "gone")
	if err != nil {
		t.Fatalf("volumes after purge: %v", err)
	}
	if len(volumes) != 0 {
		t.Fatalf("volumes survived purge: %v", volumes)
	}
	entry, err := store.CacheLookupAny(ctx, "4008888881")
	if err != nil {
		t.Fatalf("cache after purge: %v", err)
	}
	if entry != nil {
		t.Fatal("cache entry survived purge")
	}
	kept, err := store.VolumesBySeries(ctx, "kept")
	if err != nil {
		t.Fatalf("other series after purge: %v", err)
	}
	if len(kept) != 1 {
		t.Fatalf("unrelated series affected: %v", kept)
	}
}

func TestGatherStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := store.UpsertVolume(ctx, catalog.Volume{Series: "s1", ASIN: "4009999991", Tome: intRef(1)}); err != nil {
		t.Fatalf("insert volume: %v", err)
	}

	stats, err := store.GatherStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Volumes != 1 || stats.SeriesTracked != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	health := store.CheckHealth(ctx)
	if !health.DatabaseExists || !health.DatabaseReadable || !health.IntegrityCheck {
		t.Fatalf("unhealthy fresh database: %+v", health)
	}
	if health.TotalVolumes != 1 {
		t.Fatalf("volume count: %+v", health)
	}
}
