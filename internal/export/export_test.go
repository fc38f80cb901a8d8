package export_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"shinkan/internal/catalog"
	"shinkan/internal/config"
	"shinkan/internal/export"
	"shinkan/internal/testsupport"
)

func TestWriteProducesOrderedSnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	series := config.Series{
		Name:           "葬送のフリーレン",
		SearchKey:      "葬送のフリーレン",
		Kind:           "manga",
		TranslatedName: "Frieren",
	}

	for i, asin := range []string{"4098501129", "4098501112"} {
		tome := 2 - i
		err := store.UpsertVolume(ctx, catalog.Volume{
			Series:    series.Name,
			Tome:      &tome,
			ASIN:      asin,
			URL:       "https://www.amazon.co.jp/dp/" + asin,
			Title:     "葬送のフリーレン",
			Publisher: "Shogakukan",
		})
		if err != nil {
			t.Fatalf("seed volume: %v", err)
		}
	}

	path, err := export.Write(ctx, cfg, store, []config.Series{series})
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var col export.Collection
	if err := json.Unmarshal(data, &col); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}

	if len(col.Series) != 1 {
		t.Fatalf("expected 1 series, got %d", len(col.Series))
	}
	se := col.Series[0]
	if se.DisplayName != "Frieren" {
		t.Fatalf("unexpected display name %q", se.DisplayName)
	}
	if se.Publisher != "Shogakukan" {
		t.Fatalf("unexpected publisher %q", se.Publisher)
	}
	if len(se.Volumes) != 2 {
		t.Fatalf("expected 2 volumes, got %d", len(se.Volumes))
	}
	if se.Volumes[0].Tome == nil || *se.Volumes[0].Tome != 1 {
		t.Fatalf("volumes not ordered by tome: %+v", se.Volumes)
	}
}

func TestBuildHandlesEmptySeries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	col, err := export.Build(context.Background(), store,
		[]config.Series{{Name: "untracked", SearchKey: "untracked"}})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(col.Series) != 1 || len(col.Series[0].Volumes) != 0 {
		t.Fatalf("unexpected snapshot: %+v", col.Series)
	}
}
