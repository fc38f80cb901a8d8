// Package export writes collection snapshots of the catalog database so the
// tracked library can be consumed outside the scanner.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"shinkan/internal/catalog"
	"shinkan/internal/config"
)

// VolumeExport is one volume in the snapshot, ordered by tome.
type VolumeExport struct {
	Tome        *int   `json:"tome"`
	ASIN        string `json:"asin"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
}

// SeriesExport is the snapshot of one tracked series.
type SeriesExport struct {
	Name        string         `json:"name"`
	DisplayName string         `json:"display_name"`
	Kind        string         `json:"kind"`
	Publisher   string         `json:"publisher,omitempty"`
	Volumes     []VolumeExport `json:"volumes"`
}

// Collection is the top-level snapshot document.
type Collection struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Series      []SeriesExport `json:"series"`
}

// Build assembles the collection snapshot for the given tracked series.
func Build(ctx context.Context, store *catalog.Store, series []config.Series) (*Collection, error) {
	col := &Collection{GeneratedAt: time.Now().UTC()}
	for _, s := range series {
		volumes, err := store.VolumesBySeries(ctx, s.Name)
		if err != nil {
			return nil, fmt.Errorf("load volumes for %s: %w", s.Name, err)
		}
		publisher, err := store.PublisherOfRecord(ctx, s.Name)
		if err != nil {
			return nil, fmt.Errorf("resolve publisher for %s: %w", s.Name, err)
		}

		se := SeriesExport{
			Name:        s.Name,
			DisplayName: s.DisplayName(),
			Kind:        s.Kind,
			Publisher:   publisher,
			Volumes:     make([]VolumeExport, 0, len(volumes)),
		}
		for _, v := range volumes {
			se.Volumes = append(se.Volumes, VolumeExport{
				Tome:        v.Tome,
				ASIN:        v.ASIN,
				URL:         v.URL,
				Title:       v.Title,
				ReleaseDate: v.ReleaseDate,
				Publisher:   v.Publisher,
			})
		}
		col.Series = append(col.Series, se)
	}
	return col, nil
}

// Write builds the snapshot and writes it to a timestamped file in the
// export directory. Returns the written path.
func Write(ctx context.Context, cfg *config.Config, store *catalog.Store, series []config.Series) (string, error) {
	col, err := Build(ctx, store, series)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(cfg.Paths.ExportDir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	name := fmt.Sprintf("collection-%s.json", col.GeneratedAt.Format("20060102-150405"))
	path := filepath.Join(cfg.Paths.ExportDir, name)

	data, err := json.MarshalIndent(col, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}
