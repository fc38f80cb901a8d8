package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Series describes one tracked publication.
type Series struct {
	// Name is the canonical series identifier used as the database key.
	Name string `toml:"name"`
	// SearchKey is the native-language query sent to the catalog search.
	SearchKey string `toml:"search_key"`
	// Kind distinguishes comic and novel editions: "manga", "novel", "any".
	Kind string `toml:"kind"`
	// TranslatedName is the optional human-readable display title.
	TranslatedName string `toml:"translated_name,omitempty"`
	// ReferenceASIN is an optional known-good identifier used to bootstrap
	// discovery for a series with no cached volumes.
	ReferenceASIN string `toml:"reference_asin,omitempty"`
	// ExtraURLs are operator-supplied detail page URLs merged into discovery.
	ExtraURLs []string `toml:"extra_urls,omitempty"`
}

// DisplayName returns the translated title when one is configured, falling
// back to the canonical name.
func (s Series) DisplayName() string {
	if s.TranslatedName != "" {
		return s.TranslatedName
	}
	return s.Name
}

type seriesFile struct {
	Series []Series `toml:"series"`
}

// LoadSeries reads the tracked series list from path. A missing file is not
// an error; it returns an empty list so a fresh install can start up.
func LoadSeries(path string) ([]Series, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read series file: %w", err)
	}

	var parsed seriesFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse series file: %w", err)
	}

	seen := make(map[string]struct{}, len(parsed.Series))
	out := make([]Series, 0, len(parsed.Series))
	for i := range parsed.Series {
		s := parsed.Series[i]
		s.Name = strings.TrimSpace(s.Name)
		s.SearchKey = strings.TrimSpace(s.SearchKey)
		if s.Name == "" {
			return nil, fmt.Errorf("series entry %d: name is required", i+1)
		}
		if s.SearchKey == "" {
			return nil, fmt.Errorf("series %q: search_key is required", s.Name)
		}
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("series %q: duplicate name", s.Name)
		}
		seen[s.Name] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// SaveSeries writes the tracked series list back to path.
func SaveSeries(path string, series []Series) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create series directory: %w", err)
		}
	}
	data, err := toml.Marshal(seriesFile{Series: series})
	if err != nil {
		return fmt.Errorf("encode series file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write series file: %w", err)
	}
	return nil
}
