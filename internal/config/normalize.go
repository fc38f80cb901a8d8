package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCatalog()
	c.normalizeTiming()
	c.normalizeFreshness()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		c.Paths.ExportDir = defaultExportDir
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SeriesFile) == "" {
		c.Paths.SeriesFile = defaultSeriesFile
	}
	if c.Paths.SeriesFile, err = expandPath(c.Paths.SeriesFile); err != nil {
		return fmt.Errorf("paths.series_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeCatalog() {
	c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.BaseURL), "/")
	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(c.Catalog.SearchCategory) == "" {
		c.Catalog.SearchCategory = defaultSearchCategory
	}
	if c.Catalog.MinPageItems <= 0 {
		c.Catalog.MinPageItems = defaultMinPageItems
	}
	if c.Catalog.MaxNewPagesPerRun <= 0 {
		c.Catalog.MaxNewPagesPerRun = defaultMaxNewPagesPerRun
	}
	if len(c.Catalog.DerivativeKeywords) == 0 {
		c.Catalog.DerivativeKeywords = append([]string(nil), defaultDerivativeKeywords...)
	}
}

func (c *Config) normalizeTiming() {
	clampMin := func(value *int, fallback int) {
		if *value <= 0 {
			*value = fallback
		}
	}
	clampMin(&c.Timing.SearchDelayMinMs, defaultSearchDelayMinMs)
	clampMin(&c.Timing.SearchDelayMaxMs, defaultSearchDelayMaxMs)
	clampMin(&c.Timing.ProductDelayMinMs, defaultProductDelayMinMs)
	clampMin(&c.Timing.ProductDelayMaxMs, defaultProductDelayMaxMs)
	clampMin(&c.Timing.SeriesPauseMinMs, defaultSeriesPauseMinMs)
	clampMin(&c.Timing.SeriesPauseMaxMs, defaultSeriesPauseMaxMs)
	clampMin(&c.Timing.BatchPauseEvery, defaultBatchPauseEvery)
	clampMin(&c.Timing.BatchPauseSeconds, defaultBatchPauseSeconds)
	clampMin(&c.Timing.EmptySeriesPauseSeconds, defaultEmptySeriesPauseSecs)
	clampMin(&c.Timing.MidpointPauseSeconds, defaultMidpointPauseSeconds)
	clampMin(&c.Timing.RetryPauseSeconds, defaultRetryPauseSeconds)
	clampMin(&c.Timing.BreakerThreshold, defaultBreakerThreshold)
	clampMin(&c.Timing.BreakerCooldownSeconds, defaultBreakerCooldownSeconds)
	clampMin(&c.Timing.RequestTimeoutSeconds, defaultRequestTimeoutSeconds)
	if c.Timing.MaxFetchRetries < 0 {
		c.Timing.MaxFetchRetries = defaultMaxFetchRetries
	}
	if c.Timing.SearchDelayMaxMs < c.Timing.SearchDelayMinMs {
		c.Timing.SearchDelayMaxMs = c.Timing.SearchDelayMinMs
	}
	if c.Timing.ProductDelayMaxMs < c.Timing.ProductDelayMinMs {
		c.Timing.ProductDelayMaxMs = c.Timing.ProductDelayMinMs
	}
	if c.Timing.SeriesPauseMaxMs < c.Timing.SeriesPauseMinMs {
		c.Timing.SeriesPauseMaxMs = c.Timing.SeriesPauseMinMs
	}
}

func (c *Config) normalizeFreshness() {
	if c.Freshness.NewSinceDays <= 0 {
		c.Freshness.NewSinceDays = defaultNewSinceDays
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
