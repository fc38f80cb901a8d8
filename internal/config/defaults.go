package config

const (
	defaultDataDir    = "~/.local/share/shinkan"
	defaultLogDir     = "~/.local/share/shinkan/logs"
	defaultExportDir  = "~/.local/share/shinkan/exports"
	defaultSeriesFile = "~/.config/shinkan/series.toml"

	defaultBaseURL           = "https://www.amazon.co.jp"
	defaultSearchCategory    = "stripbooks"
	defaultMinPageItems      = 8
	defaultMaxNewPagesPerRun = 3

	defaultSearchDelayMinMs       = 2000
	defaultSearchDelayMaxMs       = 4500
	defaultProductDelayMinMs      = 800
	defaultProductDelayMaxMs      = 2000
	defaultSeriesPauseMinMs       = 1500
	defaultSeriesPauseMaxMs       = 3000
	defaultBatchPauseEvery        = 15
	defaultBatchPauseSeconds      = 8
	defaultEmptySeriesPauseSecs   = 15
	defaultMidpointPauseSeconds   = 60
	defaultRetryPauseSeconds      = 30
	defaultMaxFetchRetries        = 2
	defaultBreakerThreshold       = 3
	defaultBreakerCooldownSeconds = 30
	defaultRequestTimeoutSeconds  = 30

	defaultNewSinceDays = 14

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultMetricsBind = "127.0.0.1:9477"
)

// defaultDerivativeKeywords marks merchandise listings that share a series
// title but are not books: cosplay, figures, goods, guidebooks.
var defaultDerivativeKeywords = []string{
	"コスプレ", "コスチューム", "衣装", "ウィッグ", "髪飾り", "フィギュア",
	"グッズ", "ポスター", "タペストリー", "靴", "バニー",
	"Official Book", "オフィシャルブック", "ガイドブック", "ファンブック",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			ExportDir:  defaultExportDir,
			SeriesFile: defaultSeriesFile,
		},
		Catalog: Catalog{
			BaseURL:            defaultBaseURL,
			SearchCategory:     defaultSearchCategory,
			MinPageItems:       defaultMinPageItems,
			MaxNewPagesPerRun:  defaultMaxNewPagesPerRun,
			DerivativeKeywords: append([]string(nil), defaultDerivativeKeywords...),
		},
		Timing: Timing{
			SearchDelayMinMs:        defaultSearchDelayMinMs,
			SearchDelayMaxMs:        defaultSearchDelayMaxMs,
			ProductDelayMinMs:       defaultProductDelayMinMs,
			ProductDelayMaxMs:       defaultProductDelayMaxMs,
			SeriesPauseMinMs:        defaultSeriesPauseMinMs,
			SeriesPauseMaxMs:        defaultSeriesPauseMaxMs,
			BatchPauseEvery:         defaultBatchPauseEvery,
			BatchPauseSeconds:       defaultBatchPauseSeconds,
			EmptySeriesPauseSeconds: defaultEmptySeriesPauseSecs,
			MidpointPauseSeconds:    defaultMidpointPauseSeconds,
			RetryPauseSeconds:       defaultRetryPauseSeconds,
			MaxFetchRetries:         defaultMaxFetchRetries,
			BreakerThreshold:        defaultBreakerThreshold,
			BreakerCooldownSeconds:  defaultBreakerCooldownSeconds,
			RequestTimeoutSeconds:   defaultRequestTimeoutSeconds,
		},
		Freshness: Freshness{
			NewSinceDays: defaultNewSinceDays,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			NewVolumes:     true,
			RunSummary:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Metrics: Metrics{
			Enabled: false,
			Bind:    defaultMetricsBind,
		},
	}
}
