package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"shinkan/internal/catalog"
	"shinkan/internal/config"
	"shinkan/internal/fetch"
	"shinkan/internal/logging"
	"shinkan/internal/metrics"
	"shinkan/internal/notifications"
	"shinkan/internal/pipeline"
)

// ErrAlreadyRunning is returned when another process holds the scan lock.
var ErrAlreadyRunning = errors.New("another scan is already running")

// Fetcher is the page source the runner drives. fetch.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string, kind fetch.PageKind) (string, error)
	WarmUp(ctx context.Context) error
	PauseBetweenSeries(ctx context.Context) error
}

// Runner walks the tracked series list through the scan pipeline with
// pacing, failure containment, and notifications.
type Runner struct {
	cfg      *config.Config
	store    *catalog.Store
	fetcher  Fetcher
	pipe     *pipeline.Pipeline
	notifier notifications.Service
	logger   *slog.Logger
	metrics  *metrics.Metrics

	sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner wires a runner over an open store and fetcher.
func NewRunner(cfg *config.Config, store *catalog.Store, fetcher Fetcher, notifier notifications.Service, logger *slog.Logger, m *metrics.Metrics) *Runner {
	return &Runner{
		cfg:      cfg,
		store:    store,
		fetcher:  fetcher,
		pipe:     pipeline.New(cfg, store, fetcher, logger, m),
		notifier: notifier,
		logger:   logging.WithComponent(logger, "scan"),
		metrics:  m,
		sleep:    sleepCtx,
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

// Run scans every series in priority order. Only one run may execute per
// data directory; a second invocation fails fast with ErrAlreadyRunning.
func (r *Runner) Run(ctx context.Context, series []config.Series) (*RunReport, error) {
	lock := flock.New(r.cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire scan lock: %w", err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("release scan lock failed", slog.Any("error", err))
		}
	}()

	runID := uuid.NewString()
	ctx = logging.ContextWithRunID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)

	report := &RunReport{RunID: runID, Started: time.Now()}
	defer func() { report.Finished = time.Now() }()

	if len(series) == 0 {
		logger.Info("no series tracked, nothing to scan")
		return report, nil
	}

	if err := r.fetcher.WarmUp(ctx); err != nil {
		logger.Warn("session warm-up failed", slog.Any("error", err))
	}

	ordered, err := r.prioritize(ctx, series)
	if err != nil {
		return nil, err
	}
	logger.Info("scan starting", slog.Int("series", len(ordered)))

	var retry []config.Series
	for i, s := range ordered {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		sr := r.runOne(ctx, s, report)
		report.Series = append(report.Series, sr)
		if sr.Err != nil || sr.Discovered == 0 {
			retry = append(retry, s)
		}

		if err := r.pause(ctx, i+1, len(ordered), sr); err != nil {
			return report, err
		}
	}

	// One retry round after the dust settles, covering both failed series
	// and ones that came back empty: a zero-result scan usually means the
	// session was being throttled rather than that nothing exists.
	if len(retry) > 0 {
		retryPause := time.Duration(r.cfg.Timing.RetryPauseSeconds) * time.Second
		logger.Info("retrying series",
			slog.Int("count", len(retry)), slog.Duration("pause", retryPause))
		if err := r.sleep(ctx, retryPause); err != nil {
			return report, err
		}
		for _, s := range retry {
			sr := r.runOne(ctx, s, report)
			sr.Retried = true
			report.amend(sr)
		}
	}

	r.notifyRunSummary(ctx, report)
	logger.Info("scan finished",
		slog.Int("new_volumes", len(report.NewVolumes)),
		slog.Int("failed", report.FailedCount()),
		slog.Duration("elapsed", report.Elapsed()))
	return report, nil
}

// runOne scans a single series with panic containment and dispatches
// per-volume notifications.
func (r *Runner) runOne(ctx context.Context, s config.Series, report *RunReport) SeriesReport {
	logger := r.logger.With(slog.String(logging.FieldSeries, s.Name))
	sr := SeriesReport{Series: s.Name}

	result, err := r.scanGuarded(ctx, s)
	if err != nil {
		logger.Error("series scan failed", slog.Any("error", err))
		sr.Err = err
		r.notifyError(ctx, err, s.Name)
		return sr
	}

	sr.Discovered = result.Discovered
	sr.Verified = len(result.Snapshot)
	sr.New = len(result.New)
	r.dispatchNotifications(ctx, result, report)
	return sr
}

func (r *Runner) scanGuarded(ctx context.Context, s config.Series) (result *pipeline.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("series scan panicked: %v", p)
		}
	}()
	return r.pipe.ScanSeries(ctx, s)
}

// prioritize orders series so the ones with the most local state run first:
// well-known series answer mostly from cache and build the session's cookie
// trust before the heavier cold scans. A series without a configured
// reference still counts as referenced when the store can supply one.
func (r *Runner) prioritize(ctx context.Context, series []config.Series) ([]config.Series, error) {
	counts, err := r.store.VolumeCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load volume counts: %w", err)
	}

	referenced := make(map[string]bool, len(series))
	for _, s := range series {
		has := s.ReferenceASIN != ""
		if !has {
			asin, err := r.store.ReferenceASIN(ctx, s.Name)
			if err != nil {
				return nil, err
			}
			has = asin != ""
		}
		referenced[s.Name] = has
	}

	ordered := make([]config.Series, len(series))
	copy(ordered, series)
	sort.SliceStable(ordered, func(i, j int) bool {
		ci, cj := counts[ordered[i].Name], counts[ordered[j].Name]
		if ci != cj {
			return ci > cj
		}
		return referenced[ordered[i].Name] && !referenced[ordered[j].Name]
	})
	return ordered, nil
}

// pause applies the inter-series pacing schedule.
func (r *Runner) pause(ctx context.Context, done, total int, sr SeriesReport) error {
	if done == total {
		return nil
	}
	t := r.cfg.Timing

	if sr.Err == nil && sr.Discovered == 0 {
		if err := r.sleep(ctx, time.Duration(t.EmptySeriesPauseSeconds)*time.Second); err != nil {
			return err
		}
	}
	if t.BatchPauseEvery > 0 && done%t.BatchPauseEvery == 0 {
		if err := r.sleep(ctx, time.Duration(t.BatchPauseSeconds)*time.Second); err != nil {
			return err
		}
	}
	if total >= 4 && done == total/2 {
		if err := r.sleep(ctx, time.Duration(t.MidpointPauseSeconds)*time.Second); err != nil {
			return err
		}
	}
	return r.fetcher.PauseBetweenSeries(ctx)
}

func (r *Runner) dispatchNotifications(ctx context.Context, result *pipeline.Result, report *RunReport) {
	for _, nv := range result.New {
		report.NewVolumes = append(report.NewVolumes, nv)
		var err error
		if nv.DateChanged {
			err = r.notifier.NotifyDateChanged(ctx, nv.SeriesName, nv.Title, nv.PreviousDate, nv.ReleaseDate)
		} else {
			err = r.notifier.NotifyNewVolume(ctx, nv.SeriesName, nv.Title, nv.ReleaseDate, nv.URL)
		}
		if err != nil {
			r.logger.Warn("notification failed",
				slog.String(logging.FieldSeries, nv.Series),
				slog.Any("error", err))
		}
	}
}

func (r *Runner) notifyError(ctx context.Context, err error, label string) {
	if nerr := r.notifier.NotifyError(ctx, err, label); nerr != nil {
		r.logger.Warn("error notification failed", slog.Any("error", nerr))
	}
}

func (r *Runner) notifyRunSummary(ctx context.Context, report *RunReport) {
	err := r.notifier.NotifyRunSummary(ctx, len(report.NewVolumes), report.FailedCount(), report.Elapsed())
	if err != nil {
		r.logger.Warn("run summary notification failed", slog.Any("error", err))
	}
}
