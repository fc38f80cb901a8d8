package scan

import (
	"time"

	"shinkan/internal/pipeline"
)

// SeriesReport is the per-series outcome of one run.
type SeriesReport struct {
	Series     string
	Discovered int
	Verified   int
	New        int
	Retried    bool
	Err        error
}

// RunReport aggregates everything one scan run produced.
type RunReport struct {
	RunID      string
	Started    time.Time
	Finished   time.Time
	Series     []SeriesReport
	NewVolumes []pipeline.NewVolume
}

// amend replaces the earlier failed entry for a retried series.
func (r *RunReport) amend(sr SeriesReport) {
	for i := range r.Series {
		if r.Series[i].Series == sr.Series {
			r.Series[i] = sr
			return
		}
	}
	r.Series = append(r.Series, sr)
}

// FailedCount reports how many series still failed after retries.
func (r *RunReport) FailedCount() int {
	n := 0
	for _, sr := range r.Series {
		if sr.Err != nil {
			n++
		}
	}
	return n
}

// Elapsed is the wall time of the run, live until Finished is set.
func (r *RunReport) Elapsed() time.Duration {
	if r.Finished.IsZero() {
		return time.Since(r.Started)
	}
	return r.Finished.Sub(r.Started)
}
