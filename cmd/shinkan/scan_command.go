package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shinkan/internal/config"
	"shinkan/internal/export"
	"shinkan/internal/fetch"
	"shinkan/internal/metrics"
	"shinkan/internal/notifications"
	"shinkan/internal/scan"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var onlySeries string
	var withExport bool
	var once bool
	var every time.Duration

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the catalog for new volumes of tracked series",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			series, err := ctx.loadSeries()
			if err != nil {
				return err
			}
			if only := strings.TrimSpace(onlySeries); only != "" {
				series = filterSeries(series, only)
				if len(series) == 0 {
					return fmt.Errorf("series %q is not tracked", only)
				}
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			fetcher, err := fetch.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("build catalog client: %w", err)
			}

			var m *metrics.Metrics
			if cfg.Metrics.Enabled {
				m = metrics.New()
				go metrics.Serve(cmd.Context(), cfg, m, logger)
			}

			notifier := notifications.NewService(cfg)
			runner := scan.NewRunner(cfg, store, fetcher, notifier, logger, m)

			for {
				report, err := runner.Run(cmd.Context(), series)
				if err != nil {
					if errors.Is(err, scan.ErrAlreadyRunning) {
						return errors.New("a scan is already running for this data directory")
					}
					return err
				}

				printRunReport(cmd, report)

				if withExport && report.FailedCount() == 0 {
					path, err := export.Write(cmd.Context(), cfg, store, series)
					if err != nil {
						return fmt.Errorf("export collection: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Collection exported to %s\n", path)
				}

				if once || every <= 0 {
					return nil
				}
				logger.Info("next scan scheduled", slog.Duration("in", every))
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(every):
				}
			}
		},
	}

	cmd.Flags().StringVar(&onlySeries, "series", "", "Scan only the named series")
	cmd.Flags().BoolVar(&withExport, "export", false, "Write a collection snapshot after a clean run")
	cmd.Flags().BoolVar(&once, "once", false, "Run a single scan even when --every is set")
	cmd.Flags().DurationVar(&every, "every", 0, "Keep rescanning at this interval until interrupted")
	return cmd
}

func filterSeries(series []config.Series, name string) []config.Series {
	for _, s := range series {
		if s.Name == name || s.TranslatedName == name {
			return []config.Series{s}
		}
	}
	return nil
}

func printRunReport(cmd *cobra.Command, report *scan.RunReport) {
	out := cmd.OutOrStdout()

	headers := []string{"Series", "Discovered", "Verified", "New", "Status"}
	rows := make([][]string, 0, len(report.Series))
	for _, sr := range report.Series {
		status := "ok"
		if sr.Err != nil {
			status = "failed"
		} else if sr.Retried {
			status = "ok (retried)"
		}
		rows = append(rows, []string{
			sr.Series,
			fmt.Sprintf("%d", sr.Discovered),
			fmt.Sprintf("%d", sr.Verified),
			fmt.Sprintf("%d", sr.New),
			status,
		})
	}
	fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{
		alignLeft, alignRight, alignRight, alignRight, alignLeft,
	}))

	if len(report.NewVolumes) == 0 {
		fmt.Fprintln(out, "No new volumes detected")
		return
	}
	fmt.Fprintf(out, "%d new volume(s):\n", len(report.NewVolumes))
	for _, nv := range report.NewVolumes {
		marker := ""
		if nv.DateChanged {
			marker = fmt.Sprintf(" (date moved from %s)", nv.PreviousDate)
		}
		fmt.Fprintf(out, "  %s - %s (%s)%s\n", nv.SeriesName, nv.Title, nv.ReleaseDate, marker)
	}
}
