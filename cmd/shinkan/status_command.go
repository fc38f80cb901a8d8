package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show database health and collection statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			health := store.CheckHealth(cmd.Context())
			stats, err := store.GatherStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("gather statistics: %w", err)
			}

			if asJSON {
				return writeJSON(cmd, map[string]any{
					"health": health,
					"stats":  stats,
				})
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			fmt.Fprintln(out, "Database")
			dbKind := statusOK
			dbMsg := health.DBPath
			switch {
			case !health.DatabaseExists:
				dbKind, dbMsg = statusError, "missing: "+health.DBPath
			case !health.DatabaseReadable:
				dbKind, dbMsg = statusError, health.Error
			case !health.IntegrityCheck:
				dbKind, dbMsg = statusWarn, "integrity check failed"
			}
			fmt.Fprintln(out, renderStatusLine("database", dbKind, dbMsg, colorize))
			fmt.Fprintln(out, renderStatusLine("schema", statusOK, health.SchemaVersion, colorize))
			fmt.Fprintln(out)

			fmt.Fprintln(out, renderTable(
				[]string{"Metric", "Count"},
				[][]string{
					{"Series tracked", fmt.Sprintf("%d", stats.SeriesTracked)},
					{"Volumes", fmt.Sprintf("%d", stats.Volumes)},
					{"Classifications", fmt.Sprintf("%d", stats.Classifications)},
					{"Cache entries", fmt.Sprintf("%d", stats.CacheEntries)},
					{"Alerts sent", fmt.Sprintf("%d", stats.Alerts)},
				},
				[]columnAlignment{alignLeft, alignRight},
			))

			series, err := ctx.loadSeries()
			if err != nil {
				return err
			}
			if len(series) > 0 {
				counts, err := store.VolumeCounts(cmd.Context())
				if err != nil {
					return fmt.Errorf("count volumes: %w", err)
				}
				rows := make([][]string, 0, len(series))
				for _, s := range series {
					progress, err := store.SearchProgress(cmd.Context(), s.Name)
					if err != nil {
						return fmt.Errorf("load search progress for %s: %w", s.Name, err)
					}
					alerts, err := store.AlertsBySeries(cmd.Context(), s.Name)
					if err != nil {
						return fmt.Errorf("load alerts for %s: %w", s.Name, err)
					}
					search := fmt.Sprintf("page %d", progress.LastPage)
					if progress.Complete {
						search = "complete"
					}
					rows = append(rows, []string{
						s.DisplayName(),
						fmt.Sprintf("%d", counts[s.Name]),
						fmt.Sprintf("%d", len(alerts)),
						search,
					})
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable(
					[]string{"Series", "Volumes", "Alerts", "Search"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
				))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}
