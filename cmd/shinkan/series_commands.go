package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shinkan/internal/config"
)

func newSeriesCommand(ctx *commandContext) *cobra.Command {
	seriesCmd := &cobra.Command{
		Use:   "series",
		Short: "Manage the tracked series list",
	}

	seriesCmd.AddCommand(newSeriesListCommand(ctx))
	seriesCmd.AddCommand(newSeriesAddCommand(ctx))
	seriesCmd.AddCommand(newSeriesRemoveCommand(ctx))
	seriesCmd.AddCommand(newSeriesPurgeCommand(ctx))

	return seriesCmd
}

func newSeriesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked series and their cached volume counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := ctx.loadSeries()
			if err != nil {
				return err
			}
			if len(series) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No series tracked yet; add one with `shinkan series add`")
				return nil
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			counts, err := store.VolumeCounts(cmd.Context())
			if err != nil {
				return fmt.Errorf("load volume counts: %w", err)
			}

			rows := make([][]string, 0, len(series))
			for _, s := range series {
				publisher, err := store.PublisherOfRecord(cmd.Context(), s.Name)
				if err != nil {
					return fmt.Errorf("resolve publisher for %s: %w", s.Name, err)
				}
				rows = append(rows, []string{
					s.Name,
					s.TranslatedName,
					s.Kind,
					fmt.Sprintf("%d", counts[s.Name]),
					publisher,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Series", "Translated", "Kind", "Volumes", "Publisher"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newSeriesAddCommand(ctx *commandContext) *cobra.Command {
	var searchKey, kind, translated, reference string
	var extraURLs []string

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Track a new series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[0])
			if name == "" {
				return fmt.Errorf("series name is required")
			}

			series, err := ctx.loadSeries()
			if err != nil {
				return err
			}
			for _, s := range series {
				if s.Name == name {
					return fmt.Errorf("series %q is already tracked", name)
				}
			}

			key := strings.TrimSpace(searchKey)
			if key == "" {
				key = name
			}
			series = append(series, config.Series{
				Name:           name,
				SearchKey:      key,
				Kind:           kind,
				TranslatedName: strings.TrimSpace(translated),
				ReferenceASIN:  strings.TrimSpace(reference),
				ExtraURLs:      extraURLs,
			})
			if err := config.SaveSeries(cfg.Paths.SeriesFile, series); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tracking %s (%d series total)\n", name, len(series))
			return nil
		},
	}

	cmd.Flags().StringVar(&searchKey, "search-key", "", "Catalog search query (defaults to the series name)")
	cmd.Flags().StringVar(&kind, "kind", "manga", "Edition kind: manga, novel, or any")
	cmd.Flags().StringVar(&translated, "translated", "", "Human-readable display title")
	cmd.Flags().StringVar(&reference, "reference", "", "Known-good identifier to bootstrap discovery")
	cmd.Flags().StringArrayVar(&extraURLs, "url", nil, "Extra detail page URL merged into discovery (repeatable)")
	return cmd
}

func newSeriesRemoveCommand(ctx *commandContext) *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "remove NAME",
		Short: "Stop tracking a series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[0])

			series, err := ctx.loadSeries()
			if err != nil {
				return err
			}
			kept := series[:0]
			found := false
			for _, s := range series {
				if s.Name == name {
					found = true
					continue
				}
				kept = append(kept, s)
			}
			if !found {
				return fmt.Errorf("series %q is not tracked", name)
			}
			if err := config.SaveSeries(cfg.Paths.SeriesFile, kept); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped tracking %s\n", name)

			if purge {
				return purgeSeriesData(cmd, ctx, name)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cached data kept; use `shinkan series purge` to delete it")
			return nil
		},
	}

	cmd.Flags().BoolVar(&purge, "purge", false, "Also delete all cached data for the series")
	return cmd
}

func newSeriesPurgeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "purge NAME",
		Short: "Delete all cached data for a series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return purgeSeriesData(cmd, ctx, strings.TrimSpace(args[0]))
		},
	}
}

func purgeSeriesData(cmd *cobra.Command, ctx *commandContext, name string) error {
	store, err := ctx.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.PurgeSeries(cmd.Context(), name); err != nil {
		return fmt.Errorf("purge series data: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Purged cached data for %s\n", name)
	return nil
}
