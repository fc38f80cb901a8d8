package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shinkan/internal/export"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var toStdout bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a JSON snapshot of the tracked collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			series, err := ctx.loadSeries()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if toStdout {
				col, err := export.Build(cmd.Context(), store, series)
				if err != nil {
					return err
				}
				return writeJSON(cmd, col)
			}

			path, err := export.Write(cmd.Context(), cfg, store, series)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Collection exported to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Print the snapshot instead of writing a file")
	return cmd
}
