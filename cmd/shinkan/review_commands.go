package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shinkan/internal/catalog"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Accept or reject discovered listings",
	}

	reviewCmd.AddCommand(newReviewSetCommand(ctx, "accept", catalog.StatusAccepted,
		"Mark a listing as a confirmed volume of its series"))
	reviewCmd.AddCommand(newReviewSetCommand(ctx, "reject", catalog.StatusRejected,
		"Mark a listing as noise so scans skip it permanently"))
	reviewCmd.AddCommand(newReviewShowCommand(ctx))

	return reviewCmd
}

func newReviewSetCommand(ctx *commandContext, use string, status catalog.ManualStatus, short string) *cobra.Command {
	var comment string

	cmd := &cobra.Command{
		Use:   use + " ASIN",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asin := strings.TrimSpace(args[0])
			if len(asin) != 10 {
				return fmt.Errorf("%q does not look like a catalog identifier", asin)
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.SetManualStatus(cmd.Context(), asin, status, comment); err != nil {
				return fmt.Errorf("record review: %w", err)
			}
			if status == catalog.StatusRejected {
				// The verification snapshot of a rejected listing must not
				// answer future scans.
				if err := store.CacheInvalidate(cmd.Context(), asin); err != nil {
					return fmt.Errorf("invalidate verification snapshot: %w", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s marked %s\n", asin, status)
			return nil
		},
	}

	cmd.Flags().StringVar(&comment, "comment", "", "Reason for the decision")
	return cmd
}

func newReviewShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show ASIN",
		Short: "Show the review status of a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asin := strings.TrimSpace(args[0])

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			status, err := store.ManualStatusFor(cmd.Context(), asin)
			if err != nil {
				return fmt.Errorf("load review status: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", asin, status)

			if volume, err := store.VolumeByASIN(cmd.Context(), asin); err == nil && volume != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s", volume.Title)
				if volume.Tome != nil {
					fmt.Fprintf(cmd.OutOrStdout(), " (tome %d)", *volume.Tome)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
}
