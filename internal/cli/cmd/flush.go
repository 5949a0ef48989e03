package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/berrythewa/deskbridge/pkg/format"
)

func newHistoryFlushCmd() *cobra.Command {
	var (
		keep  int
		quiet bool
	)

	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Drop all but the newest journalled invocations",
		Long: `Drop old invocations from the host's journal, keeping the newest ones.

The journal is shown before and after the flush unless --quiet is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv := newInvoker()
			ctx := cmd.Context()
			opts := outputOptions()

			if !quiet && !useJSON {
				before, err := inv.History(ctx, 0, "")
				if err != nil {
					return fmt.Errorf("failed to fetch history: %w", err)
				}
				fmt.Fprintln(stdout, format.BoldIf("Before flush:", opts.UseColors))
				fmt.Fprintln(stdout, format.FormatHistory(before, opts))
			}

			result, err := inv.FlushHistory(ctx, keep)
			if err != nil {
				return fmt.Errorf("failed to flush history: %w", err)
			}
			GetZapLogger().Info("Journal flushed",
				zap.Int("removed", result.Removed),
				zap.Int("kept", result.Kept))

			if useJSON {
				return printJSON(result)
			}

			if !quiet {
				after, err := inv.History(ctx, 0, "")
				if err != nil {
					return fmt.Errorf("failed to fetch history: %w", err)
				}
				fmt.Fprintln(stdout, format.BoldIf("After flush:", opts.UseColors))
				fmt.Fprintln(stdout, format.FormatHistory(after, opts))
			}
			fmt.Fprintf(stdout, "Removed %d invocations, kept %d\n", result.Removed, result.Kept)
			return nil
		},
	}

	cmd.Flags().IntVarP(&keep, "keep", "k", 10, "number of newest invocations to keep")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "don't display the journal before and after the flush")
	return cmd
}
