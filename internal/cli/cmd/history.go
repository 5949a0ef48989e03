package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/berrythewa/deskbridge/pkg/format"
)

// newHistoryCmd creates the history command with all subcommands
func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the host's invocation journal",
		Long: `Inspect the journal of commands the host has handled:
  • List recent invocations
  • Show journal statistics
  • Flush old invocations`,
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryStatsCmd())
	cmd.AddCommand(newHistoryFlushCmd())
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var (
		limit       int
		commandName string
		compact     bool
		maxWidth    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journalled invocations, newest first",
		Long: `List journalled invocations, newest first.

Examples:
  deskbridge history list                  # Show last 10 invocations
  deskbridge history list -n 50            # Show last 50 invocations
  deskbridge history list --command greet  # Only greet invocations`,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := newInvoker().History(cmd.Context(), limit, commandName)
			if err != nil {
				return fmt.Errorf("failed to fetch history: %w", err)
			}
			if useJSON {
				return printJSON(records)
			}

			opts := outputOptions()
			opts.Compact = compact
			if maxWidth > 0 {
				opts.MaxWidth = maxWidth
			}
			fmt.Fprintln(stdout, format.FormatHistory(records, opts))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of invocations to show (0 for all)")
	cmd.Flags().StringVarP(&commandName, "command", "c", "", "only show invocations of this command")
	cmd.Flags().BoolVar(&compact, "compact", false, "omit arguments")
	cmd.Flags().IntVar(&maxWidth, "max-width", 0, "truncate arguments and errors to this width")
	return cmd
}

func newHistoryStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarise the invocation journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := newInvoker().History(cmd.Context(), 0, "")
			if err != nil {
				return fmt.Errorf("failed to fetch history: %w", err)
			}
			fmt.Fprintln(stdout, format.FormatHistoryStats(records, outputOptions()))
			return nil
		},
	}
}
