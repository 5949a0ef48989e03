package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/berrythewa/deskbridge/internal/daemon"
	"github.com/berrythewa/deskbridge/pkg/format"
)

// newHostCmd creates the host command
func newHostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Manage the deskbridge host",
		Long: `Manage the host process that answers commands over the local socket.

The host can be:
  • Run in the foreground or detached
  • Stopped gracefully or forcibly
  • Checked for status`,
	}

	cmd.AddCommand(newHostRunCmd())
	cmd.AddCommand(newHostStopCmd())
	cmd.AddCommand(newHostStatusCmd())
	return cmd
}

func newHostRunCmd() *cobra.Command {
	var detach bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the host",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetZapLogger()

			if detach {
				executable, err := os.Executable()
				if err != nil {
					return fmt.Errorf("failed to get executable path: %w", err)
				}
				pid, err := daemon.Detach(cfg, executable, os.Args[1:], logger)
				if err != nil {
					return fmt.Errorf("failed to detach: %w", err)
				}
				fmt.Fprintf(stdout, "Host started in background (PID: %d)\n", pid)
				return nil
			}

			logger.Info("Starting host in foreground", zap.String("socket", cfg.IPC.SocketPath))
			return daemon.Run(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().BoolVar(&detach, "detach", false, "detach from the terminal and run in the background")
	return cmd
}

func newHostStopCmd() *cobra.Command {
	var (
		force   bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the host",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetZapLogger()
			logger.Info("Stopping host", zap.Bool("force", force))

			pidFile := cfg.SystemPaths.PIDFile
			if err := daemon.Stop(pidFile, timeout); err != nil {
				if errors.Is(err, daemon.ErrNotRunning) || !force {
					return fmt.Errorf("failed to stop host: %w", err)
				}
				logger.Warn("Failed to stop host gracefully, forcing", zap.Error(err))
				if err := daemon.Kill(pidFile); err != nil {
					return fmt.Errorf("failed to force stop host: %w", err)
				}
			}

			fmt.Fprintln(stdout, "Host stopped")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "force stop if graceful shutdown fails")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "how long to wait for the host to exit")
	return cmd
}

func newHostStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show host status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status := daemon.GetStatus(cmd.Context(), cfg)

			if useJSON {
				return printJSON(status)
			}

			opts := outputOptions()
			color := format.Red
			if status.State == daemon.StateRunning {
				color = format.Green
			}
			fmt.Fprintf(stdout, "Status: %s\n", format.ColorizeIf(status.State, color, opts.UseColors))
			fmt.Fprintf(stdout, "Socket: %s\n", status.Socket)
			if status.PID > 0 {
				fmt.Fprintf(stdout, "PID:    %d\n", status.PID)
			}
			if status.State == daemon.StateRunning {
				fmt.Fprintf(stdout, "Ping:   %s\n", format.FormatDuration(status.Latency))
			}
			return nil
		},
	}
}
