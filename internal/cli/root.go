package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cmdpkg "github.com/berrythewa/deskbridge/internal/cli/cmd"
	"github.com/berrythewa/deskbridge/internal/config"
)

// Version information - set by main
var (
	Version   = "dev"
	BuildTime = "unknown"
	Commit    = "none"
)

// rootFlags are the flags that apply to all commands
type rootFlags struct {
	cfgFile  string
	logLevel string
	verbose  bool
	useJSON  bool
	noColor  bool
}

// NewRootCmd builds the command tree writing to out
func NewRootCmd(out io.Writer) *cobra.Command {
	flags := &rootFlags{}
	var logger *zap.Logger

	root := &cobra.Command{
		Use:   "deskbridge",
		Short: "deskbridge talks to the local project host",
		Long: `deskbridge sends commands to a local host process over a Unix socket
and renders the results.

The host owns a directory of project databases, answers GraphQL queries
against them, and journals every command it handles. Start it with
'deskbridge host run', then use 'deskbridge greet', 'deskbridge graphql'
or 'deskbridge invoke' to talk to it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configPath := flags.cfgFile
			if configPath == "" {
				paths, err := config.GetConfigPaths()
				if err != nil {
					return fmt.Errorf("failed to resolve config paths: %w", err)
				}
				configPath = paths.ConfigFile
			}
			_, statErr := os.Stat(configPath)
			cmdpkg.SetConfigExisted(statErr == nil)

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if flags.logLevel != "" {
				cfg.Log.Level = flags.logLevel
			}

			logger, err = cmdpkg.SetupLogger(cfg, flags.verbose)
			if err != nil {
				return err
			}

			logger.Debug("Configuration loaded",
				zap.String("config_file", cfg.SystemPaths.ConfigFile),
				zap.String("socket", cfg.IPC.SocketPath),
				zap.String("projects_dir", cfg.SystemPaths.ProjectsDir))

			// Share cfg and logger with cmd package
			cmdpkg.SetConfig(cfg)
			cmdpkg.SetZapLogger(logger)
			cmdpkg.SetOutput(out, flags.useJSON, flags.noColor)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.SetOut(out)
	root.PersistentFlags().StringVar(&flags.cfgFile, "config", "", "config file (default is the platform config dir)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&flags.useJSON, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "disable colored output")

	for _, command := range cmdpkg.GetCommands() {
		root.AddCommand(command)
	}
	return root
}

// Execute runs the command line and exits non-zero on failure.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// SetVersionInfo sets the version information used by the version command
func SetVersionInfo(version, buildTime, commit string) {
	Version = version
	BuildTime = buildTime
	Commit = commit
	cmdpkg.SetVersionInfo(version, buildTime, commit)
}
