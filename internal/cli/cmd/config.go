package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/berrythewa/deskbridge/internal/config"
)

// newConfigCmd creates the config command
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage deskbridge configuration",
		Long: `Manage deskbridge configuration:
  • Initialize configuration for first-time setup
  • Show the effective configuration
  • Print the active config file path
  • Validate the configuration`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write a default configuration file and create the data directories.

The file is written to the path given with --config, or to the platform
config directory otherwise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetZapLogger()
			configPath := cfg.SystemPaths.ConfigFile

			// Load writes the file when it is missing, so compare against the
			// state before this command ran
			if existedBefore && !force {
				return fmt.Errorf("configuration already exists at %s\nUse --force to overwrite or 'deskbridge config show' to view it", configPath)
			}

			fresh := config.DefaultConfig()
			fresh.SystemPaths.ConfigFile = configPath
			logger.Info("Initializing configuration", zap.String("config_path", configPath))

			if err := fresh.Save(configPath); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}
			if err := fresh.SystemPaths.EnsureDirs(); err != nil {
				return err
			}

			fmt.Fprintf(stdout, "✓ Configuration initialized at: %s\n", configPath)
			fmt.Fprintf(stdout, "✓ Data directory: %s\n", fresh.SystemPaths.DataDir)
			fmt.Fprintf(stdout, "✓ Projects directory: %s\n", fresh.SystemPaths.ProjectsDir)
			fmt.Fprintln(stdout, "\nTo start the host, run: deskbridge host run")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "force overwrite existing configuration")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var outFormat string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long:  `Show the configuration after defaults and environment overrides are applied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if useJSON {
				outFormat = "json"
			}
			switch outFormat {
			case "json":
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			case "yaml":
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return fmt.Errorf("failed to marshal config: %w", err)
				}
				fmt.Fprint(stdout, string(data))
				return nil
			default:
				return fmt.Errorf("unsupported format: %s", outFormat)
			}
		},
	}

	cmd.Flags().StringVarP(&outFormat, "format", "f", "yaml", "output format (yaml or json)")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the active config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(stdout, cfg.SystemPaths.ConfigFile)
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(cfg.SystemPaths.ConfigFile); err != nil {
				return fmt.Errorf("failed to stat config file: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			fmt.Fprintf(stdout, "✓ Configuration is valid: %s\n", cfg.SystemPaths.ConfigFile)
			return nil
		},
	}
}
