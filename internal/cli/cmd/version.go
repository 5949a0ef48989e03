package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version information - accessed via cli package
var (
	version   = "dev"
	buildTime = "unknown"
	commit    = "none"
)

// SetVersionInfo allows setting version info from outside
func SetVersionInfo(v, bt, c string) {
	version = v
	buildTime = bt
	commit = c
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if useJSON {
				return printJSON(map[string]string{
					"version":    version,
					"build_time": buildTime,
					"commit":     commit,
					"go":         runtime.Version(),
				})
			}
			fmt.Fprintf(stdout, "deskbridge\n")
			fmt.Fprintf(stdout, "Version:    %s\n", version)
			fmt.Fprintf(stdout, "Build Time: %s\n", buildTime)
			fmt.Fprintf(stdout, "Commit:     %s\n", commit)
			fmt.Fprintf(stdout, "Go:         %s\n", runtime.Version())
			return nil
		},
	}
}
