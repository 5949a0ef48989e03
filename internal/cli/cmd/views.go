package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/berrythewa/deskbridge/internal/display"
	"github.com/berrythewa/deskbridge/pkg/format"
)

// newGreetCmd renders the greeting view
func newGreetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "greet [name]",
		Short: "Ask the host for a greeting",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "World"
			if len(args) == 1 {
				name = args[0]
			}
			view := display.NewGreetingView(newInvoker(), name, GetZapLogger().Named("display"))
			return showState(cmd.Context(), view, format.RenderString)
		},
	}
}

// newGraphQLCmd renders the records view
func newGraphQLCmd() *cobra.Command {
	var (
		query string
		file  string
		vars  []string
	)

	cmd := &cobra.Command{
		Use:   "graphql [query]",
		Short: "Run a GraphQL query against the project store",
		Long: `Run a GraphQL query or mutation on the host and list the records it returns.

The document must select exactly one root field. A list result is shown
record by record; any other result is shown as a single record.

Examples:
  deskbridge graphql '{ projects }'
  deskbridge graphql 'mutation { createProject(project: "notes") }'
  deskbridge graphql -f query.graphql --var project=notes
  echo '{ entries(project: "notes") { id title } }' | deskbridge graphql -f -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case len(args) == 1 && query == "":
				query = args[0]
			case file != "":
				q, err := stdinOrFile(file)
				if err != nil {
					return err
				}
				query = q
			}
			if query == "" {
				return fmt.Errorf("no query given, pass it as an argument, --query or --file")
			}

			variables, err := parseArgs(vars)
			if err != nil {
				return err
			}

			view := display.NewRecordsView(newInvoker(), query, variables, GetZapLogger().Named("display"))
			return showState(cmd.Context(), view, format.RenderRecords)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "GraphQL document")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the document from a file (- for stdin)")
	cmd.Flags().StringArrayVar(&vars, "var", nil, "query variable as key=value (repeatable)")
	return cmd
}
