package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/berrythewa/deskbridge/internal/command"
	"github.com/berrythewa/deskbridge/internal/display"
	"github.com/berrythewa/deskbridge/pkg/format"
)

// stateOutput is the --json rendering of a Display State
type stateOutput struct {
	View   string      `json:"view"`
	Phase  string      `json:"phase"`
	Value  interface{} `json:"value"`
	Reason string      `json:"reason,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// showState activates b, waits for its result and prints it. A failed state
// is printed like any other and then reported as the command's error.
func showState[T any](ctx context.Context, b *display.Binding[T], render func(T, format.Options) string) error {
	state, err := display.Wait(ctx, b.Activate(ctx))
	if err != nil {
		return err
	}

	if useJSON {
		out := stateOutput{
			View:   b.Name(),
			Phase:  state.Phase.String(),
			Value:  state.Value,
			Reason: state.Reason,
		}
		if state.Err != nil {
			out.Error = state.Err.Error()
		}
		if err := printJSON(out); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(stdout, format.FormatState(b.Name(), state, render, outputOptions()))
	}

	if state.Phase == display.Failed {
		return fmt.Errorf("%s failed: %s", b.Name(), state.Reason)
	}
	return nil
}

func renderObject(value json.RawMessage, opts format.Options) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, value, "", "  "); err != nil {
		return string(value)
	}
	return format.TruncateLines(buf.String(), opts.MaxLines)
}

// newInvokeCmd creates the generic invoke command
func newInvokeCmd() *cobra.Command {
	var (
		pairs []string
		list  bool
	)

	cmd := &cobra.Command{
		Use:   "invoke <command>",
		Short: "Invoke any host command by name",
		Long: `Invoke a host command by name and render its result.

Arguments are passed as key=value pairs. Values that parse as JSON keep
their type (numbers, booleans, objects); anything else is sent as a string.

Examples:
  deskbridge invoke greet --arg name=World
  deskbridge invoke graphql --arg 'query={ projects }'
  deskbridge invoke history --arg limit=5
  deskbridge invoke --list`,
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return nil
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return printCatalog()
			}

			name := command.Name(args[0])
			spec, ok := command.Lookup(name)
			if !ok {
				return fmt.Errorf("unknown command %q, see 'deskbridge invoke --list'", args[0])
			}
			cmdArgs, err := parseArgs(pairs)
			if err != nil {
				return err
			}

			inv := newInvoker()
			logger := GetZapLogger().Named("display")
			ctx := cmd.Context()

			switch spec.Shape {
			case command.ShapeString:
				b := display.NewBinding(string(name), func(ctx context.Context) (string, error) {
					data, err := inv.Invoke(ctx, name, cmdArgs)
					if err != nil {
						return "", err
					}
					return command.DecodeString(data)
				}, "", logger)
				return showState(ctx, b, format.RenderString)
			case command.ShapeSequence:
				b := display.NewBinding(string(name), func(ctx context.Context) ([]command.Record, error) {
					data, err := inv.Invoke(ctx, name, cmdArgs)
					if err != nil {
						return nil, err
					}
					return command.DecodeSequence(data)
				}, []command.Record{}, logger)
				return showState(ctx, b, format.RenderRecords)
			default:
				b := display.NewBinding(string(name), func(ctx context.Context) (json.RawMessage, error) {
					return inv.Invoke(ctx, name, cmdArgs)
				}, json.RawMessage(`{}`), logger)
				return showState(ctx, b, renderObject)
			}
		},
	}

	cmd.Flags().StringArrayVarP(&pairs, "arg", "a", nil, "command argument as key=value (repeatable)")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "list the commands the host answers")
	return cmd
}

func printCatalog() error {
	specs := command.Catalog()
	if useJSON {
		type entry struct {
			Name     string   `json:"name"`
			Args     []string `json:"args,omitempty"`
			Optional []string `json:"optional,omitempty"`
			Shape    string   `json:"shape"`
			Summary  string   `json:"summary"`
		}
		out := make([]entry, 0, len(specs))
		for _, s := range specs {
			out = append(out, entry{string(s.Name), s.Args, s.Optional, s.Shape.String(), s.Summary})
		}
		return printJSON(out)
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COMMAND\tRESULT\tARGS\tSUMMARY")
	for _, s := range specs {
		args := ""
		for _, a := range s.Args {
			args += a + " "
		}
		for _, a := range s.Optional {
			args += "[" + a + "] "
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Name, s.Shape, args, s.Summary)
	}
	return w.Flush()
}

// stdinOrFile reads a query from path, "-" meaning stdin
func stdinOrFile(path string) (string, error) {
	if path == "-" {
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(os.Stdin); err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return buf.String(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read query file: %w", err)
	}
	return string(data), nil
}
