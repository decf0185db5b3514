package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/matzehuels/neptune-utils/pkg/gremlin"
)

// gremlinCommand creates the gremlin command for submitting scripts.
func (c *CLI) gremlinCommand() *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "gremlin <script|->",
		Short: "Submit a Gremlin script and print the results as JSON",
		Long: `Submit a Gremlin script and print the results as JSON.

Pass "-" to read the script from stdin.`,
		Example: `  neptune-utils gremlin "g.V().groupCount().by(label)"
  echo "g.E().count()" | neptune-utils gremlin -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script := args[0]
			if script == "-" {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return err
				}
				script = string(data)
			}
			return c.runGremlin(cmd.Context(), strings.TrimSpace(script), compact)
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "print one result per line instead of an indented array")

	return cmd
}

func (c *CLI) runGremlin(ctx context.Context, script string, compact bool) error {
	client, err := c.gremlinClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	prog := newProgress(loggerFromContext(ctx))
	results, err := client.Submit(ctx, script, nil)
	if err != nil {
		return err
	}
	prog.debug(fmt.Sprintf("Received %d results", len(results)))

	return writeResults(c.Out, results, compact)
}

// writeResults prints Gremlin results as JSON.
func writeResults(w io.Writer, results []any, compact bool) error {
	plain := make([]any, len(results))
	for i, r := range results {
		plain[i] = gremlin.Plain(r)
	}

	if compact {
		for _, r := range plain {
			data, err := json.Marshal(r)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w, string(data)); err != nil {
				return err
			}
		}
		return nil
	}

	data, err := json.MarshalIndent(plain, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
