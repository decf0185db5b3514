package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/neptune-utils/pkg/errors"
	"github.com/matzehuels/neptune-utils/pkg/export"
	"github.com/matzehuels/neptune-utils/pkg/render/schema"
)

// schemaOpts holds the command-line flags for the schema command.
type schemaOpts struct {
	output   string // output file; the extension picks the format
	format   string // svg, pdf, png or dot; overrides the extension
	detailed bool   // list properties and edge counts
	sample   int64
	refresh  bool
	noCache  bool
}

// schemaCommand creates the schema command, which draws the labels of the
// graph and the edges between them.
func (c *CLI) schemaCommand() *cobra.Command {
	var opts schemaOpts

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Draw a diagram of the graph's labels and edges",
		Long: `Draw a diagram of the graph's labels and edges.

Vertex labels become boxes and edge labels become arrows between them.
With --detailed the boxes list property keys and types and the arrows
carry edge counts. Without --output the DOT source is printed.`,
		Example: `  neptune-utils schema -o schema.svg --detailed
  neptune-utils schema --sample 1000 | dot -Tpng > schema.png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSchema(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (.svg, .pdf, .png or .dot)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format (default from the file extension)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show properties and edge counts")
	cmd.Flags().Int64Var(&opts.sample, "sample", 0, "build metadata from the first N elements of each label")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "rebuild metadata instead of using the cache")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the metadata cache")

	return cmd
}

func (c *CLI) runSchema(ctx context.Context, opts schemaOpts) error {
	format := diagramFormat(opts.output, opts.format)

	sess, err := c.openExport(ctx, &exportOpts{noCache: opts.noCache})
	if err != nil {
		return err
	}
	defer sess.Close()

	spinner := newSpinnerWithContext(ctx, "Reading graph metadata...")
	spinner.Start()
	coll, err := sess.runner.Metadata(ctx, export.MetadataOptions{
		Specs:   export.AllSpecifications(export.AllLabels),
		Sample:  opts.sample,
		Refresh: opts.refresh,
	})
	if err != nil {
		spinner.Stop()
		return err
	}

	spinner.SetMessage("Counting edges...")
	triples, err := schema.EdgeTriples(ctx, sess.client)
	spinner.Stop()
	if err != nil {
		return err
	}

	g := schema.FromMetadata(coll, triples)
	dot := schema.ToDOT(g, schema.Options{Detailed: opts.detailed})
	data, err := schema.Render(ctx, dot, format)
	if err != nil {
		return err
	}

	if opts.output == "" {
		_, err := c.Out.Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", opts.output)
	}
	printSuccess("Generated schema diagram")
	printFile(opts.output)
	printCounts(pluralize(len(g.Vertices), "vertex label", "vertex labels"), pluralize(len(g.Edges), "edge", "edges"))
	return nil
}

// diagramFormat picks the output format from an explicit format or the
// output file's extension. Standard output defaults to DOT.
func diagramFormat(output, format string) string {
	if format != "" {
		return strings.ToLower(format)
	}
	if ext := strings.TrimPrefix(filepath.Ext(output), "."); ext != "" {
		return strings.ToLower(ext)
	}
	if output == "" {
		return "dot"
	}
	return "svg"
}
