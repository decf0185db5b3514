package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/neptune-utils/pkg/cache"
	"github.com/matzehuels/neptune-utils/pkg/endpoints"
	"github.com/matzehuels/neptune-utils/pkg/export"
	"github.com/matzehuels/neptune-utils/pkg/gremlin"
	"github.com/matzehuels/neptune-utils/pkg/metadata"
)

// exportOpts holds the command-line flags for the export commands.
type exportOpts struct {
	format      string        // csv or json
	output      string        // output directory
	tag         string        // export directory name below output
	labels      []string      // restrict to these labels
	concurrency int           // ranges exported at once
	sample      int64         // build metadata from a sample per label
	lastEventID bool          // record the stream position
	refresh     bool          // ignore cached metadata
	noCache     bool          // disable the metadata cache
	ttl         time.Duration // cached metadata lifetime (0 uses config)
}

// exportCommand creates the export command with its subcommands.
func (c *CLI) exportCommand() *cobra.Command {
	opts := exportOpts{
		format:      string(export.FormatCSV),
		output:      ".",
		concurrency: export.DefaultConcurrency,
	}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export property graph metadata, nodes and edges",
		Long: `Export property graph metadata, nodes and edges.

Metadata (the labels, property keys and their types) is built by scanning
the graph, or a sample of it, and is cached between runs. Nodes and edges
are written per label as Gremlin load format CSV or JSON lines.`,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.format, "format", "f", opts.format, "output format: csv or json")
	pf.StringVarP(&opts.output, "output", "o", opts.output, "output directory")
	pf.StringVar(&opts.tag, "tag", "", "export directory name (default a UTC timestamp)")
	pf.StringSliceVar(&opts.labels, "labels", nil, "export only these labels (comma-separated)")
	pf.IntVar(&opts.concurrency, "concurrency", opts.concurrency, "ranges exported at once")
	pf.Int64Var(&opts.sample, "sample", 0, "build metadata from the first N elements of each label")
	pf.BoolVar(&opts.lastEventID, "last-event-id", false, "save the stream position with the export")
	pf.BoolVar(&opts.refresh, "refresh", false, "rebuild metadata instead of using the cache")
	pf.BoolVar(&opts.noCache, "no-cache", false, "disable the metadata cache")
	pf.DurationVar(&opts.ttl, "cache-ttl", 0, "cached metadata lifetime (default from config)")

	cmd.AddCommand(c.exportMetadataCommand(&opts))
	for _, t := range export.Types() {
		cmd.AddCommand(c.exportTypeCommand(&opts, t.Name(), []export.Type{t}))
	}
	cmd.AddCommand(c.exportTypeCommand(&opts, "all", export.Types()))

	return cmd
}

// exportMetadataCommand creates the "export metadata" subcommand.
func (c *CLI) exportMetadataCommand(opts *exportOpts) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Build property graph metadata and print or save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExportMetadata(cmd.Context(), opts, file)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "write metadata to this file instead of stdout")

	return cmd
}

// exportTypeCommand creates an export subcommand for the given types.
func (c *CLI) exportTypeCommand(opts *exportOpts, name string, types []export.Type) *cobra.Command {
	short := "Export " + name
	if name == "all" {
		short = "Export nodes and edges"
	}
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExport(cmd.Context(), opts, types)
		},
	}
}

// specs builds the export specifications for types.
func (o *exportOpts) specs(types []export.Type) []export.Specification {
	filter := export.AllLabels
	if len(o.labels) > 0 {
		filter = export.SpecifiedLabels(o.labels...)
	}
	specs := make([]export.Specification, len(types))
	for i, t := range types {
		specs[i] = export.Specification{Type: t, Labels: filter}
	}
	return specs
}

// exportSession is a connected export runner.
type exportSession struct {
	runner *export.Runner
	eps    *endpoints.Endpoints
	client *gremlin.Client
	cache  cache.Cache
}

func (s *exportSession) Close() {
	s.client.Close()
	s.cache.Close()
}

// openExport connects to the cluster and returns a runner with the
// configured metadata cache.
func (c *CLI) openExport(ctx context.Context, opts *exportOpts) (*exportSession, error) {
	eps, err := c.endpoints(ctx)
	if err != nil {
		return nil, err
	}
	client, err := c.gremlinClient(ctx)
	if err != nil {
		return nil, err
	}
	ch := c.openCache(ctx, opts.noCache)

	ttl := opts.ttl
	if ttl <= 0 {
		ttl = c.config().Cache.TTL
	}
	runner := export.NewRunner(client, export.RunnerOptions{
		Cache:    ch,
		Keyer:    c.keyer(),
		TTL:      ttl,
		Endpoint: fmt.Sprintf("%s:%d", eps.Host(), eps.Port()),
		Logger:   loggerFromContext(ctx),
		Out:      c.Out,
	})
	return &exportSession{runner: runner, eps: eps, client: client, cache: ch}, nil
}

func (c *CLI) runExportMetadata(ctx context.Context, opts *exportOpts, file string) error {
	sess, err := c.openExport(ctx, opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	coll, err := sess.runner.Metadata(ctx, export.MetadataOptions{
		Specs:   opts.specs(export.Types()),
		Sample:  opts.sample,
		Refresh: opts.refresh,
	})
	if err != nil {
		return err
	}

	if file == "" {
		return coll.Write(c.Out)
	}
	if err := coll.Save(file); err != nil {
		return err
	}
	printSuccess("Saved metadata")
	printFile(file)
	printMetadataCounts(coll)
	return nil
}

func (c *CLI) runExport(ctx context.Context, opts *exportOpts, types []export.Type) error {
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	sess, err := c.openExport(ctx, opts)
	if err != nil {
		return err
	}
	defer sess.Close()

	var strategy export.LastEventIDStrategy = export.DoNotGetLastEventID{}
	if opts.lastEventID {
		strategy = export.NewGetLastEventID(sess.eps, endpoints.PropertyGraphStream, c.httpClient())
	}

	stats, err := sess.runner.Export(ctx, export.Options{
		Specs:       opts.specs(types),
		Format:      format,
		OutputDir:   opts.output,
		Tag:         opts.tag,
		Concurrency: opts.concurrency,
		Sample:      opts.sample,
		Refresh:     opts.refresh,
		LastEventID: strategy,
	})
	if err != nil {
		return err
	}

	printSuccess("Exported to %s (%s)", stats.Dirs.Root, stats.Duration.Round(time.Millisecond))
	for _, ts := range stats.Types {
		printCounts(fmt.Sprintf("%d %s", ts.Elements, ts.Type), fmt.Sprintf("%d files", len(ts.Files)))
		for _, f := range ts.Files {
			printFile(f)
		}
	}
	return nil
}

func printMetadataCounts(coll *metadata.Collection) {
	parts := make([]string, 0, 2)
	for _, t := range coll.Types() {
		parts = append(parts, fmt.Sprintf("%d %s labels", len(coll.PropertyMetadataFor(t).Labels()), t))
	}
	printCounts(parts...)
}
