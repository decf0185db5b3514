package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/neptune-utils/pkg/batch"
	"github.com/matzehuels/neptune-utils/pkg/csvload"
	"github.com/matzehuels/neptune-utils/pkg/errors"
)

// importOpts holds the command-line flags for the import command.
type importOpts struct {
	mode        string   // add or upsert
	prefixes    []string // column=prefix pairs applied to id columns
	batchSize   int      // records per traversal (0 uses the config)
	concurrency int      // batches in flight
}

// importCommand creates the import command, which writes bulk load CSV
// files through Gremlin instead of the loader.
func (c *CLI) importCommand() *cobra.Command {
	opts := importOpts{mode: string(batch.ModeAdd), concurrency: 1}

	cmd := &cobra.Command{
		Use:   "import <file.csv>...",
		Short: "Write Gremlin load format CSV files through Gremlin",
		Long: `Write Gremlin load format CSV files through Gremlin in batches.

Files with a ~from and ~to column are written as edges, others as vertices.
Import vertex files before the edge files that reference them. Batches that
fail with a concurrent modification are retried.`,
		Example: `  neptune-utils import people.csv knows.csv --mode upsert
  neptune-utils import people.csv --prefix ~id=person`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := batch.ParseMode(opts.mode)
			if err != nil {
				return err
			}
			prefixes, err := csvload.ParsePrefixes(opts.prefixes)
			if err != nil {
				return err
			}
			return c.runImport(cmd.Context(), args, mode, prefixes, opts)
		},
	}

	cmd.Flags().StringVar(&opts.mode, "mode", opts.mode, "write mode: add or upsert")
	cmd.Flags().StringSliceVar(&opts.prefixes, "prefix", nil, "prefix id columns, e.g. ~id=person (repeatable)")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "records per batch (default from config)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", opts.concurrency, "batches in flight")

	return cmd
}

func (c *CLI) runImport(ctx context.Context, files []string, mode batch.Mode, prefixes csvload.Prefixes, opts importOpts) error {
	logger := loggerFromContext(ctx)

	client, err := c.gremlinClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	batchSize := opts.batchSize
	if batchSize <= 0 {
		batchSize = c.config().Gremlin.BatchSize
	}
	w := batch.NewWriter(client, batch.Options{
		BatchSize:   batchSize,
		Policy:      c.retryPolicy(),
		Limiter:     c.limiter(),
		Concurrency: opts.concurrency,
		Logger:      logger,
	})

	var total batch.Stats
	for _, path := range files {
		prog := newProgress(logger)
		stats, err := importFile(ctx, w, path, mode, prefixes)
		if err != nil {
			return err
		}
		prog.done(fmt.Sprintf("Imported %s", path))
		printCounts(fmt.Sprintf("%d records", stats.Records), pluralize(stats.Batches, "batch", "batches"))
		if stats.Retries > 0 {
			printWarning("%s after concurrent modifications", pluralize(stats.Retries, "retry", "retries"))
		}
		total.Records += stats.Records
		total.Batches += stats.Batches
		total.Retries += stats.Retries
	}

	printSuccess("Imported %d records from %d files", total.Records, len(files))
	return nil
}

func importFile(ctx context.Context, w *batch.Writer, path string, mode batch.Mode, prefixes csvload.Prefixes) (batch.Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return batch.Stats{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	defer f.Close()

	r, err := csvload.NewReader(f)
	if err != nil {
		return batch.Stats{}, errors.Wrap(errors.GetCodeOr(err, errors.ErrCodeInvalidCSV), err, "%s", path)
	}
	stats, err := w.FromCSV(ctx, r, mode, prefixes)
	if err != nil {
		return stats, errors.Wrap(errors.GetCodeOr(err, errors.ErrCodeQueryFailed), err, "%s", path)
	}
	return stats, nil
}
