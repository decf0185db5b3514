package cli

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/matzehuels/neptune-utils/pkg/errors"
	"github.com/matzehuels/neptune-utils/pkg/loader"
)

// loadCommand creates the load command with bulk loader subcommands.
func (c *CLI) loadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Start and follow Neptune bulk loader jobs",
		Long: `Start and follow Neptune bulk loader jobs.

The loader reads files from S3 using an IAM role attached to the cluster.
Defaults for the role, format and parallelism come from the [loader]
section of the config file.`,
	}

	cmd.AddCommand(c.loadStartCommand())
	cmd.AddCommand(c.loadStatusCommand())
	cmd.AddCommand(c.loadWaitCommand())
	cmd.AddCommand(c.loadCancelCommand())
	cmd.AddCommand(c.loadListCommand())

	return cmd
}

// loadStartOpts holds the command-line flags for "load start".
type loadStartOpts struct {
	format       string
	roleARN      string
	mode         string
	parallelism  string
	failOnError  bool
	updateSingle bool
	queue        bool
	dependencies []string
	wait         bool
	tui          bool
}

// loadStartCommand creates the "load start" subcommand.
func (c *CLI) loadStartCommand() *cobra.Command {
	var opts loadStartOpts

	cmd := &cobra.Command{
		Use:     "start <s3-uri>",
		Short:   "Start a bulk load from S3",
		Example: `  neptune-utils load start s3://my-bucket/graph/ --role-arn arn:aws:iam::123456789012:role/NeptuneLoadFromS3 --wait`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := c.loadRequest(cmd, args[0], opts)
			return c.runLoadStart(cmd.Context(), req, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.format, "format", "", "data format: csv, opencypher, ntriples, nquads, rdfxml, turtle")
	f.StringVar(&opts.roleARN, "role-arn", "", "IAM role the cluster assumes to read S3")
	f.StringVar(&opts.mode, "mode", "", "load mode: NEW, RESUME or AUTO")
	f.StringVar(&opts.parallelism, "parallelism", "", "LOW, MEDIUM, HIGH or OVERSUBSCRIBE")
	f.BoolVar(&opts.failOnError, "fail-on-error", false, "stop the load on the first error")
	f.BoolVar(&opts.updateSingle, "update-single-cardinality", false, "replace values of single-cardinality properties")
	f.BoolVar(&opts.queue, "queue", false, "queue the request if another load is running")
	f.StringSliceVar(&opts.dependencies, "depends-on", nil, "load ids that must complete first")
	f.BoolVar(&opts.wait, "wait", false, "wait for the load to finish")
	f.BoolVar(&opts.tui, "tui", false, "follow progress in an interactive view (with --wait)")

	return cmd
}

// loadRequest builds the request from config defaults and the flags that
// were set.
func (c *CLI) loadRequest(cmd *cobra.Command, source string, opts loadStartOpts) loader.Request {
	cfg := c.config()
	req := loader.NewRequest(source, cfg.Neptune.Region, cfg.Loader)

	f := cmd.Flags()
	if f.Changed("format") {
		req.Format = opts.format
	}
	if f.Changed("role-arn") {
		req.IAMRoleARN = opts.roleARN
	}
	if f.Changed("mode") {
		req.Mode = opts.mode
	}
	if f.Changed("parallelism") {
		req.Parallelism = opts.parallelism
	}
	if f.Changed("fail-on-error") {
		req.FailOnError = opts.failOnError
	}
	req.UpdateSingleCardinalityProperties = opts.updateSingle
	req.QueueRequest = opts.queue
	req.Dependencies = opts.dependencies
	return req
}

func (c *CLI) runLoadStart(ctx context.Context, req loader.Request, opts loadStartOpts) error {
	if err := req.Validate(); err != nil {
		return err
	}
	client, err := c.loaderClient(ctx)
	if err != nil {
		return err
	}

	id, err := client.Start(ctx, req)
	if err != nil {
		return err
	}
	printSuccess("Started load %s", StyleValue.Render(id))
	printDetail("Source: %s", req.Source)

	if !opts.wait {
		printNextStep("Follow progress", fmt.Sprintf("%s load wait %s", appName, id))
		return nil
	}
	return c.waitForLoad(ctx, client, id, opts.tui)
}

// loadStatusOpts holds the command-line flags for "load status".
type loadStatusOpts struct {
	errors        bool
	page          int
	errorsPerPage int
	json          bool
}

// loadStatusCommand creates the "load status" subcommand.
func (c *CLI) loadStatusCommand() *cobra.Command {
	var opts loadStatusOpts

	cmd := &cobra.Command{
		Use:   "status <load-id>",
		Short: "Print the status of a load",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLoadStatus(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.errors, "errors", false, "include error details")
	cmd.Flags().IntVar(&opts.page, "page", 0, "error page to show")
	cmd.Flags().IntVar(&opts.errorsPerPage, "errors-per-page", 0, "errors per page")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the status as JSON")

	return cmd
}

func (c *CLI) runLoadStatus(ctx context.Context, id string, opts loadStatusOpts) error {
	client, err := c.loaderClient(ctx)
	if err != nil {
		return err
	}
	st, err := client.Status(ctx, id, loader.StatusOptions{
		Details:       true,
		Errors:        opts.errors,
		Page:          opts.page,
		ErrorsPerPage: opts.errorsPerPage,
	})
	if err != nil {
		return err
	}

	if opts.json {
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.Out, string(data))
		return err
	}
	printLoadStatus(id, st)
	return nil
}

// loadWaitCommand creates the "load wait" subcommand.
func (c *CLI) loadWaitCommand() *cobra.Command {
	var tui bool

	cmd := &cobra.Command{
		Use:   "wait <load-id>",
		Short: "Wait for a load to finish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := c.loaderClient(ctx)
			if err != nil {
				return err
			}
			return c.waitForLoad(ctx, client, args[0], tui)
		},
	}

	cmd.Flags().BoolVar(&tui, "tui", false, "follow progress in an interactive view")

	return cmd
}

// waitForLoad polls load id until it finishes, showing either a spinner or
// the interactive view.
func (c *CLI) waitForLoad(ctx context.Context, client *loader.Client, id string, tui bool) error {
	interval := c.config().Loader.PollInterval
	prog := newProgress(loggerFromContext(ctx))

	var (
		st  *loader.Status
		err error
	)
	if tui {
		st, err = runLoadTUI(ctx, client, id, interval)
	} else {
		spinner := newSpinnerWithContext(ctx, "Waiting for load "+id)
		spinner.Start()
		st, err = client.Wait(ctx, id, interval, func(s *loader.Status) {
			spinner.SetMessage(fmt.Sprintf("%s %s · %d records", id, s.Overall.Status, s.Overall.TotalRecords))
		})
		spinner.Stop()
	}

	if st != nil {
		printLoadStatus(id, st)
	}
	if err != nil {
		return err
	}
	prog.done("Load " + id + " completed")
	return nil
}

// loadCancelCommand creates the "load cancel" subcommand.
func (c *CLI) loadCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <load-id>",
		Short: "Cancel a running load",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := c.loaderClient(ctx)
			if err != nil {
				return err
			}
			if err := client.Cancel(ctx, args[0]); err != nil {
				return err
			}
			printSuccess("Cancelled load %s", args[0])
			return nil
		},
	}
}

// loadListCommand creates the "load list" subcommand.
func (c *CLI) loadListCommand() *cobra.Command {
	var (
		limit  int
		status bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent load ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := c.loaderClient(ctx)
			if err != nil {
				return err
			}
			ids, err := client.List(ctx, limit)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				printInfo("No loads found")
				return nil
			}
			for _, id := range ids {
				if !status {
					fmt.Fprintln(c.Out, id)
					continue
				}
				st, err := client.Status(ctx, id, loader.StatusOptions{})
				if err != nil {
					if errors.Is(err, errors.ErrCodeLoadNotFound) {
						continue
					}
					return err
				}
				fmt.Fprintf(c.Out, "%s  %s\n", id, statusStyle(st.Overall.Status).Render(st.Overall.Status))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of ids (1-100)")
	cmd.Flags().BoolVar(&status, "status", false, "show the status of each load")

	return cmd
}
