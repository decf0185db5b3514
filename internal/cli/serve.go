package cli

import (
	"context"
	stderrors "errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/neptune-utils/internal/server"
	"github.com/matzehuels/neptune-utils/pkg/observability/prom"
)

// serveCommand creates the serve command, which exposes Gremlin, the bulk
// loader and Prometheus metrics over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve Gremlin, loader and metrics endpoints over HTTP",
		Long: `Serve Gremlin, loader and metrics endpoints over HTTP.

Routes:
  GET    /healthz       liveness
  GET    /metrics       Prometheus metrics
  GET    /status        cluster status
  POST   /gremlin       {"gremlin": "...", "bindings": {...}}
  POST   /loader        start a bulk load
  GET    /loader/{id}   load status
  DELETE /loader/{id}   cancel a load`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = c.config().Server.Addr
			}
			return c.runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom.New(reg).Install()

	eps, err := c.endpoints(ctx)
	if err != nil {
		return err
	}
	gc, err := c.gremlinClient(ctx)
	if err != nil {
		return err
	}
	defer gc.Close()
	lc, err := c.loaderClient(ctx)
	if err != nil {
		return err
	}

	srv := server.New(server.Options{
		Gremlin:  gc,
		Loader:   lc,
		Status:   server.NewNeptuneStatus(eps, c.httpClient()),
		Gatherer: reg,
		Logger:   loggerFromContext(ctx),
		Region:   c.config().Neptune.Region,
	})

	printInfo("Serving %s on %s", eps.Host(), addr)
	err = srv.ListenAndServe(ctx, addr)
	if stderrors.Is(err, context.Canceled) {
		printSuccess("Server stopped")
		return nil
	}
	return err
}
