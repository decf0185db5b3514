package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"github.com/matzehuels/neptune-utils/pkg/cache"
	"github.com/matzehuels/neptune-utils/pkg/config"
	"github.com/matzehuels/neptune-utils/pkg/endpoints"
	"github.com/matzehuels/neptune-utils/pkg/errors"
	"github.com/matzehuels/neptune-utils/pkg/gremlin"
	"github.com/matzehuels/neptune-utils/pkg/httputil"
	"github.com/matzehuels/neptune-utils/pkg/loader"
	"github.com/matzehuels/neptune-utils/pkg/retry"
)

// loadConfig resolves the configuration: defaults, config file, environment
// and then any flags given on the command line.
func (c *CLI) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(c.flags.configPath)
	if err != nil {
		return err
	}
	c.flags.apply(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg
	c.Logger.Debug("Loaded config", "endpoint", cfg.Neptune.Endpoint, "port", cfg.Neptune.Port, "iam", cfg.Neptune.IAM)
	return nil
}

// apply overlays the flags that were set explicitly.
func (f globalFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("endpoint") {
		cfg.Neptune.Endpoint = f.endpoint
	}
	if fs.Changed("port") {
		cfg.Neptune.Port = f.port
	}
	if fs.Changed("region") {
		cfg.Neptune.Region = f.region
	}
	if fs.Changed("iam") {
		cfg.Neptune.IAM = f.iam
	}
}

// config returns the loaded configuration, or the defaults when a command
// runs without the root pre-run (as in tests).
func (c *CLI) config() *config.Config {
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	return c.cfg
}

// =============================================================================
// Client Factories
// =============================================================================

func (c *CLI) endpoints(ctx context.Context) (*endpoints.Endpoints, error) {
	cfg := c.config()
	if err := cfg.RequireEndpoint(); err != nil {
		return nil, err
	}
	return endpoints.FromConfig(ctx, cfg.Neptune)
}

// retryPolicy is the configured retry policy for Gremlin batches and HTTP
// calls.
func (c *CLI) retryPolicy() retry.Policy {
	g := c.config().Gremlin
	return retry.Constant(max(1, g.MaxRetries), g.RetryInterval)
}

func (c *CLI) httpClient() *httputil.Client {
	return httputil.NewClient(
		httputil.WithTimeout(30*time.Second),
		httputil.WithPolicy(retry.Exponential(max(1, c.config().Gremlin.MaxRetries), time.Second)),
	)
}

func (c *CLI) gremlinClient(ctx context.Context) (*gremlin.Client, error) {
	eps, err := c.endpoints(ctx)
	if err != nil {
		return nil, err
	}
	g := c.config().Gremlin
	return gremlin.NewClient(eps.Gremlin(), gremlin.Options{
		PoolSize: g.PoolSize,
		ConnOptions: gremlin.ConnOptions{
			MaxInFlight: g.MaxInFlight,
			ReadTimeout: g.ReadTimeout,
			Logger:      c.Logger,
		},
	}), nil
}

func (c *CLI) loaderClient(ctx context.Context) (*loader.Client, error) {
	eps, err := c.endpoints(ctx)
	if err != nil {
		return nil, err
	}
	return loader.NewClient(eps, c.httpClient()), nil
}

// limiter returns the configured batch rate limiter, or nil.
func (c *CLI) limiter() *rate.Limiter {
	r := c.config().Gremlin.RateLimit
	if r <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(r), 1)
}

// openCache opens the configured cache. With noCache, or when the backend
// cannot be reached, a null cache is returned.
func (c *CLI) openCache(ctx context.Context, noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}
	ch, err := cache.Open(ctx, c.config().Cache)
	if err != nil {
		c.Logger.Warn("Cache disabled", "backend", c.config().Cache.Backend, "err", errors.UserMessage(err))
		return cache.NewNullCache()
	}
	return ch
}

// keyer returns the cache keyer, scoped by the configured prefix.
func (c *CLI) keyer() cache.Keyer {
	if p := c.config().Cache.Prefix; p != "" {
		return cache.NewScopedKeyer(cache.NewDefaultKeyer(), p)
	}
	return cache.NewDefaultKeyer()
}
