package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/matzehuels/neptune-utils/internal/server"
	"github.com/matzehuels/neptune-utils/pkg/cache"
	"github.com/matzehuels/neptune-utils/pkg/errors"
)

// clusterStatus is the subset of the /status document that is printed.
type clusterStatus struct {
	Status          string `json:"status"`
	StartTime       string `json:"startTime"`
	DBEngineVersion string `json:"dbEngineVersion"`
	Role            string `json:"role"`
	Gremlin         struct {
		Version string `json:"version"`
	} `json:"gremlin"`
	OpenCypher struct {
		Version string `json:"version"`
	} `json:"opencypher"`
	LabMode map[string]string `json:"labMode"`
}

// statusOpts holds the command-line flags for the status command.
type statusOpts struct {
	json   bool          // print the raw status document
	maxAge time.Duration // accept a cached status this old
}

// statusCommand creates the status command.
func (c *CLI) statusCommand() *cobra.Command {
	var opts statusOpts

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the cluster status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStatus(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.json, "json", false, "print the raw status document")
	cmd.Flags().DurationVar(&opts.maxAge, "max-age", 0, "reuse a cached status up to this age (0 always fetches)")

	return cmd
}

func (c *CLI) runStatus(ctx context.Context, opts statusOpts) error {
	eps, err := c.endpoints(ctx)
	if err != nil {
		return err
	}

	ch := c.openCache(ctx, opts.maxAge <= 0)
	defer ch.Close()
	source := &cachedStatus{
		source: server.NewNeptuneStatus(eps, c.httpClient()),
		cache:  ch,
		key:    c.keyer().StatusKey(eps.Host()),
		ttl:    opts.maxAge,
	}

	raw, err := source.Status(ctx)
	if err != nil {
		return err
	}
	if opts.json {
		_, err := fmt.Fprintln(c.Out, string(raw))
		return err
	}

	var st clusterStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode status")
	}

	printKeyValue("Endpoint", fmt.Sprintf("%s:%d", eps.Host(), eps.Port()))
	printKeyValue("Status", st.Status)
	printKeyValue("Role", st.Role)
	printKeyValue("Engine", st.DBEngineVersion)
	if st.Gremlin.Version != "" {
		printKeyValue("Gremlin", st.Gremlin.Version)
	}
	if st.OpenCypher.Version != "" {
		printKeyValue("openCypher", st.OpenCypher.Version)
	}
	if st.StartTime != "" {
		printKeyValue("Started", st.StartTime)
	}

	res, err := eps.Resolve(ctx, nil)
	if err != nil {
		loggerFromContext(ctx).Debug("Could not resolve endpoint", "err", err)
		return nil
	}
	if res.Instance != "" {
		printKeyValue("Instance", res.Instance)
	}
	printKeyValue("Addresses", strings.Join(res.Addrs, ", "))
	return nil
}

// cachedStatus serves the status document from the cache while it is
// younger than ttl.
type cachedStatus struct {
	source server.StatusSource
	cache  cache.Cache
	key    string
	ttl    time.Duration
}

func (s *cachedStatus) Status(ctx context.Context) ([]byte, error) {
	if data, ok, err := s.cache.Get(ctx, s.key); err == nil && ok {
		return data, nil
	}
	data, err := s.source.Status(ctx)
	if err != nil {
		return nil, err
	}
	if s.ttl > 0 {
		if err := s.cache.Set(ctx, s.key, data, s.ttl); err != nil {
			loggerFromContext(ctx).Debug("Could not cache status", "err", err)
		}
	}
	return data, nil
}
