package export

import (
	"context"
	stderrors "errors"
	"io"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/neptune-utils/pkg/cache"
	"github.com/matzehuels/neptune-utils/pkg/errors"
	"github.com/matzehuels/neptune-utils/pkg/metadata"
)

// DefaultConcurrency is the number of ranges exported at once.
const DefaultConcurrency = 4

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	// Cache holds scanned metadata between runs. Nil disables caching.
	Cache cache.Cache
	Keyer cache.Keyer
	// TTL of cached metadata. Zero keeps entries until refreshed.
	TTL time.Duration
	// Endpoint identifies the cluster in cache keys.
	Endpoint string
	Logger   *log.Logger
	// Out receives user-facing messages such as the last event id path.
	Out io.Writer
}

// Runner builds metadata and exports graph elements.
type Runner struct {
	q    Querier
	opts RunnerOptions
}

// NewRunner returns a runner reading from q.
func NewRunner(q Querier, opts RunnerOptions) *Runner {
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Runner{q: q, opts: opts}
}

// MetadataOptions selects how metadata is built.
type MetadataOptions struct {
	Specs []Specification
	// Sample scans only the first Sample elements of each label when
	// positive.
	Sample int64
	// Refresh ignores any cached metadata.
	Refresh bool
}

func (o MetadataOptions) key(k cache.Keyer, endpoint string) string {
	var opts cache.MetadataKeyOpts
	for _, s := range o.Specs {
		opts.Types = append(opts.Types, s.Type.Name())
		for _, l := range s.Labels.Labels() {
			opts.Labels = append(opts.Labels, s.Type.Name()+":"+l)
		}
	}
	opts.Sample = int(o.Sample)
	return k.MetadataKey(endpoint, opts)
}

// Metadata returns cached metadata for opts or scans the graph and caches
// the result. Cache failures are logged and otherwise ignored.
func (r *Runner) Metadata(ctx context.Context, opts MetadataOptions) (*metadata.Collection, error) {
	key := opts.key(r.opts.Keyer, r.opts.Endpoint)

	if !opts.Refresh {
		coll := metadata.NewCollection()
		err := cache.GetJSON(ctx, r.opts.Cache, key, coll)
		if err == nil {
			r.opts.Logger.Debug("Using cached metadata", "key", key)
			return coll, nil
		}
		if !stderrors.Is(err, cache.ErrCacheMiss) {
			r.opts.Logger.Warn("Metadata cache unavailable", "err", err)
		}
	}

	var cmd MetadataCommand = CreateFromGraphScan{Specs: opts.Specs, Client: r.q, Logger: r.opts.Logger}
	if opts.Sample > 0 {
		cmd = CreateFromSample{Specs: opts.Specs, Client: r.q, Size: opts.Sample, Logger: r.opts.Logger}
	}
	coll, err := cmd.Execute(ctx)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, r.opts.Cache, key, coll, r.opts.TTL); err != nil {
		r.opts.Logger.Warn("Could not cache metadata", "err", err)
	}
	return coll, nil
}

// Options configures an export.
type Options struct {
	Specs     []Specification
	Format    Format
	OutputDir string
	// Tag names the export directory below OutputDir. Empty uses a
	// timestamp.
	Tag         string
	Concurrency int
	Sample      int64
	Refresh     bool
	LastEventID LastEventIDStrategy
}

// TypeStats summarises the export of one element type.
type TypeStats struct {
	Type     string
	Elements int64
	Ranges   int
	Files    []string
}

// Stats summarises an export.
type Stats struct {
	Dirs     Directories
	Types    []TypeStats
	Metadata *metadata.Collection
	Duration time.Duration
}

// Export builds metadata, then writes every selected element below
// opts.OutputDir. Each type is split into ranges that run concurrently; the
// first failure cancels the rest.
func (r *Runner) Export(ctx context.Context, opts Options) (*Stats, error) {
	start := time.Now()
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Format == "" {
		opts.Format = FormatCSV
	}
	if opts.LastEventID == nil {
		opts.LastEventID = DoNotGetLastEventID{}
	}

	coll, err := r.Metadata(ctx, MetadataOptions{Specs: opts.Specs, Sample: opts.Sample, Refresh: opts.Refresh})
	if err != nil {
		return nil, err
	}
	dirs, err := CreateDirectories(opts.OutputDir, opts.Tag)
	if err != nil {
		return nil, err
	}

	type typeRun struct {
		spec   Specification
		sink   sink
		ranges []Range
		count  atomic.Int64
	}
	runs := make([]*typeRun, 0, len(opts.Specs))
	defer func() {
		for _, run := range runs {
			run.sink.Close()
		}
	}()

	for _, s := range opts.Specs {
		n, err := s.Type.GraphClient(r.q).Count(ctx, s.Labels)
		if err != nil {
			return nil, errors.Wrap(errors.GetCodeOr(err, errors.ErrCodeQueryFailed), err, "count %s", s.Description())
		}
		run := &typeRun{
			spec:   s,
			sink:   s.Type.newSink(dirs, opts.Format, coll.PropertyMetadataFor(s.Type.Name())),
			ranges: Partition(n, opts.Concurrency),
		}
		runs = append(runs, run)
		r.opts.Logger.Info("Exporting "+s.Description(), "count", n, "ranges", len(run.ranges))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, run := range runs {
		for _, rg := range run.ranges {
			g.Go(func() error {
				n, err := run.spec.Type.exportRange(gctx, rangeJob{q: r.q, sink: run.sink, r: rg, filter: run.spec.Labels})
				run.count.Add(n)
				if err != nil {
					return errors.Wrap(errors.GetCodeOr(err, errors.ErrCodeQueryFailed), err, "export %s %s", run.spec.Type.Name(), rg)
				}
				r.opts.Logger.Debug("Exported range", "type", run.spec.Type.Name(), "range", rg.String(), "elements", n)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &Stats{Dirs: dirs, Metadata: coll}
	for _, run := range runs {
		if err := run.sink.Close(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "close %s files", run.spec.Type.Name())
		}
		stats.Types = append(stats.Types, TypeStats{
			Type:     run.spec.Type.Name(),
			Elements: run.count.Load(),
			Ranges:   len(run.ranges),
			Files:    run.sink.Files(),
		})
	}
	runs = nil

	if err := metadataFile(coll, dirs); err != nil {
		return nil, err
	}
	if err := opts.LastEventID.SaveLastEventID(ctx, dirs); err != nil {
		return nil, errors.Wrap(errors.GetCodeOr(err, errors.ErrCodeNetwork), err, "last event id")
	}
	opts.LastEventID.WriteMessage(r.opts.Out)

	stats.Duration = time.Since(start)
	return stats, nil
}

// metadataFile saves the metadata used for the export next to the data.
func metadataFile(coll *metadata.Collection, dirs Directories) error {
	return coll.Save(filepath.Join(dirs.Root, metadata.FileName))
}
