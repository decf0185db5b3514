// Package batch writes vertices and edges to Neptune in batches of chained
// Gremlin traversals.
//
// Each batch is one request. Batches that fail with a transient Neptune
// error (concurrent modification, throttling, a dropped connection or a
// read-only writer after failover) are retried with a constant backoff;
// when the error points at the connection itself the client is reset
// first so that the retry reaches the new writer. Batches that fail on the
// same pool generation share one reset.
package batch

import (
	"context"
	stderrors "errors"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/matzehuels/neptune-utils/pkg/csvload"
	"github.com/matzehuels/neptune-utils/pkg/errors"
	"github.com/matzehuels/neptune-utils/pkg/gremlin"
	"github.com/matzehuels/neptune-utils/pkg/observability"
	"github.com/matzehuels/neptune-utils/pkg/retry"
)

// Defaults applied by NewWriter.
const (
	DefaultBatchSize     = 100
	DefaultRetries       = 5
	DefaultRetryInterval = 2 * time.Second
)

// Submitter sends traversals and can reconnect. *gremlin.Client implements it.
type Submitter interface {
	SubmitTraversal(ctx context.Context, t *gremlin.Traversal) ([]any, error)
	// Generation identifies the current connection pool.
	Generation() uint64
	// ResetIfCurrent reconnects unless the pool has moved past gen.
	ResetIfCurrent(ctx context.Context, gen uint64) error
}

var _ Submitter = (*gremlin.Client)(nil)

// Mode selects how records are written.
type Mode string

const (
	// ModeAdd creates elements and fails if they exist.
	ModeAdd Mode = "add"
	// ModeUpsert creates missing elements and updates existing ones.
	ModeUpsert Mode = "upsert"
)

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case ModeAdd, ModeUpsert:
		return m, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown write mode %q (want add or upsert)", s)
}

// Options configures a Writer.
type Options struct {
	// BatchSize is the number of records per traversal.
	BatchSize int
	// Policy retries batches that fail with a retryable error. Defaults to
	// 5 attempts 2 seconds apart.
	Policy retry.Policy
	// Limiter, when set, bounds the rate at which batches are sent.
	Limiter *rate.Limiter
	// Concurrency is the number of batches in flight. Defaults to 1.
	Concurrency int
	Logger      *log.Logger
}

// Stats summarises a write.
type Stats struct {
	Batches int
	Records int
	Retries int
}

// Writer writes records through a Submitter.
type Writer struct {
	client Submitter
	opts   Options
	logger *log.Logger
}

// NewWriter creates a Writer.
func NewWriter(client Submitter, opts Options) *Writer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Policy.Attempts <= 0 {
		opts.Policy = retry.Constant(DefaultRetries, DefaultRetryInterval)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Writer{client: client, opts: opts, logger: opts.Logger}
}

// AddVertices creates one vertex per record.
func (w *Writer) AddVertices(ctx context.Context, records []*csvload.Record) (Stats, error) {
	return w.write(ctx, sliceSource(records, w.opts.BatchSize), addVertex)
}

// UpsertVertices creates missing vertices and sets the properties of all.
func (w *Writer) UpsertVertices(ctx context.Context, records []*csvload.Record) (Stats, error) {
	return w.write(ctx, sliceSource(records, w.opts.BatchSize), upsertVertex)
}

// AddEdges creates one edge per record.
func (w *Writer) AddEdges(ctx context.Context, records []*csvload.Record) (Stats, error) {
	return w.write(ctx, sliceSource(records, w.opts.BatchSize), addEdge)
}

// UpsertEdges creates missing edges and sets the properties of all.
func (w *Writer) UpsertEdges(ctx context.Context, records []*csvload.Record) (Stats, error) {
	return w.write(ctx, sliceSource(records, w.opts.BatchSize), upsertEdge)
}

// FromCSV streams a bulk load file through the writer. The file's kind
// selects vertex or edge writes; prefixes, when set, are applied to the id
// columns of each record first.
func (w *Writer) FromCSV(ctx context.Context, r *csvload.Reader, mode Mode, prefixes csvload.Prefixes) (Stats, error) {
	var build stepFunc
	switch {
	case r.Kind() == csvload.Vertices && mode == ModeAdd:
		build = addVertex
	case r.Kind() == csvload.Vertices && mode == ModeUpsert:
		build = upsertVertex
	case r.Kind() == csvload.Edges && mode == ModeAdd:
		build = addEdge
	case r.Kind() == csvload.Edges && mode == ModeUpsert:
		build = upsertEdge
	default:
		return Stats{}, errors.New(errors.ErrCodeInvalidInput, "unknown write mode %q", mode)
	}
	return w.write(ctx, readerSource(r, w.opts.BatchSize, prefixes), build)
}

// source yields the next batch of records; an empty batch ends the write.
type source func() ([]*csvload.Record, error)

func sliceSource(records []*csvload.Record, size int) source {
	return func() ([]*csvload.Record, error) {
		n := min(size, len(records))
		chunk := records[:n]
		records = records[n:]
		return chunk, nil
	}
}

func readerSource(r *csvload.Reader, size int, prefixes csvload.Prefixes) source {
	return func() ([]*csvload.Record, error) {
		chunk := make([]*csvload.Record, 0, size)
		for len(chunk) < size {
			rec, err := r.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
			if len(prefixes) > 0 {
				csvload.PrefixColumns(rec, prefixes)
			}
			chunk = append(chunk, rec)
		}
		return chunk, nil
	}
}

type counters struct {
	batches atomic.Int64
	records atomic.Int64
	retries atomic.Int64
}

func (c *counters) stats() Stats {
	return Stats{
		Batches: int(c.batches.Load()),
		Records: int(c.records.Load()),
		Retries: int(c.retries.Load()),
	}
}

func (w *Writer) write(ctx context.Context, next source, build stepFunc) (Stats, error) {
	var c counters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Concurrency)

	for n := 1; ; n++ {
		if gctx.Err() != nil {
			break
		}
		records, err := next()
		if err != nil {
			g.Go(func() error { return err })
			break
		}
		if len(records) == 0 {
			break
		}

		t, err := buildBatch(records, build)
		if err != nil {
			g.Go(func() error { return err })
			break
		}
		if w.opts.Limiter != nil {
			if err := w.opts.Limiter.Wait(gctx); err != nil {
				g.Go(func() error { return err })
				break
			}
		}

		g.Go(func() error {
			if err := w.submit(gctx, n, t, &c); err != nil {
				if gctx.Err() != nil && stderrors.Is(err, gctx.Err()) {
					return err
				}
				return errors.Wrap(errors.GetCodeOr(err, errors.ErrCodeQueryFailed), err, "batch %d (%s)", n, lineRange(records))
			}
			c.batches.Add(1)
			c.records.Add(int64(len(records)))
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return c.stats(), err
}

func (w *Writer) submit(ctx context.Context, n int, t *gremlin.Traversal, c *counters) error {
	attempt := 0
	err := retry.DoNotify(ctx, w.opts.Policy, func() error {
		attempt++
		gen := w.client.Generation()
		_, err := w.client.SubmitTraversal(ctx, t)
		if err == nil {
			return nil
		}
		if !gremlin.IsRetryable(err) {
			return err
		}
		if gremlin.IsConnectionIssue(err) {
			if rerr := w.client.ResetIfCurrent(ctx, gen); rerr != nil {
				w.logger.Warn("reconnect failed", "batch", n, "err", rerr)
			}
		}
		return retry.Retryable(err)
	}, func(err error, next time.Duration) {
		c.retries.Add(1)
		observability.Query().OnRetry(ctx, gremlin.OpBytecode, attempt, err)
		w.logger.Warn("retrying batch", "batch", n, "attempt", attempt, "in", next, "err", err)
	})

	var re *retry.RetryableError
	if stderrors.As(err, &re) {
		return re.Err
	}
	return err
}

func lineRange(records []*csvload.Record) string {
	first, last := records[0].Line, records[len(records)-1].Line
	if first == 0 {
		return "records " + strconv.Itoa(len(records))
	}
	return "lines " + strconv.Itoa(first) + "-" + strconv.Itoa(last)
}
