package gremlin

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/neptune-utils/pkg/endpoints"
	"github.com/matzehuels/neptune-utils/pkg/observability"
)

// Options configures a Client.
type Options struct {
	// PoolSize is the number of WebSocket connections. Defaults to 4.
	PoolSize int
	// EvaluationTimeout is sent with each request when set.
	EvaluationTimeout time.Duration
	ConnOptions
}

// Client is a pool of Gremlin connections. Connections are dialled on first
// use and requests are spread across them round-robin.
type Client struct {
	ep     *endpoints.Endpoint
	opts   Options
	logger *log.Logger

	mu      sync.Mutex
	conns   []*Conn
	dialing map[int]chan struct{}
	next    int
	gen     uint64
	closed  bool
}

// NewClient creates a client for ep. No connection is opened until the
// first request.
func NewClient(ep *endpoints.Endpoint, opts Options) *Client {
	if opts.PoolSize <= 0 {
		opts.PoolSize = 4
	}
	opts.ConnOptions.setDefaults()
	return &Client{
		ep:      ep,
		opts:    opts,
		logger:  opts.Logger,
		conns:   make([]*Conn, opts.PoolSize),
		dialing: make(map[int]chan struct{}),
	}
}

// Endpoint returns the Gremlin endpoint the client talks to.
func (c *Client) Endpoint() *endpoints.Endpoint { return c.ep }

// Connect dials every connection of the pool that is not open yet.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	n := len(c.conns)
	c.mu.Unlock()

	for i := range n {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return ErrClientClosed
		}
		conn := c.conns[i]
		_, busy := c.dialing[i]
		if busy || (conn != nil && !conn.Closed()) {
			c.mu.Unlock()
			continue
		}
		ch := c.startDial(i)
		c.mu.Unlock()
		if _, err := c.dial(ctx, i, ch); err != nil {
			return err
		}
	}
	return nil
}

// conn returns the next connection round-robin. A closed connection is
// skipped in favour of a live one and its slot redialled on the next visit;
// an empty slot is dialled outside the lock.
func (c *Client) conn(ctx context.Context) (*Conn, error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClientClosed
		}
		n := len(c.conns)
		start := c.next % n
		c.next = start + 1

		var wait chan struct{}
		for i := range n {
			j := (start + i) % n
			conn := c.conns[j]
			if conn != nil && !conn.Closed() {
				c.mu.Unlock()
				return conn, nil
			}
			if conn != nil {
				c.conns[j] = nil
				continue
			}
			if i > 0 {
				continue
			}
			if ch, busy := c.dialing[j]; busy {
				wait = ch
				continue
			}
			ch := c.startDial(j)
			c.mu.Unlock()
			return c.dial(ctx, j, ch)
		}

		if wait == nil {
			// no live or pending connection
			ch := c.startDial(start)
			c.mu.Unlock()
			return c.dial(ctx, start, ch)
		}
		c.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// startDial marks slot idx as being dialled. c.mu must be held.
func (c *Client) startDial(idx int) chan struct{} {
	ch := make(chan struct{})
	c.dialing[idx] = ch
	return ch
}

// dial opens a connection for slot idx and installs it unless another
// goroutine filled the slot first. A connection dialled across a reset is
// discarded and dialled again.
func (c *Client) dial(ctx context.Context, idx int, ch chan struct{}) (*Conn, error) {
	defer func() {
		c.mu.Lock()
		if c.dialing[idx] == ch {
			delete(c.dialing, idx)
		}
		c.mu.Unlock()
		close(ch)
	}()

	for {
		c.mu.Lock()
		gen := c.gen
		c.mu.Unlock()

		conn, err := Dial(ctx, c.ep, c.opts.ConnOptions)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return nil, ErrClientClosed
		}
		if c.gen != gen {
			c.mu.Unlock()
			_ = conn.Close()
			continue
		}
		if cur := c.conns[idx]; cur != nil && !cur.Closed() {
			c.mu.Unlock()
			_ = conn.Close()
			return cur, nil
		}
		c.conns[idx] = conn
		c.mu.Unlock()
		return conn, nil
	}
}

func (c *Client) args() map[string]any {
	if c.opts.EvaluationTimeout <= 0 {
		return nil
	}
	return map[string]any{"evaluationTimeout": c.opts.EvaluationTimeout.Milliseconds()}
}

// Submit evaluates a gremlin-groovy script. Neptune ignores bindings, so
// prefer SubmitTraversal for parameterised writes.
func (c *Client) Submit(ctx context.Context, script string, bindings map[string]any) ([]any, error) {
	return c.do(ctx, newEvalRequest(script, bindings, c.args()))
}

// SubmitTraversal sends a traversal as bytecode and returns all results.
func (c *Client) SubmitTraversal(ctx context.Context, t *Traversal) ([]any, error) {
	return c.do(ctx, newBytecodeRequest(t, c.args()))
}

// ToList is SubmitTraversal.
func (c *Client) ToList(ctx context.Context, t *Traversal) ([]any, error) {
	return c.SubmitTraversal(ctx, t)
}

// Iterate runs t for its side effects, appending none() so no results
// are returned.
func (c *Client) Iterate(ctx context.Context, t *Traversal) error {
	if !t.endsWithNone() {
		t = t.Clone().None()
	}
	_, err := c.SubmitTraversal(ctx, t)
	return err
}

// Next returns the first result of t, or ErrNoResults.
func (c *Client) Next(ctx context.Context, t *Traversal) (any, error) {
	results, err := c.SubmitTraversal(ctx, t)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}
	return results[0], nil
}

func (c *Client) do(ctx context.Context, req request) ([]any, error) {
	hooks := observability.Query()
	hooks.OnSubmit(ctx, req.Op, req.Processor)
	start := time.Now()

	conn, err := c.conn(ctx)
	if err != nil {
		hooks.OnComplete(ctx, req.Op, 0, time.Since(start), err)
		return nil, err
	}

	results, err := conn.submit(ctx, req)
	hooks.OnComplete(ctx, req.Op, len(results), time.Since(start), err)
	if err != nil {
		c.logger.Debug("gremlin request failed", "op", req.Op, "id", req.ID, "err", err)
		return nil, err
	}
	return results, nil
}

// Generation identifies the current pool. It changes on every reset.
func (c *Client) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Reset closes every connection and dials a fresh pool. It is used after a
// failover, when the cluster endpoint may resolve to a new writer.
func (c *Client) Reset(ctx context.Context) error {
	return c.reset(ctx, 0, false)
}

// ResetIfCurrent resets the pool only if it is still generation gen.
// Concurrent callers that saw the same failure then cause a single reset
// instead of closing each other's fresh connections.
func (c *Client) ResetIfCurrent(ctx context.Context, gen uint64) error {
	return c.reset(ctx, gen, true)
}

func (c *Client) reset(ctx context.Context, gen uint64, onlyIf bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if onlyIf && c.gen != gen {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	old := c.conns
	c.conns = make([]*Conn, len(old))
	c.next = 0
	c.mu.Unlock()

	for _, conn := range old {
		if conn != nil {
			_ = conn.Close()
		}
	}
	c.logger.Info("resetting gremlin connections", "endpoint", c.ep.String())
	return c.Connect(ctx)
}

// Close closes all connections. The client cannot be used afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conns := c.conns
	c.conns = nil
	c.mu.Unlock()

	for _, conn := range conns {
		if conn != nil {
			_ = conn.Close()
		}
	}
	return nil
}
