package gremlin

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/neptune-utils/pkg/endpoints"
	"github.com/matzehuels/neptune-utils/pkg/errors"
)

const (
	defaultHandshakeTimeout = 15 * time.Second
	defaultWriteTimeout     = 10 * time.Second
	defaultPingInterval     = 30 * time.Second
	defaultMaxMessageSize   = 64 << 20
)

// ConnOptions tunes a single connection.
type ConnOptions struct {
	// MaxInFlight bounds concurrent requests on the connection.
	MaxInFlight int
	// ReadTimeout bounds the silence between frames of a response: it is
	// re-armed by every partial frame, so a long stream is not cut off. Zero
	// waits for the context only.
	ReadTimeout      time.Duration
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// PingInterval is the keepalive period. Negative disables pings.
	PingInterval   time.Duration
	MaxMessageSize int64
	Logger         *log.Logger
}

func (o *ConnOptions) setDefaults() {
	if o.MaxInFlight <= 0 {
		o.MaxInFlight = 8
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = defaultHandshakeTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.PingInterval == 0 {
		o.PingInterval = defaultPingInterval
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = defaultMaxMessageSize
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
}

// Conn is one WebSocket connection to a Gremlin server. Requests are
// multiplexed by request id; a single goroutine reads all responses.
type Conn struct {
	ws     *websocket.Conn
	opts   ConnOptions
	logger *log.Logger
	sem    chan struct{}

	writeMu sync.Mutex

	mu       sync.Mutex
	pending  map[uuid.UUID]*pendingRequest
	closed   bool
	closeErr error
	done     chan struct{}
}

type pendingRequest struct {
	results []any
	// progress receives a signal for each partial frame.
	progress chan struct{}
	done     chan result
}

type result struct {
	data []any
	err  error
}

// Dial opens a connection to ep. The handshake is signed when ep uses IAM
// authentication.
func Dial(ctx context.Context, ep *endpoints.Endpoint, opts ConnOptions) (*Conn, error) {
	opts.setDefaults()

	headers, err := ep.HandshakeHeaders(ctx)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: opts.HandshakeTimeout,
		ReadBufferSize:   64 << 10,
		WriteBufferSize:  64 << 10,
	}
	ws, resp, err := dialer.DialContext(ctx, ep.URL(), headers)
	if err != nil {
		return nil, dialError(ep, resp, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	ws.SetReadLimit(opts.MaxMessageSize)

	c := &Conn{
		ws:      ws,
		opts:    opts,
		logger:  opts.Logger,
		sem:     make(chan struct{}, opts.MaxInFlight),
		pending: make(map[uuid.UUID]*pendingRequest),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	if opts.PingInterval > 0 {
		go c.pingLoop(opts.PingInterval)
	}
	c.logger.Debug("gremlin connection opened", "url", ep.URL())
	return c, nil
}

func dialError(ep *endpoints.Endpoint, resp *http.Response, err error) error {
	if resp != nil {
		if resp.Body != nil {
			resp.Body.Close()
		}
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return errors.Wrap(errors.ErrCodeUnauthorized, err, "connect to %s", ep)
		case http.StatusForbidden:
			return errors.Wrap(errors.ErrCodeForbidden, err, "connect to %s", ep)
		}
		if resp.StatusCode >= 400 {
			return errors.Wrap(errors.ErrCodeNetwork, err, "connect to %s: status %d", ep, resp.StatusCode)
		}
	}
	return errors.Wrap(errors.ErrCodeNetwork, err, "connect to %s", ep)
}

// Closed reports whether the connection has failed or been closed.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Done is closed when the connection is no longer usable.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Close closes the connection. Pending requests fail with ErrConnectionClosed.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	c.fail(ErrConnectionClosed)
	return nil
}

// fail marks the connection closed and fails every pending request once.
func (c *Conn) fail(cause error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	err := cause
	if !stderrors.Is(cause, ErrConnectionClosed) {
		err = errors.Wrap(errors.ErrCodeConnectionClosed, cause, "connection closed")
	}
	c.closeErr = err
	pending := c.pending
	c.pending = make(map[uuid.UUID]*pendingRequest)
	close(c.done)
	c.mu.Unlock()

	for _, p := range pending {
		p.done <- result{err: err}
	}
	_ = c.ws.Close()
}

// submit sends one request and waits for the complete response.
func (c *Conn) submit(ctx context.Context, req request) ([]any, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, c.err()
	}
	defer func() { <-c.sem }()

	frame, err := encodeRequest(req)
	if err != nil {
		return nil, err
	}

	p := &pendingRequest{progress: make(chan struct{}, 1), done: make(chan result, 1)}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, c.err()
	}
	c.pending[req.ID] = p
	c.mu.Unlock()

	if err := c.write(frame); err != nil {
		c.forget(req.ID)
		c.fail(err)
		return nil, c.err()
	}

	var (
		timer   *time.Timer
		timeout <-chan time.Time
	)
	if c.opts.ReadTimeout > 0 {
		timer = time.NewTimer(c.opts.ReadTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case r := <-p.done:
			return r.data, r.err
		case <-p.progress:
			if timer != nil {
				timer.Reset(c.opts.ReadTimeout)
			}
		case <-ctx.Done():
			c.forget(req.ID)
			return nil, ctx.Err()
		case <-timeout:
			c.forget(req.ID)
			return nil, errors.New(errors.ErrCodeTimeout, "no response to request %s for %s", req.ID, c.opts.ReadTimeout)
		}
	}
}

func (c *Conn) err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeErr != nil {
		return c.closeErr
	}
	return ErrConnectionClosed
}

func (c *Conn) forget(id uuid.UUID) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Conn) write(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, frame)
}

func (c *Conn) readLoop() {
	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			c.fail(err)
			return
		}
		c.dispatch(frame)
	}
}

func (c *Conn) dispatch(frame []byte) {
	resp, id, err := decodeResponse(frame)
	if err != nil {
		c.logger.Warn("dropping undecodable gremlin response", "err", err)
		return
	}

	c.mu.Lock()
	p, ok := c.pending[id]
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("response for unknown request", "id", id, "status", resp.Status.Code)
		return
	}

	switch resp.Status.Code {
	case StatusPartialContent, StatusSuccess:
		data, err := resp.data()
		if err != nil {
			c.finish(id, p, result{err: err})
			return
		}
		p.results = append(p.results, data...)
		if resp.Status.Code == StatusSuccess {
			c.finish(id, p, result{data: expandTraversers(p.results)})
			return
		}
		select {
		case p.progress <- struct{}{}:
		default:
		}
	case StatusNoContent:
		c.finish(id, p, result{data: []any{}})
	default:
		c.finish(id, p, result{err: wrapServerError(resp.serverError(id))})
	}
}

func (c *Conn) finish(id uuid.UUID, p *pendingRequest, r result) {
	c.mu.Lock()
	_, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if ok {
		p.done <- r
	}
}

func (c *Conn) pingLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteTimeout))
			if err != nil {
				c.fail(fmt.Errorf("keepalive: %w", err))
				return
			}
		}
	}
}
