package loader

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/matzehuels/neptune-utils/pkg/endpoints"
	"github.com/matzehuels/neptune-utils/pkg/errors"
	"github.com/matzehuels/neptune-utils/pkg/httputil"
)

// DefaultPollInterval is the delay between status polls in [Client.Wait].
const DefaultPollInterval = 2 * time.Second

// Client talks to the loader endpoint of a cluster.
type Client struct {
	http *httputil.Client
	ep   *endpoints.Endpoint
}

// NewClient returns a loader client for eps. A nil hc uses
// [httputil.NewClient] defaults.
func NewClient(eps *endpoints.Endpoints, hc *httputil.Client) *Client {
	if hc == nil {
		hc = httputil.NewClient()
	}
	return &Client{http: hc, ep: eps.Loader()}
}

type envelope[T any] struct {
	Status  string `json:"status"`
	Payload T      `json:"payload"`
}

// Start submits req and returns the load id. The request is not retried
// after a timeout or server error, since the load may have started.
func (c *Client) Start(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	var resp envelope[struct {
		LoadID string `json:"loadId"`
	}]
	if err := c.http.Do(ctx, c.ep, httputil.Request{Method: http.MethodPost, Body: req}, &resp); err != nil {
		return "", err
	}
	if resp.Payload.LoadID == "" {
		return "", errors.New(errors.ErrCodeInvalidFormat, "loader response has no load id")
	}
	return resp.Payload.LoadID, nil
}

// StatusOptions selects what [Client.Status] reports.
type StatusOptions struct {
	Details       bool
	Errors        bool
	Page          int
	ErrorsPerPage int
}

func (o StatusOptions) query() url.Values {
	q := url.Values{}
	if o.Details {
		q.Set("details", "true")
	}
	if o.Errors {
		q.Set("errors", "true")
	}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.ErrorsPerPage > 0 {
		q.Set("errorsPerPage", strconv.Itoa(o.ErrorsPerPage))
	}
	return q
}

// Status returns the status of load id.
func (c *Client) Status(ctx context.Context, id string, opts StatusOptions) (*Status, error) {
	if err := errors.ValidateLoadID(id); err != nil {
		return nil, err
	}
	var resp envelope[Status]
	err := c.http.Do(ctx, c.ep, httputil.Request{Path: id, Query: opts.query()}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Payload, nil
}

// List returns the ids of recent loads, newest first. A limit of zero
// leaves the server default.
func (c *Client) List(ctx context.Context, limit int) ([]string, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp envelope[struct {
		LoadIDs []string `json:"loadIds"`
	}]
	if err := c.http.Do(ctx, c.ep, httputil.Request{Query: q}, &resp); err != nil {
		return nil, err
	}
	return resp.Payload.LoadIDs, nil
}

// Cancel cancels load id.
func (c *Client) Cancel(ctx context.Context, id string) error {
	if err := errors.ValidateLoadID(id); err != nil {
		return err
	}
	return c.http.Do(ctx, c.ep, httputil.Request{Method: http.MethodDelete, Path: id}, nil)
}

// Wait polls load id until it reaches a terminal status. onProgress, if not
// nil, is called with every status read. A terminal status other than
// LOAD_COMPLETED is returned as a LOAD_FAILED error alongside the status.
func (c *Client) Wait(ctx context.Context, id string, interval time.Duration, onProgress func(*Status)) (*Status, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		st, err := c.Status(ctx, id, StatusOptions{Details: true})
		if err != nil {
			return nil, err
		}
		if onProgress != nil {
			onProgress(st)
		}
		if st.Terminal() {
			if !Succeeded(st.Overall.Status) {
				return st, errors.New(errors.ErrCodeLoadFailed, "load %s finished with %s", id, st.Overall.Status)
			}
			return st, nil
		}

		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Load starts req and waits for it to finish.
func (c *Client) Load(ctx context.Context, req Request, interval time.Duration, onProgress func(*Status)) (string, *Status, error) {
	id, err := c.Start(ctx, req)
	if err != nil {
		return "", nil, err
	}
	st, err := c.Wait(ctx, id, interval, onProgress)
	return id, st, err
}
