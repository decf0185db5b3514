package httputil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/net/html/charset"

	"github.com/matzehuels/neptune-utils/pkg/buildinfo"
	"github.com/matzehuels/neptune-utils/pkg/endpoints"
	"github.com/matzehuels/neptune-utils/pkg/errors"
	"github.com/matzehuels/neptune-utils/pkg/observability"
	"github.com/matzehuels/neptune-utils/pkg/retry"
)

// DefaultTimeout bounds a single HTTP attempt.
const DefaultTimeout = 10 * time.Second

// Client performs requests against Neptune endpoints.
type Client struct {
	http   *http.Client
	policy retry.Policy
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithPolicy sets the retry policy.
func WithPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// NewClient creates a Client with a 10 second timeout and [retry.DefaultPolicy].
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{Timeout: DefaultTimeout},
		policy: retry.DefaultPolicy,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request describes one call below an endpoint.
type Request struct {
	Method string // defaults to GET
	Path   string // appended to the endpoint path
	Query  url.Values
	// Body is sent as JSON. A []byte is sent as is.
	Body    any
	Headers http.Header
	// Idempotent allows retries after failures that leave it unknown
	// whether the server acted, such as timeouts and 5xx responses. GET,
	// HEAD, PUT, DELETE and OPTIONS are always treated as idempotent; other
	// methods are retried only when the server throttled the request.
	Idempotent bool
}

func (r Request) idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	}
	return r.Idempotent
}

// Do sends r to ep and decodes the JSON response into v. A nil v discards
// the body.
func (c *Client) Do(ctx context.Context, ep *endpoints.Endpoint, r Request, v any) error {
	data, _, err := c.Fetch(ctx, ep, r)
	if err != nil {
		return err
	}
	if v == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode response from %s", ep)
	}
	return nil
}

// Fetch sends r to ep and returns the UTF-8 response body and headers.
func (c *Client) Fetch(ctx context.Context, ep *endpoints.Endpoint, r Request) ([]byte, http.Header, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	body, headers, err := encodeBody(r)
	if err != nil {
		return nil, nil, err
	}

	var (
		data []byte
		hdr  http.Header
	)
	idempotent := r.idempotent(method)
	err = retry.Do(ctx, c.policy, func() error {
		req, err := ep.PrepareRequest(ctx, method, r.Path, r.Query, body, headers)
		if err != nil {
			return err
		}
		data, hdr, err = c.roundTrip(ctx, req)
		if err != nil && !idempotent && !errors.Is(err, errors.ErrCodeRateLimited) {
			return permanent(err)
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return data, hdr, nil
}

// permanent strips the retry marker from err.
func permanent(err error) error {
	var re *retry.RetryableError
	if stderrors.As(err, &re) {
		return re.Err
	}
	return err
}

func encodeBody(r Request) ([]byte, http.Header, error) {
	headers := r.Headers.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	headers.Set("User-Agent", buildinfo.UserAgent())
	if headers.Get("Accept") == "" {
		headers.Set("Accept", "application/json")
	}

	switch b := r.Body.(type) {
	case nil:
		return nil, headers, nil
	case []byte:
		return b, headers, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "encode request body")
		}
		if headers.Get("Content-Type") == "" {
			headers.Set("Content-Type", "application/json")
		}
		return data, headers, nil
	}
}

func (c *Client) roundTrip(ctx context.Context, req *http.Request) ([]byte, http.Header, error) {
	host, path := req.URL.Host, req.URL.Path
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, host, path)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, retry.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "%s %s", req.Method, req.URL.Redacted()))
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, nil, retry.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "read response from %s", host))
	}

	if err := checkStatus(resp, data); err != nil {
		return nil, nil, err
	}
	return data, resp.Header, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		// Unknown charset; fall back to the raw bytes.
		r = resp.Body
	}
	return io.ReadAll(r)
}

// APIError is a non-2xx response from Neptune.
type APIError struct {
	Status    int
	Code      string `json:"code"`
	Message   string `json:"detailedMessage"`
	RequestID string `json:"requestId"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "status %d", e.Status)
	if e.Code != "" {
		b.WriteString(" " + e.Code)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	return b.String()
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{}
	if err := json.Unmarshal(body, apiErr); err != nil || (apiErr.Code == "" && apiErr.Message == "") {
		apiErr = &APIError{Message: strings.TrimSpace(string(body))}
	}
	apiErr.Status = status
	return apiErr
}

func checkStatus(resp *http.Response, body []byte) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}

	apiErr := parseAPIError(code, body)
	switch {
	case strings.Contains(apiErr.Code, "LoadNotFound"):
		return errors.Wrap(errors.ErrCodeLoadNotFound, apiErr, "load not found")
	case code == http.StatusNotFound:
		return errors.Wrap(errors.ErrCodeNotFound, apiErr, "%s not found", resp.Request.URL.Path)
	case code == http.StatusUnauthorized:
		return errors.Wrap(errors.ErrCodeUnauthorized, apiErr, "request was not authorized")
	case code == http.StatusForbidden:
		return errors.Wrap(errors.ErrCodeForbidden, apiErr, "access denied")
	case code == http.StatusTooManyRequests || isThrottle(apiErr.Code):
		rl := &errors.RateLimitedError{RetryAfter: retryAfter(resp.Header), Message: apiErr.Message}
		return retry.Retryable(errors.Wrap(errors.ErrCodeRateLimited, rl, "%s", apiErr))
	case code >= 500:
		return retry.Retryable(errors.Wrap(errors.ErrCodeNetwork, apiErr, "server error"))
	case code == http.StatusBadRequest:
		return errors.Wrap(errors.ErrCodeInvalidInput, apiErr, "bad request")
	default:
		return errors.Wrap(errors.ErrCodeNetwork, apiErr, "unexpected response")
	}
}

func isThrottle(code string) bool {
	return strings.Contains(code, "Throttling") || strings.Contains(code, "TooManyRequests")
}

func retryAfter(h http.Header) int {
	n, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
