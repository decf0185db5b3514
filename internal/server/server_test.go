package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/neptune-utils/pkg/endpoints"
	"github.com/matzehuels/neptune-utils/pkg/errors"
	"github.com/matzehuels/neptune-utils/pkg/gremlin"
	"github.com/matzehuels/neptune-utils/pkg/httputil"
	"github.com/matzehuels/neptune-utils/pkg/loader"
	"github.com/matzehuels/neptune-utils/pkg/retry"
)

const loadID = "a4ed7a6e-7f0c-4b2a-9d6e-5f6c2d1e0b3a"

type fakeGremlin struct {
	script  string
	results []any
	err     error
}

func (f *fakeGremlin) Submit(_ context.Context, script string, _ map[string]any) ([]any, error) {
	f.script = script
	return f.results, f.err
}

type fakeLoader struct {
	started   loader.Request
	cancelled string
	opts      loader.StatusOptions
	err       error
}

func (f *fakeLoader) Start(_ context.Context, req loader.Request) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if err := req.Validate(); err != nil {
		return "", err
	}
	f.started = req
	return loadID, nil
}

func (f *fakeLoader) Status(_ context.Context, id string, opts loader.StatusOptions) (*loader.Status, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.opts = opts
	return &loader.Status{Overall: loader.Overall{Status: loader.StatusCompleted, FullURI: "s3://bucket/" + id, TotalRecords: 10}}, nil
}

func (f *fakeLoader) Cancel(_ context.Context, id string) error {
	f.cancelled = id
	return f.err
}

type staticStatus []byte

func (s staticStatus) Status(context.Context) ([]byte, error) { return s, nil }

func newTestServer(opts Options) *httptest.Server {
	opts.Logger = log.New(io.Discard)
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.NewRegistry()
	}
	return httptest.NewServer(New(opts))
}

func splitHostPort(t *testing.T, raw string) (string, int) {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return u.Hostname(), port
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(Options{})
	defer srv.Close()

	resp, body := do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "neptune_utils_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	srv := newTestServer(Options{Gatherer: reg})
	defer srv.Close()

	resp, body := do(t, http.MethodGet, srv.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "neptune_utils_test_total 1")
}

func TestStatus(t *testing.T) {
	srv := newTestServer(Options{Status: staticStatus(`{"status":"healthy","role":"writer"}`)})
	defer srv.Close()

	resp, body := do(t, http.MethodGet, srv.URL+"/status", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"healthy","role":"writer"}`, string(body))
}

func TestStatusNotConfigured(t *testing.T) {
	srv := newTestServer(Options{})
	defer srv.Close()

	resp, body := do(t, http.MethodGet, srv.URL+"/status", "")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	assert.Contains(t, string(body), `"code":"UNSUPPORTED"`)
}

func TestNeptuneStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"healthy","dbEngineVersion":"1.3.0.0"}`))
	}))
	defer upstream.Close()

	host, port := splitHostPort(t, upstream.URL)
	eps, err := endpoints.New(context.Background(), endpoints.Options{Host: host, Port: port, DisableTLS: true})
	require.NoError(t, err)
	hc := httputil.NewClient(httputil.WithPolicy(retry.Constant(1, time.Millisecond)))

	srv := newTestServer(Options{Status: NewNeptuneStatus(eps, hc)})
	defer srv.Close()

	resp, body := do(t, http.MethodGet, srv.URL+"/status", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "1.3.0.0")
}

func TestGremlin(t *testing.T) {
	g := &fakeGremlin{results: []any{
		map[any]any{gremlin.TLabel: "person", "count": int64(2)},
	}}
	srv := newTestServer(Options{Gremlin: g})
	defer srv.Close()

	resp, body := do(t, http.MethodPost, srv.URL+"/gremlin", `{"gremlin":"g.V().groupCount().by(label)"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"result":[{"label":"person","count":2}]}`, string(body))
	assert.Equal(t, "g.V().groupCount().by(label)", g.script)
}

func TestGremlinErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   errors.Code
	}{
		{"bad json", `{`, nil, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"empty script", `{"gremlin":""}`, nil, http.StatusBadRequest, errors.ErrCodeInvalidQuery},
		{"conflict", `{"gremlin":"g.V()"}`, errors.New(errors.ErrCodeConcurrentModification, "conflict"), http.StatusConflict, errors.ErrCodeConcurrentModification},
		{"plain error", `{"gremlin":"g.V()"}`, io.ErrUnexpectedEOF, http.StatusInternalServerError, errors.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(Options{Gremlin: &fakeGremlin{err: tt.err}})
			defer srv.Close()

			resp, body := do(t, http.MethodPost, srv.URL+"/gremlin", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)

			var e errorResponse
			require.NoError(t, json.Unmarshal(body, &e))
			assert.Equal(t, tt.code, e.Code)
			assert.NotEmpty(t, e.Message)
		})
	}
}

func TestLoaderRoutes(t *testing.T) {
	l := &fakeLoader{}
	srv := newTestServer(Options{Loader: l, Region: "us-east-1"})
	defer srv.Close()

	body := `{"source":"s3://bucket/graph/","format":"csv","iamRoleArn":"arn:aws:iam::123456789012:role/NeptuneLoadFromS3","failOnError":"TRUE"}`
	resp, data := do(t, http.MethodPost, srv.URL+"/loader", body)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.JSONEq(t, `{"loadId":"`+loadID+`"}`, string(data))
	assert.Equal(t, "us-east-1", l.started.Region)
	assert.True(t, l.started.FailOnError)

	resp, data = do(t, http.MethodGet, srv.URL+"/loader/"+loadID+"?details=true", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `"status":"LOAD_COMPLETED"`)
	assert.True(t, l.opts.Details)
	assert.False(t, l.opts.Errors)

	resp, _ = do(t, http.MethodDelete, srv.URL+"/loader/"+loadID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, loadID, l.cancelled)
}

func TestLoaderErrors(t *testing.T) {
	srv := newTestServer(Options{Loader: &fakeLoader{}, Region: "us-east-1"})
	defer srv.Close()

	resp, data := do(t, http.MethodPost, srv.URL+"/loader", `{"source":"https://example.com/x","format":"csv"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(data), `"code":"INVALID_LOAD_REQUEST"`)

	resp, data = do(t, http.MethodPost, srv.URL+"/loader", `{"source":"s3://bucket","failOnError":"maybe"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(data), `"code":"INVALID_LOAD_REQUEST"`)

	missing := newTestServer(Options{Loader: &fakeLoader{err: errors.New(errors.ErrCodeLoadNotFound, "no such load")}})
	defer missing.Close()
	resp, data = do(t, http.MethodGet, missing.URL+"/loader/"+loadID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(data), "no such load")
}

func TestRequestID(t *testing.T) {
	var buf bytes.Buffer
	s := New(Options{Logger: log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel}), Gatherer: prometheus.NewRegistry()})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), "request_id")
	assert.Contains(t, buf.String(), "/healthz")
}

func TestListenAndServeShutdown(t *testing.T) {
	s := New(Options{Logger: log.New(io.Discard), Gatherer: prometheus.NewRegistry()})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
