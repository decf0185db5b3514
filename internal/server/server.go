// Package server exposes Neptune operations over HTTP.
//
// The service proxies cluster status, Gremlin scripts and bulk loader jobs
// and serves Prometheus metrics:
//
//	GET    /healthz
//	GET    /metrics
//	GET    /status
//	POST   /gremlin        {"gremlin": "g.V().count()"}
//	POST   /loader         loader.Request
//	GET    /loader/{id}
//	DELETE /loader/{id}
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/neptune-utils/pkg/endpoints"
	"github.com/matzehuels/neptune-utils/pkg/httputil"
	"github.com/matzehuels/neptune-utils/pkg/loader"
)

// Gremlin submits scripts. *gremlin.Client satisfies it.
type Gremlin interface {
	Submit(ctx context.Context, script string, bindings map[string]any) ([]any, error)
}

// Loader manages bulk load jobs. *loader.Client satisfies it.
type Loader interface {
	Start(ctx context.Context, req loader.Request) (string, error)
	Status(ctx context.Context, id string, opts loader.StatusOptions) (*loader.Status, error)
	Cancel(ctx context.Context, id string) error
}

// StatusSource returns the raw cluster status document.
type StatusSource interface {
	Status(ctx context.Context) ([]byte, error)
}

// NeptuneStatus reads the status document from the cluster's /status
// endpoint.
type NeptuneStatus struct {
	HTTP     *httputil.Client
	Endpoint *endpoints.Endpoint
}

// NewNeptuneStatus returns a StatusSource for eps.
func NewNeptuneStatus(eps *endpoints.Endpoints, hc *httputil.Client) *NeptuneStatus {
	return &NeptuneStatus{HTTP: hc, Endpoint: eps.Status()}
}

// Status implements StatusSource.
func (s *NeptuneStatus) Status(ctx context.Context) ([]byte, error) {
	data, _, err := s.HTTP.Fetch(ctx, s.Endpoint, httputil.Request{})
	return data, err
}

// Options configures a Server. Nil dependencies disable their routes, which
// then answer 501.
type Options struct {
	Gremlin  Gremlin
	Loader   Loader
	Status   StatusSource
	Gatherer prometheus.Gatherer
	Logger   *log.Logger
	// Region is used for load requests that do not name one.
	Region string
}

// Server is the HTTP front end.
type Server struct {
	opts   Options
	logger *log.Logger
	router chi.Router
}

// New builds the router.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{opts: opts, logger: opts.Logger}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/status", s.handleStatus)
	r.Post("/gremlin", s.handleGremlin)
	r.Route("/loader", func(r chi.Router) {
		r.Post("/", s.handleLoadStart)
		r.Get("/{id}", s.handleLoadStatus)
		r.Delete("/{id}", s.handleLoadCancel)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
