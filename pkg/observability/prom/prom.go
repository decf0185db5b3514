// Package prom implements the observability hooks with Prometheus
// collectors under the neptune_utils namespace.
//
//	hooks := prom.New(prometheus.DefaultRegisterer)
//	hooks.Install()
package prom

import (
	"context"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/neptune-utils/pkg/errors"
	"github.com/matzehuels/neptune-utils/pkg/observability"
)

const namespace = "neptune_utils"

// Hooks implements [observability.QueryHooks], [observability.CacheHooks]
// and [observability.HTTPHooks].
type Hooks struct {
	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	retries       *prometheus.CounterVec
	cacheEvents   *prometheus.CounterVec
	cacheBytes    *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	httpErrors    *prometheus.CounterVec
}

var (
	_ observability.QueryHooks = (*Hooks)(nil)
	_ observability.CacheHooks = (*Hooks)(nil)
	_ observability.HTTPHooks  = (*Hooks)(nil)
)

// New creates the collectors and registers them with reg. Collectors that
// are already registered are reused, so New may be called more than once.
func New(reg prometheus.Registerer) *Hooks {
	return &Hooks{
		queries: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gremlin",
			Name:      "requests_total",
			Help:      "Total number of Gremlin requests.",
		}, []string{"op", "result"})),
		queryDuration: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gremlin",
			Name:      "request_duration_seconds",
			Help:      "Duration of Gremlin requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"})),
		retries: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gremlin",
			Name:      "retries_total",
			Help:      "Total number of retried Gremlin requests.",
		}, []string{"op", "code"})),
		cacheEvents: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "events_total",
			Help:      "Cache hits, misses and writes.",
		}, []string{"key_type", "event"})),
		cacheBytes: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "written_bytes_total",
			Help:      "Bytes written to the cache.",
		}, []string{"key_type"})),
		httpRequests: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests to Neptune.",
		}, []string{"method", "path", "status"})),
		httpDuration: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests to Neptune.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"})),
		httpErrors: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http_client",
			Name:      "errors_total",
			Help:      "HTTP requests that failed without a response.",
		}, []string{"method", "path"})),
	}
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		log.Warn("prometheus register failed", "err", err)
	}
	return c
}

// Install registers h as the global query, cache and HTTP hooks.
func (h *Hooks) Install() {
	observability.SetQueryHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

func (h *Hooks) OnSubmit(context.Context, string, string) {}

func (h *Hooks) OnComplete(_ context.Context, op string, _ int, d time.Duration, err error) {
	h.queries.WithLabelValues(op, result(err)).Inc()
	h.queryDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (h *Hooks) OnRetry(_ context.Context, op string, _ int, err error) {
	code := string(errors.GetCode(err))
	if code == "" {
		code = "unknown"
	}
	h.retries.WithLabelValues(op, code).Inc()
}

func (h *Hooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (h *Hooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (h *Hooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheEvents.WithLabelValues(keyType, "set").Inc()
	h.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (h *Hooks) OnRequest(context.Context, string, string, string) {}

func (h *Hooks) OnResponse(_ context.Context, method, _, path string, status int, d time.Duration) {
	h.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	h.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (h *Hooks) OnError(_ context.Context, method, _, path string, _ error) {
	h.httpErrors.WithLabelValues(method, path).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
