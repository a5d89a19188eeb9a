package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus implements every hook interface with Prometheus collectors.
type Prometheus struct {
	generations     *prometheus.CounterVec
	generateSeconds prometheus.Histogram
	circles         prometheus.Histogram
	storeLookups    *prometheus.CounterVec
	cacheOps        *prometheus.CounterVec
	cacheBytes      *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestSeconds  *prometheus.HistogramVec
	streams         prometheus.Gauge
	streamCircles   prometheus.Counter
}

// NewPrometheus registers the collectors with reg. A nil reg uses the
// default registerer.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Prometheus{
		generations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gasket",
			Name:      "generations_total",
			Help:      "Gasket generations by outcome.",
		}, []string{"status"}),
		generateSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gasket",
			Name:      "generation_duration_seconds",
			Help:      "Time spent generating a gasket.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		circles: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gasket",
			Name:      "generation_circles",
			Help:      "Circles produced per generation.",
			Buckets:   prometheus.ExponentialBuckets(4, 3, 12),
		}),
		storeLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gasket",
			Name:      "store_lookups_total",
			Help:      "Store lookups by result.",
		}, []string{"result"}),
		cacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gasket",
			Name:      "cache_operations_total",
			Help:      "Cache operations by key type and result.",
		}, []string{"key_type", "result"}),
		cacheBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gasket",
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache.",
		}, []string{"key_type"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gasket",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		requestSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gasket",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		streams: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "gasket",
			Name:      "websocket_sessions",
			Help:      "Open WebSocket sessions.",
		}),
		streamCircles: f.NewCounter(prometheus.CounterOpts{
			Namespace: "gasket",
			Name:      "websocket_circles_total",
			Help:      "Circles streamed over WebSocket.",
		}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *Prometheus) OnGenerateStart(context.Context, string, int, string) {}

func (p *Prometheus) OnGenerateComplete(_ context.Context, _ string, circles int, d time.Duration, err error) {
	p.generations.WithLabelValues(status(err)).Inc()
	p.generateSeconds.Observe(d.Seconds())
	if err == nil {
		p.circles.Observe(float64(circles))
	}
}

func (p *Prometheus) OnStoreLookup(_ context.Context, _ string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.storeLookups.WithLabelValues(result).Inc()
}

func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheOps.WithLabelValues(keyType, "set").Inc()
	p.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (p *Prometheus) OnResponse(_ context.Context, method, route string, code int, d time.Duration) {
	p.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	p.requestSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}

func (p *Prometheus) OnStreamOpen(context.Context, string) { p.streams.Inc() }

func (p *Prometheus) OnStreamClose(_ context.Context, _ string, circles int, _ error) {
	p.streams.Dec()
	p.streamCircles.Add(float64(circles))
}

var (
	_ GenerationHooks = (*Prometheus)(nil)
	_ CacheHooks      = (*Prometheus)(nil)
	_ APIHooks        = (*Prometheus)(nil)
)
