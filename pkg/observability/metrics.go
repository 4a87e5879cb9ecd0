package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Authorization metrics
	AuthzDecisionsTotal  *prometheus.CounterVec
	GrantMutationsTotal  *prometheus.CounterVec

	// Authentication metrics
	TokenResolutionsTotal *prometheus.CounterVec
	TokenCacheHitsTotal   prometheus.Counter
	TokenCacheMissesTotal prometheus.Counter

	// Database metrics
	DBConnectionsActive       prometheus.Gauge
	DBConnectionsIdle         prometheus.Gauge
	DBConnectionsWaitCount    prometheus.Gauge
	DBConnectionsWaitDuration prometheus.Gauge

	// Rate limit metrics
	RateLimitRejectionsTotal *prometheus.CounterVec

	// Directory gauges
	TenantsTotal    prometheus.Gauge
	ActorsTotal     prometheus.Gauge
	ModulesActive   prometheus.Gauge
	APITokensActive prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portico_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portico_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portico_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		// Authorization metrics
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portico_authz_decisions_total",
				Help: "Total number of policy gate decisions",
			},
			[]string{"module", "outcome"},
		),
		GrantMutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portico_grant_mutations_total",
				Help: "Total number of grant and revoke operations",
			},
			[]string{"operation", "tier", "status"},
		),

		// Authentication metrics
		TokenResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portico_token_resolutions_total",
				Help: "Total number of bearer token resolutions",
			},
			[]string{"status"},
		),
		TokenCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "portico_token_cache_hits_total",
				Help: "Total number of token cache hits",
			},
		),
		TokenCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "portico_token_cache_misses_total",
				Help: "Total number of token cache misses",
			},
		),

		// Database metrics
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "portico_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "portico_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		DBConnectionsWaitCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "portico_db_connections_wait_count",
				Help: "Total number of connections waited for",
			},
		),
		DBConnectionsWaitDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "portico_db_connections_wait_duration_seconds",
				Help: "Total time spent waiting for connections",
			},
		),

		// Rate limit metrics
		RateLimitRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portico_ratelimit_rejections_total",
				Help: "Total number of rate limited requests",
			},
			[]string{"limiter"},
		),

		// Directory gauges
		TenantsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "portico_tenants_total",
				Help: "Total number of tenants",
			},
		),
		ActorsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "portico_actors_total",
				Help: "Total number of actors",
			},
		),
		ModulesActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "portico_modules_active",
				Help: "Number of active modules",
			},
		),
		APITokensActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "portico_api_tokens_active",
				Help: "Number of active API tokens",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPResponseSize,
		m.AuthzDecisionsTotal,
		m.GrantMutationsTotal,
		m.TokenResolutionsTotal,
		m.TokenCacheHitsTotal,
		m.TokenCacheMissesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.DBConnectionsWaitCount,
		m.DBConnectionsWaitDuration,
		m.RateLimitRejectionsTotal,
		m.TenantsTotal,
		m.ActorsTotal,
		m.ModulesActive,
		m.APITokensActive,
	)

	return m
}

// RecordAuthzDecision counts one policy gate outcome. Satisfies the policy
// gate's DecisionRecorder interface.
func (m *Metrics) RecordAuthzDecision(moduleSlug, outcome string) {
	m.AuthzDecisionsTotal.WithLabelValues(moduleSlug, outcome).Inc()
}

// RecordRejection counts one rate limited request for the named limiter.
func (m *Metrics) RecordRejection(limiter string) {
	m.RateLimitRejectionsTotal.WithLabelValues(limiter).Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
