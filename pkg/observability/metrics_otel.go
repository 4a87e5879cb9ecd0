package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds OpenTelemetry metric instruments. These mirror the
// Prometheus metrics for deployments that export over OTLP instead of
// scraping.
type OTelMetrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Authorization metrics
	authzDecisionsTotal metric.Int64Counter
	grantMutationsTotal metric.Int64Counter

	// Directory query metrics
	dbQueryDuration metric.Float64Histogram
	dbQueriesTotal  metric.Int64Counter

	// Token cache metrics
	tokenCacheHitsTotal   metric.Int64Counter
	tokenCacheMissesTotal metric.Int64Counter
}

// NewOTelMetrics creates a new OTel metrics instance
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter("github.com/porticohq/portico")

	m := &OTelMetrics{}
	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration histogram: %w", err)
	}

	m.authzDecisionsTotal, err = meter.Int64Counter(
		"authz.decisions.total",
		metric.WithDescription("Total number of policy gate decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authz_decisions_total counter: %w", err)
	}

	m.grantMutationsTotal, err = meter.Int64Counter(
		"authz.grant_mutations.total",
		metric.WithDescription("Total number of grant and revoke operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create grant_mutations_total counter: %w", err)
	}

	m.dbQueryDuration, err = meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Directory query duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create db_query_duration histogram: %w", err)
	}

	m.dbQueriesTotal, err = meter.Int64Counter(
		"db.queries.total",
		metric.WithDescription("Total number of directory queries"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create db_queries_total counter: %w", err)
	}

	m.tokenCacheHitsTotal, err = meter.Int64Counter(
		"authn.token_cache.hits",
		metric.WithDescription("Total number of token cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_cache_hits counter: %w", err)
	}

	m.tokenCacheMissesTotal, err = meter.Int64Counter(
		"authn.token_cache.misses",
		metric.WithDescription("Total number of token cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_cache_misses counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request metric
func (m *OTelMetrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", statusCode),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordAuthzDecision records one policy gate outcome
func (m *OTelMetrics) RecordAuthzDecision(ctx context.Context, moduleSlug, outcome string) {
	m.authzDecisionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("module", moduleSlug),
		attribute.String("outcome", outcome),
	))
}

// RecordGrantMutation records a grant or revoke operation
func (m *OTelMetrics) RecordGrantMutation(ctx context.Context, operation, tier string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.grantMutationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("tier", tier),
		attribute.String("status", status),
	))
}

// RecordDBQuery records a directory query metric
func (m *OTelMetrics) RecordDBQuery(ctx context.Context, operation string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("db.operation", operation),
		attribute.Bool("error", err != nil),
	}

	m.dbQueriesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.dbQueryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordTokenCacheHit records a token cache hit
func (m *OTelMetrics) RecordTokenCacheHit(ctx context.Context) {
	m.tokenCacheHitsTotal.Add(ctx, 1)
}

// RecordTokenCacheMiss records a token cache miss
func (m *OTelMetrics) RecordTokenCacheMiss(ctx context.Context) {
	m.tokenCacheMissesTotal.Add(ctx, 1)
}
