package observability

import (
	"time"

	"github.com/companychat/crm-backend-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the CRM backend.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration   *prometheus.HistogramVec
	clientOps         *prometheus.CounterVec
	externalErrors    *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	webhookDeliveries *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crm_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		clientOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_client_ops_total",
				Help: "Total client CRUD operations by outcome.",
			},
			[]string{"op", "status"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		webhookDeliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crm_webhook_deliveries_total",
				Help: "Total integration webhook deliveries by outcome.",
			},
			[]string{"integration", "status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrClientOp counts one client CRUD operation with its outcome.
func (m *Metrics) IncrClientOp(op, status string) {
	m.clientOps.WithLabelValues(op, status).Inc()
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrWebhookDelivery counts one webhook delivery attempt outcome.
func (m *Metrics) IncrWebhookDelivery(integration, status string) {
	m.webhookDeliveries.WithLabelValues(integration, status).Inc()
}

// GetOpsSnapshot returns a snapshot of the operation counters for the
// GET /v1/metrics/summary endpoint.
func (m *Metrics) GetOpsSnapshot() *domain.OpsMetrics {
	ops := []string{"list", "add", "update", "update_status", "delete"}

	var total, errors float64
	for _, op := range ops {
		total += getCounterValue(m.clientOps, op, "success")
		e := getCounterValue(m.clientOps, op, "error")
		total += e
		errors += e
	}

	cacheHits := getCounterValue(m.cacheHits, "owner_store")
	cacheMisses := getCounterValue(m.cacheMisses, "owner_store")

	errorRate := float64(0)
	if total > 0 {
		errorRate = errors / total
	}
	cacheHitRate := float64(0)
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	var webhookFailures float64
	for _, key := range []string{domain.IntegrationN8N, domain.IntegrationMake, domain.IntegrationZapier, domain.IntegrationEvolutionAPI} {
		webhookFailures += getCounterValue(m.webhookDeliveries, key, "error")
	}

	return &domain.OpsMetrics{
		TotalRequests:    int64(total),
		ErrorRate:        errorRate,
		CacheHitRate:     cacheHitRate,
		WebhookFailures:  int64(webhookFailures),
		ExternalFailures: int64(getCounterValue(m.externalErrors, "supabase")),
		Period:           "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec
// for the given label values.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
