package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Tenant resolution outcomes by hint source
	TenantResolutionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_tenant_resolutions_total",
			Help: "Total number of tenant resolutions by hint source and outcome",
		},
		[]string{"source", "outcome"}, // source: header_id, header_slug, path, subdomain, none
	)

	// Authentication failures by type
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"},
	)

	// Authorization decisions by deciding rule
	AuthorizationDecisionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_authorization_decisions_total",
			Help: "Total number of authorization decisions by rule and outcome",
		},
		[]string{"rule", "outcome"},
	)

	// Ownership lookups that failed for infrastructure reasons
	OwnershipCheckErrorCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "eventhub_ownership_check_errors_total",
			Help: "Total number of resource ownership checks that failed to complete",
		},
	)

	// Scoped data access attempted without a tenant or in a refused form
	ScopingViolationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_tenancy_scoping_violations_total",
			Help: "Total number of refused tenant-owned data accesses",
		},
		[]string{"table", "operation"},
	)

	// Statements that ran with the explicit scoping bypass
	ScopingBypassCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_tenancy_scoping_bypass_total",
			Help: "Total number of statements executed with tenant scoping bypassed",
		},
		[]string{"table", "operation"},
	)

	// Issued tokens by type
	TokensIssuedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_tokens_issued_total",
			Help: "Total number of issued tokens",
		},
		[]string{"type"},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventhub_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventhub_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Gauge metrics
var (
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eventhub_info",
			Help: "Information about the event service",
		},
		[]string{"version"},
	)
)

func init() {
	prometheus.MustRegister(TenantResolutionCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(AuthorizationDecisionCounter)
	prometheus.MustRegister(OwnershipCheckErrorCounter)
	prometheus.MustRegister(ScopingViolationCounter)
	prometheus.MustRegister(ScopingBypassCounter)
	prometheus.MustRegister(TokensIssuedCounter)
	prometheus.MustRegister(HTTPRequestCounter)

	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	prometheus.MustRegister(InfoGauge)

	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations.
// Usage: defer prometheus.TrackDBOperation("query")()
func TrackDBOperation(operation string) func() {
	start := time.Now()
	return func() {
		DBOperationDuration.With(prometheus.Labels{"operation": operation}).Observe(time.Since(start).Seconds())
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// Let echo's error handler write the status before it is recorded
				c.Error(err)
				err = nil
			}

			labels := prometheus.Labels{
				"endpoint": c.Path(),
				"method":   c.Request().Method,
				"status":   strconv.Itoa(c.Response().Status),
			}
			RequestDuration.With(labels).Observe(time.Since(start).Seconds())
			HTTPRequestCounter.With(labels).Inc()

			return err
		}
	}
}

// RecordTenantResolution records the outcome of resolving a request's tenant
func RecordTenantResolution(source, outcome string) {
	TenantResolutionCounter.With(prometheus.Labels{"source": source, "outcome": outcome}).Inc()
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordAuthorizationDecision records which rule decided a request
func RecordAuthorizationDecision(rule string, allowed bool) {
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	AuthorizationDecisionCounter.With(prometheus.Labels{"rule": rule, "outcome": outcome}).Inc()
}

// RecordOwnershipCheckError records an ownership lookup that could not complete
func RecordOwnershipCheckError() {
	OwnershipCheckErrorCounter.Inc()
}

// RecordScopingViolation records a refused tenant-owned data access
func RecordScopingViolation(table, operation string) {
	ScopingViolationCounter.With(prometheus.Labels{"table": table, "operation": operation}).Inc()
}

// RecordScopingBypass records a statement executed with scoping bypassed
func RecordScopingBypass(table, operation string) {
	ScopingBypassCounter.With(prometheus.Labels{"table": table, "operation": operation}).Inc()
}

// RecordTokenIssued records an issued token
func RecordTokenIssued(tokenType string) {
	TokensIssuedCounter.With(prometheus.Labels{"type": tokenType}).Inc()
}
