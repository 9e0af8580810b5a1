package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/signpost-dev/signpost/pkg/router"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "signpost").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for transition duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "signpost",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for router transitions.
type metrics struct {
	transitionsTotal   *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec
	transitionErrors   *prometheus.CounterVec
	redirectsTotal     prometheus.Counter
}

// globalMetrics is the singleton metrics instance, created on first call
// to Prometheus().
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		transitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transitions_total",
			Help:        "Total number of route transitions by target route and status",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "status"}),

		transitionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transition_duration_seconds",
			Help:        "Guard and middleware pipeline duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),

		transitionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transition_errors_total",
			Help:        "Total number of failed transitions by target route and error code",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "code"}),

		redirectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "redirects_total",
			Help:        "Total number of guard-issued redirects committed",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Prometheus creates middleware that collects Prometheus metrics for
// route transitions.
//
// Metrics collected:
//   - signpost_transitions_total: Counter of transitions by route and status
//   - signpost_transition_duration_seconds: Histogram of pipeline duration
//   - signpost_transition_errors_total: Counter of failures by route and code
//   - signpost_redirects_total: Counter of committed guard redirects
//
// Example:
//
//	r.UseMiddleware(middleware.Prometheus(
//	    middleware.WithNamespace("myapp"),
//	))
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) router.MiddlewareFactory {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	globalMetricsMu.Lock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	m := globalMetrics
	globalMetricsMu.Unlock()

	return func(*router.Router) router.Middleware {
		return router.MiddlewareFunc(func(ctx context.Context, to, from *router.State, next func() error) error {
			route := to.Name
			if route == "" {
				route = "unknown"
			}

			start := time.Now()
			err := next()
			m.transitionDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())

			status := "success"
			if err != nil {
				status = "error"
				m.transitionErrors.WithLabelValues(route, errorCode(err)).Inc()
			} else if to.Meta != nil && to.Meta.Redirect {
				m.redirectsTotal.Inc()
			}
			m.transitionsTotal.WithLabelValues(route, status).Inc()

			return err
		})
	}
}

// errorCode extracts a bounded-cardinality label from a transition
// error.
func errorCode(err error) string {
	if re, ok := err.(*router.RouterError); ok && re.Code != "" {
		return string(re.Code)
	}
	return "internal"
}
