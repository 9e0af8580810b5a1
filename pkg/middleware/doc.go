// Package middleware provides production-grade transition middleware for
// signpost routers.
//
// This package includes:
//   - OpenTelemetry distributed tracing middleware
//   - Prometheus metrics middleware
//
// # OpenTelemetry Middleware
//
// The OpenTelemetry middleware opens a span for every transition,
// carrying the source and target route names, the navigation id, and the
// failure code when a transition fails.
//
//	r.UseMiddleware(middleware.OpenTelemetry())
//
// Configure with options:
//
//	middleware.OpenTelemetry(
//	    middleware.WithTracerName("my-app"),
//	    middleware.WithTransitionFilter(func(to, from *router.State) bool {
//	        return to.Name != "health"
//	    }),
//	)
//
// # Prometheus Metrics
//
// The Prometheus middleware collects metrics about the transition
// pipeline:
//   - signpost_transitions_total: Transitions by route and status
//   - signpost_transition_duration_seconds: Pipeline duration histogram
//   - signpost_transition_errors_total: Failures by route and error code
//   - signpost_redirects_total: Committed guard redirects
//
//	r.UseMiddleware(middleware.Prometheus())
//
// Then expose metrics on a separate port:
//
//	http.Handle("/metrics", promhttp.Handler())
//	go http.ListenAndServe(":9090", nil)
package middleware
