package middleware

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signpost-dev/signpost/pkg/router"
)

// Default tracer name for signpost routers.
const defaultTracerName = "signpost"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "signpost").
	TracerName string

	// IncludeParams includes parameter names in span attributes. Values
	// may contain sensitive information - disabled by default.
	IncludeParams bool

	// Filter determines which transitions to trace. Return true to
	// trace, false to skip. If nil, all transitions are traced.
	Filter func(to, from *router.State) bool

	// AttributeExtractor extracts custom attributes per transition.
	AttributeExtractor func(to, from *router.State) []attribute.KeyValue

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithIncludeParams enables recording parameter values in spans.
func WithIncludeParams(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeParams = include
	}
}

// WithTransitionFilter sets a filter function for transitions.
func WithTransitionFilter(filter func(to, from *router.State) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(to, from *router.State) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
	}
}

// OpenTelemetry creates middleware that opens a span per transition.
//
// The span is named "signpost.transition", carries the source and target
// route names and paths, and records failed transitions as span errors.
// The tracer comes from the global OpenTelemetry tracer provider;
// configure it in main() before starting the router:
//
//	tp := sdktrace.NewTracerProvider(
//	    sdktrace.WithBatcher(exporter),
//	)
//	otel.SetTracerProvider(tp)
//
//	r.UseMiddleware(middleware.OpenTelemetry(
//	    middleware.WithTracerName("my-app"),
//	))
func OpenTelemetry(opts ...OTelOption) router.MiddlewareFactory {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}
	config.tracer = otel.Tracer(config.TracerName)

	return func(*router.Router) router.Middleware {
		return router.MiddlewareFunc(func(ctx context.Context, to, from *router.State, next func() error) error {
			if config.Filter != nil && !config.Filter(to, from) {
				return next()
			}

			attrs := []attribute.KeyValue{
				attribute.String("signpost.to.route", to.Name),
				attribute.String("signpost.to.path", to.Path),
			}
			if from != nil {
				attrs = append(attrs,
					attribute.String("signpost.from.route", from.Name),
					attribute.String("signpost.from.path", from.Path),
				)
			}
			if to.Meta != nil {
				attrs = append(attrs,
					attribute.Int64("signpost.navigation_id", int64(to.Meta.ID)),
					attribute.Bool("signpost.redirected", to.Meta.Redirect),
				)
			}
			if config.IncludeParams {
				for name := range to.Params {
					attrs = append(attrs, attribute.String("signpost.param."+name, stringifyAttr(to.Params[name])))
				}
			}
			if config.AttributeExtractor != nil {
				attrs = append(attrs, config.AttributeExtractor(to, from)...)
			}

			_, span := config.tracer.Start(
				ctx,
				"signpost.transition",
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attrs...),
				trace.WithTimestamp(time.Now()),
			)
			defer span.End()

			err := next()
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				if re, ok := err.(*router.RouterError); ok {
					span.SetAttributes(attribute.String("signpost.error_code", string(re.Code)))
				}
			} else {
				span.SetStatus(codes.Ok, "")
			}
			return err
		})
	}
}

func stringifyAttr(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
