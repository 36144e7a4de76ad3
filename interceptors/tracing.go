package interceptors

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/glimte/courier-go/config"
	"github.com/glimte/courier-go/contracts"
	"github.com/glimte/courier-go/exceptions"
)

// OrderTracing is the default position of the tracing interceptor
const OrderTracing = 320

const tracerName = "github.com/glimte/courier-go"

// Span attribute keys
const (
	AttrHTTPMethod  = "http.method"
	AttrHTTPURL     = "http.url"
	AttrHTTPStatus  = "http.status_code"
	AttrRequestID   = "courier.request_id"
	AttrAttempt     = "courier.attempt"
	AttrServiceCall = "courier.method"
	AttrFailureKind = "error.type"
)

// TracingInterceptor opens a client span per transport attempt and injects
// the trace context into the outgoing headers
type TracingInterceptor struct {
	provider   trace.TracerProvider
	propagator propagation.TextMapPropagator
	tracer     trace.Tracer
	order      int
}

// TracingOption configures the tracing interceptor
type TracingOption func(*TracingInterceptor)

// WithTracerProvider uses tp instead of the global provider
func WithTracerProvider(tp trace.TracerProvider) TracingOption {
	return func(t *TracingInterceptor) {
		t.provider = tp
	}
}

// WithPropagator uses p instead of the global propagator
func WithPropagator(p propagation.TextMapPropagator) TracingOption {
	return func(t *TracingInterceptor) {
		t.propagator = p
	}
}

// WithTracingOrder moves the interceptor to another position
func WithTracingOrder(order int) TracingOption {
	return func(t *TracingInterceptor) {
		t.order = order
	}
}

// NewTracingInterceptor creates a new tracing interceptor
func NewTracingInterceptor(options ...TracingOption) *TracingInterceptor {
	t := &TracingInterceptor{order: OrderTracing}
	for _, opt := range options {
		opt(t)
	}
	return t
}

// Order implements Interceptor
func (t *TracingInterceptor) Order() int {
	return t.order
}

// Init resolves the tracer and propagator, falling back to the otel globals
func (t *TracingInterceptor) Init(config.Config) error {
	if t.provider == nil {
		t.provider = otel.GetTracerProvider()
	}
	if t.propagator == nil {
		t.propagator = otel.GetTextMapPropagator()
	}
	t.tracer = t.provider.Tracer(tracerName)
	return nil
}

// Intercept implements Interceptor
func (t *TracingInterceptor) Intercept(ctx context.Context, req *contracts.Request, next Handler) (*contracts.Response, error) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrHTTPMethod, req.Method),
		attribute.String(AttrRequestID, req.ID),
		attribute.Int(AttrAttempt, req.Attempt),
	}
	if req.URL != nil {
		attrs = append(attrs, attribute.String(AttrHTTPURL, req.URL.String()))
	}
	if req.Metadata != nil {
		attrs = append(attrs, attribute.String(AttrServiceCall, req.Metadata.Name))
	}

	ctx, span := t.tracer.Start(ctx, spanName(req),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	if req.Header == nil {
		req.Header = make(http.Header)
	}
	t.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := next.Handle(ctx, req)
	if err != nil {
		if exc := exceptions.Classify(req, err); exc != nil {
			span.SetAttributes(attribute.String(AttrFailureKind, string(exc.Kind)))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int(AttrHTTPStatus, resp.StatusCode))
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return resp, nil
}

// Name implements Interceptor
func (t *TracingInterceptor) Name() string {
	return "TracingInterceptor"
}

func spanName(req *contracts.Request) string {
	if req.Metadata != nil {
		return req.Metadata.Route()
	}
	return req.Method
}
