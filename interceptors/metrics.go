package interceptors

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/glimte/courier-go/config"
	"github.com/glimte/courier-go/contracts"
	"github.com/glimte/courier-go/exceptions"
)

// OrderMetrics is the default position of the metrics interceptor
const OrderMetrics = 300

// MetricsInterceptor records prometheus metrics per service method.
// Placed above the retry stage it observes every transport attempt.
type MetricsInterceptor struct {
	registerer prometheus.Registerer
	namespace  string
	order      int

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
}

// MetricsOption configures the metrics interceptor
type MetricsOption func(*MetricsInterceptor)

// WithRegisterer registers the collectors on reg instead of the default registerer
func WithRegisterer(reg prometheus.Registerer) MetricsOption {
	return func(m *MetricsInterceptor) {
		m.registerer = reg
	}
}

// WithNamespace sets the metric name prefix
func WithNamespace(namespace string) MetricsOption {
	return func(m *MetricsInterceptor) {
		m.namespace = namespace
	}
}

// WithMetricsOrder moves the interceptor to another position
func WithMetricsOrder(order int) MetricsOption {
	return func(m *MetricsInterceptor) {
		m.order = order
	}
}

// NewMetricsInterceptor creates a new metrics interceptor
func NewMetricsInterceptor(options ...MetricsOption) *MetricsInterceptor {
	m := &MetricsInterceptor{
		registerer: prometheus.DefaultRegisterer,
		namespace:  "courier",
		order:      OrderMetrics,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Order implements Interceptor
func (m *MetricsInterceptor) Order() int {
	return m.order
}

// Init registers the collectors. Collectors already registered by another
// client are reused.
func (m *MetricsInterceptor) Init(config.Config) error {
	if m.requests != nil {
		return nil
	}

	requests, err := registerCollector(m.registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "client_requests_total",
		Help:      "Total requests sent by courier clients.",
	}, []string{"route", "outcome"}))
	if err != nil {
		return err
	}
	duration, err := registerCollector(m.registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "client_request_duration_seconds",
		Help:      "Request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"}))
	if err != nil {
		return err
	}
	inflight, err := registerCollector(m.registerer, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "client_requests_in_flight",
		Help:      "Requests currently in flight.",
	}))
	if err != nil {
		return err
	}

	m.requests, m.duration, m.inflight = requests, duration, inflight
	return nil
}

// Intercept implements Interceptor
func (m *MetricsInterceptor) Intercept(ctx context.Context, req *contracts.Request, next Handler) (*contracts.Response, error) {
	route := metricsRoute(req)
	start := time.Now()

	m.inflight.Inc()
	resp, err := next.Handle(ctx, req)
	m.inflight.Dec()

	m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	m.requests.WithLabelValues(route, outcome(req, resp, err)).Inc()
	return resp, err
}

// Name implements Interceptor
func (m *MetricsInterceptor) Name() string {
	return "MetricsInterceptor"
}

// metricsRoute uses the path template to keep label cardinality bounded
func metricsRoute(req *contracts.Request) string {
	if req.Metadata != nil {
		return req.Metadata.Route()
	}
	return req.Method
}

func outcome(req *contracts.Request, resp *contracts.Response, err error) string {
	if err != nil {
		if exc := exceptions.Classify(req, err); exc != nil {
			return string(exc.Kind)
		}
		return string(exceptions.KindIO)
	}
	return strconv.Itoa(resp.StatusCode)
}

func registerCollector[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}
