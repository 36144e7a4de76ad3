package interceptors

import (
	"context"
	"syscall"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/glimte/courier-go/config"
	"github.com/glimte/courier-go/exceptions"
)

func TestMetricsInterceptor(t *testing.T) {
	t.Run("counts outcomes per route template", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		m := NewMetricsInterceptor(WithRegisterer(reg), WithNamespace("test"))
		require.NoError(t, m.Init(config.Default()))

		next := &mockHandler{}
		next.On("Handle", mock.Anything, mock.Anything).Return(ok(200), nil).Once()
		next.On("Handle", mock.Anything, mock.Anything).Return(nil, exceptions.NewTransportError("round trip", syscall.ECONNRESET)).Once()

		_, err := m.Intercept(context.Background(), newTestRequest(t, "GET", "http://api/users/1"), next)
		require.NoError(t, err)
		_, err = m.Intercept(context.Background(), newTestRequest(t, "GET", "http://api/users/2"), next)
		require.Error(t, err)

		assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET /users/{id}", "200")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET /users/{id}", string(exceptions.KindSocket))))
		assert.Equal(t, 0.0, testutil.ToFloat64(m.inflight))
		assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
	})

	t.Run("reuses collectors already registered", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		first := NewMetricsInterceptor(WithRegisterer(reg))
		second := NewMetricsInterceptor(WithRegisterer(reg), WithMetricsOrder(350))
		require.NoError(t, first.Init(config.Default()))
		require.NoError(t, second.Init(config.Default()))

		assert.Same(t, first.requests, second.requests)
		assert.Equal(t, 350, second.Order())
		assert.Equal(t, OrderMetrics, first.Order())
	})

	t.Run("Init is idempotent", func(t *testing.T) {
		m := NewMetricsInterceptor(WithRegisterer(prometheus.NewRegistry()))
		require.NoError(t, m.Init(config.Default()))
		requests := m.requests
		require.NoError(t, m.Init(config.Default()))
		assert.Same(t, requests, m.requests)
	})
}
