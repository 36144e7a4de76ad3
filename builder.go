package courier

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/glimte/courier-go/config"
	"github.com/glimte/courier-go/interceptors"
	"github.com/glimte/courier-go/request"
	"github.com/glimte/courier-go/transports/httpengine"
)

// global holds the interceptors registered through Use. It is read by
// every Build; register before building the clients that should see them.
var global = interceptors.NewRegistry()

// Use registers interceptors for every client built afterwards. Any order
// from zero up is accepted, so a registered interceptor may replace a
// built-in one. Registration stops at the first negative order; the
// interceptors before it stay registered.
func Use(ics ...interceptors.Interceptor) error {
	if err := global.Register(ics...); err != nil {
		return usageError(ErrIllegalArgument, "use", err)
	}
	return nil
}

// Builder assembles a Client
type Builder struct {
	cfg            config.Config
	errorHandler   ErrorHandler
	interceptors   *interceptors.Registry
	logger         *slog.Logger
	requestBuilder request.Builder
	engineOptions  []httpengine.EngineOption
}

// NewBuilder returns a builder with the default configuration
func NewBuilder() *Builder {
	return &Builder{
		cfg:          config.Default(),
		interceptors: interceptors.NewRegistry(),
	}
}

// SetConfig replaces the configuration
func (b *Builder) SetConfig(cfg config.Config) *Builder {
	b.cfg = cfg
	return b
}

// Config returns the current configuration
func (b *Builder) Config() config.Config {
	return b.cfg
}

// SetErrorHandler sets the handler notified of every failed call
func (b *Builder) SetErrorHandler(h ErrorHandler) *Builder {
	b.errorHandler = h
	return b
}

// ErrorHandler returns the configured error handler, or nil
func (b *Builder) ErrorHandler() ErrorHandler {
	return b.errorHandler
}

// SetLogger sets the logger of the built-in interceptors. Without one the
// client logs through slog.Default at the time Build is called.
func (b *Builder) SetLogger(logger *slog.Logger) *Builder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// SetRequestBuilder replaces the default request builder
func (b *Builder) SetRequestBuilder(rb request.Builder) *Builder {
	b.requestBuilder = rb
	return b
}

// SetEngineOptions passes options to the transport engine
func (b *Builder) SetEngineOptions(opts ...httpengine.EngineOption) *Builder {
	b.engineOptions = append(b.engineOptions, opts...)
	return b
}

// AddInterceptor adds client interceptors. Their orders must be at least
// interceptors.ReservedOrders. Adding stops at the first invalid
// interceptor; the ones before it are kept. A later interceptor at the
// same order replaces an earlier one.
func (b *Builder) AddInterceptor(ics ...interceptors.Interceptor) error {
	for _, ic := range ics {
		if err := interceptors.CheckUserOrder(ic); err != nil {
			return usageError(ErrIllegalArgument, "add interceptor", err)
		}
		b.interceptors.Put(ic)
	}
	return nil
}

// Interceptors returns the client interceptors added so far, by ascending order
func (b *Builder) Interceptors() []interceptors.Interceptor {
	return b.interceptors.Snapshot()
}

// Build creates the client. The chain is made of the built-in stages, then
// the interceptors registered through Use, then the ones added to this
// builder; at equal orders the later source wins. Each interceptor is
// initialised once with the configuration.
func (b *Builder) Build() (*Client, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, usageError(ErrIllegalArgument, "build", err)
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := httpengine.NewEngine(b.cfg, b.engineOptions...)

	merged := interceptors.NewRegistry()
	merged.Put(interceptors.NewLoggingInterceptor(logger))
	merged.Put(interceptors.NewRetryInterceptor(nil).WithLogger(logger))
	merged.Put(interceptors.NewRealCallInterceptor(engine))
	merged.Merge(global)
	merged.Merge(b.interceptors)
	defer merged.Clear()

	list := merged.Snapshot()
	for _, ic := range list {
		if err := ic.Init(b.cfg); err != nil {
			return nil, fmt.Errorf("init %s: %w", ic.Name(), err)
		}
	}

	rb := b.requestBuilder
	if rb == nil {
		rb = request.NewDefaultBuilder(b.cfg.BaseURL, nil)
	}

	return &Client{
		cfg:            b.cfg,
		chain:          interceptors.NewChain(list...),
		engine:         engine,
		errorHandler:   b.errorHandler,
		requestBuilder: rb,
		logger:         logger,
		proxies:        make(map[reflect.Type]*proxyHandler),
	}, nil
}
