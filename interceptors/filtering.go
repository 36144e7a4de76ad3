package interceptors

import (
	"context"
	"errors"
	"fmt"

	"github.com/glimte/courier-go/config"
	"github.com/glimte/courier-go/contracts"
)

// ErrFiltered is returned for requests rejected by a FilteringInterceptor
var ErrFiltered = errors.New("request rejected by filter")

// OrderFilter is the default position of a FilteringInterceptor
const OrderFilter = 260

// RequestFilter decides whether a request matches
type RequestFilter interface {
	Match(ctx context.Context, req *contracts.Request) (bool, error)
}

// RequestFilterFunc is a function adapter for RequestFilter
type RequestFilterFunc func(ctx context.Context, req *contracts.Request) (bool, error)

// Match implements RequestFilter
func (f RequestFilterFunc) Match(ctx context.Context, req *contracts.Request) (bool, error) {
	return f(ctx, req)
}

// FilteringInterceptor lets only matching requests through
type FilteringInterceptor struct {
	filter RequestFilter
	order  int
}

// NewFilteringInterceptor creates a new filtering interceptor
func NewFilteringInterceptor(filter RequestFilter) *FilteringInterceptor {
	return &FilteringInterceptor{filter: filter, order: OrderFilter}
}

// WithOrder moves the interceptor to another position
func (i *FilteringInterceptor) WithOrder(order int) *FilteringInterceptor {
	i.order = order
	return i
}

// Order implements Interceptor
func (i *FilteringInterceptor) Order() int {
	return i.order
}

// Init implements Interceptor
func (i *FilteringInterceptor) Init(config.Config) error {
	return nil
}

// Intercept implements Interceptor
func (i *FilteringInterceptor) Intercept(ctx context.Context, req *contracts.Request, next Handler) (*contracts.Response, error) {
	ok, err := i.filter.Match(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("filter error: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFiltered, req.Route())
	}
	return next.Handle(ctx, req)
}

// Name implements Interceptor
func (i *FilteringInterceptor) Name() string {
	return "FilteringInterceptor"
}

// AllFilter matches when every filter matches
type AllFilter struct {
	filters []RequestFilter
}

// NewAllFilter creates a new conjunction of filters
func NewAllFilter(filters ...RequestFilter) *AllFilter {
	return &AllFilter{filters: filters}
}

// Match implements RequestFilter
func (f *AllFilter) Match(ctx context.Context, req *contracts.Request) (bool, error) {
	for _, filter := range f.filters {
		ok, err := filter.Match(ctx, req)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// AnyFilter matches when at least one filter matches
type AnyFilter struct {
	filters []RequestFilter
}

// NewAnyFilter creates a new disjunction of filters
func NewAnyFilter(filters ...RequestFilter) *AnyFilter {
	return &AnyFilter{filters: filters}
}

// Match implements RequestFilter
func (f *AnyFilter) Match(ctx context.Context, req *contracts.Request) (bool, error) {
	for _, filter := range f.filters {
		ok, err := filter.Match(ctx, req)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// MethodFilter matches requests issued by the named service methods
type MethodFilter struct {
	names map[string]bool
}

// NewMethodFilter creates a filter for service method names
func NewMethodFilter(names ...string) *MethodFilter {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return &MethodFilter{names: m}
}

// Match implements RequestFilter
func (f *MethodFilter) Match(_ context.Context, req *contracts.Request) (bool, error) {
	if req.Metadata == nil {
		return false, nil
	}
	return f.names[req.Metadata.Name], nil
}

// HostFilter matches requests sent to one of the given hosts
type HostFilter struct {
	hosts map[string]bool
}

// NewHostFilter creates a filter for host[:port] values
func NewHostFilter(hosts ...string) *HostFilter {
	m := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		m[h] = true
	}
	return &HostFilter{hosts: m}
}

// Match implements RequestFilter
func (f *HostFilter) Match(_ context.Context, req *contracts.Request) (bool, error) {
	if req.URL == nil {
		return false, nil
	}
	return f.hosts[req.URL.Host], nil
}

// ConditionalInterceptor runs the wrapped interceptor only for matching
// requests. It takes the position of the interceptor it wraps.
type ConditionalInterceptor struct {
	condition   RequestFilter
	interceptor Interceptor
}

// NewConditionalInterceptor creates a new conditional interceptor
func NewConditionalInterceptor(condition RequestFilter, interceptor Interceptor) *ConditionalInterceptor {
	return &ConditionalInterceptor{
		condition:   condition,
		interceptor: interceptor,
	}
}

// Order implements Interceptor
func (i *ConditionalInterceptor) Order() int {
	return i.interceptor.Order()
}

// Init implements Interceptor
func (i *ConditionalInterceptor) Init(cfg config.Config) error {
	return i.interceptor.Init(cfg)
}

// Intercept implements Interceptor
func (i *ConditionalInterceptor) Intercept(ctx context.Context, req *contracts.Request, next Handler) (*contracts.Response, error) {
	ok, err := i.condition.Match(ctx, req)
	if err != nil {
		return nil, err
	}
	if ok {
		return i.interceptor.Intercept(ctx, req, next)
	}
	return next.Handle(ctx, req)
}

// Name implements Interceptor
func (i *ConditionalInterceptor) Name() string {
	return fmt.Sprintf("ConditionalInterceptor[%s]", i.interceptor.Name())
}
