// Copyright 2024 Courier Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package courier

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/glimte/courier-go/config"
	"github.com/glimte/courier-go/contracts"
	"github.com/glimte/courier-go/exceptions"
	"github.com/glimte/courier-go/interceptors"
	"github.com/glimte/courier-go/request"
	"github.com/glimte/courier-go/transports/httpengine"
)

// ErrorHandler observes every failed call before the call settles. exc is
// the classified form of reason; the call itself fails with reason.
type ErrorHandler func(reason error, exc *exceptions.Exception)

// Client provides the main entry point for courier
type Client struct {
	cfg            config.Config
	chain          *interceptors.Chain
	engine         *httpengine.Engine
	errorHandler   ErrorHandler
	requestBuilder request.Builder
	logger         *slog.Logger

	mu      sync.Mutex
	proxies map[reflect.Type]*proxyHandler
}

// Create returns a new *T whose service methods send requests through c
func Create[T any](c *Client) (*T, error) {
	v, err := c.Create(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

// Create returns a new instance of the service struct typ as a pointer.
// The method table of typ is built on first use and reused afterwards.
func (c *Client) Create(typ reflect.Type) (any, error) {
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, usageError(ErrType, "create", fmt.Errorf("%v is not a struct type", typ))
	}

	h, err := c.handler(typ)
	if err != nil {
		return nil, err
	}
	return h.construct(), nil
}

func (c *Client) handler(typ reflect.Type) (*proxyHandler, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if h, ok := c.proxies[typ]; ok {
		return h, nil
	}
	h, err := newProxyHandler(c, typ)
	if err != nil {
		return nil, err
	}
	c.proxies[typ] = h
	return h, nil
}

// submit builds the request and runs it through the chain on its own goroutine
func (c *Client) submit(ctx context.Context, meta *contracts.MethodMetadata, args []any) *Call {
	req, err := c.requestBuilder.Build(ctx, meta, args)
	if err != nil {
		return failedCall(err)
	}

	call := newCall(req)
	go c.run(call, req)
	return call
}

func (c *Client) run(call *Call, req *contracts.Request) {
	defer req.Release()

	resp, err := c.execute(req)
	if err != nil && c.errorHandler != nil {
		c.errorHandler(err, exceptions.Classify(req, err))
	}
	call.settle(resp, err)
}

func (c *Client) execute(req *contracts.Request) (resp *contracts.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic while executing request",
				"requestId", req.ID,
				"route", req.Route(),
				"panic", r,
			)
			resp, err = nil, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return c.chain.Execute(req.Context(), req)
}

// Engine returns the transport engine
func (c *Client) Engine() *httpengine.Engine {
	return c.engine
}

// Interceptors returns the final chain in execution order
func (c *Client) Interceptors() []interceptors.Interceptor {
	return c.chain.Interceptors()
}

// Config returns the configuration the client was built with
func (c *Client) Config() config.Config {
	return c.cfg
}

// Close releases idle transport connections
func (c *Client) Close() error {
	return c.engine.Close()
}
