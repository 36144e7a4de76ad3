package courier

import (
	"context"

	"github.com/glimte/courier-go/contracts"
)

// Call is the pending result of one service method invocation. It settles
// exactly once, with either a response or the raw failure reason.
type Call struct {
	req  *contracts.Request
	done chan struct{}
	resp *contracts.Response
	err  error
}

func newCall(req *contracts.Request) *Call {
	return &Call{req: req, done: make(chan struct{})}
}

func failedCall(err error) *Call {
	c := newCall(nil)
	c.settle(nil, err)
	return c
}

// settle must be called once
func (c *Call) settle(resp *contracts.Response, err error) {
	c.resp, c.err = resp, err
	close(c.done)
}

// Done is closed once the call has settled
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Await blocks until the call settles or ctx ends. Ending ctx only stops
// waiting; use Cancel to abort the request itself.
func (c *Call) Await(ctx context.Context) (*contracts.Response, error) {
	select {
	case <-c.done:
		return c.resp, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel aborts the request with message as its cause. It may be called
// from any goroutine; calls after the first, or after settlement, have no
// effect on the result.
func (c *Call) Cancel(message string) {
	if c.req != nil {
		c.req.Cancel(message)
	}
}

// Request returns the request behind the call, or nil when it could not be built
func (c *Call) Request() *contracts.Request {
	return c.req
}

// Decode awaits the call and unmarshals a successful JSON response into v.
// Statuses outside 2xx yield a *StatusError.
func (c *Call) Decode(ctx context.Context, v any) error {
	resp, err := c.Await(ctx)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		route := ""
		if c.req != nil {
			route = c.req.Route()
		}
		return &StatusError{StatusCode: resp.StatusCode, Route: route, Body: resp.Body}
	}
	if v == nil {
		return nil
	}
	return resp.Decode(v)
}
