// Package contracts provides the core value types that flow through courier.
//
// This package defines the shapes shared by every other package:
//   - MethodMetadata: the request template attached to one service method
//   - ParamBinding: how a positional call argument maps onto the request
//   - Request: one outgoing call, including its cancellation control
//   - Response: the buffered result of a transport round trip
//
// A Request is created once per service method invocation and is never
// reused. Interceptors may replace headers or body before forwarding it,
// and every stage observes the same cancellation state through Context.
package contracts
