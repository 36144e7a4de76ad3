// Package interceptors provides the ordered interceptor chain that every
// courier request passes through.
//
// Interceptors run in ascending Order on the way in and unwind in reverse.
// Orders below ReservedOrders belong to the built-in stages:
//   - LoggingInterceptor (0): logs failures, and each request in debug mode
//   - RetryInterceptor (128): repeats connect, socket and timeout failures
//   - RealCallInterceptor (255): hands the request to the transport; as the
//     chain Terminator it runs after every other stage
//
// Opt-in stages live in the user band:
//   - FilteringInterceptor (260): rejects requests that do not match a filter
//   - FallbackInterceptor (270): turns failures into stand-in responses
//   - ShortCircuitInterceptor (280) and CachingInterceptor (290)
//   - MetricsInterceptor (300): prometheus request counters and latencies
//   - RateLimitInterceptor (310): token bucket per host
//   - TracingInterceptor (320): opentelemetry client spans
//   - CircuitBreakerInterceptor (330): stops calling failing hosts
//
// User stages above the retry stage observe every transport attempt.
//
// Custom interceptors implement the Interceptor interface:
//
//	type AuthInterceptor struct{ token string }
//
//	func (i *AuthInterceptor) Order() int                 { return 400 }
//	func (i *AuthInterceptor) Init(config.Config) error   { return nil }
//	func (i *AuthInterceptor) Name() string               { return "AuthInterceptor" }
//	func (i *AuthInterceptor) Intercept(ctx context.Context, req *contracts.Request, next interceptors.Handler) (*contracts.Response, error) {
//		req.SetHeader("Authorization", "Bearer "+i.token)
//		return next.Handle(ctx, req)
//	}
package interceptors
