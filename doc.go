// Package courier generates HTTP clients from tagged service structs.
//
// A service is a struct whose exported func fields describe requests:
//
//	type UserAPI struct {
//		GetUser func(ctx context.Context, id int) *courier.Call `http:"GET /users/{id}"`
//		Search  func(q string) *courier.Call                    `http:"GET /users" params:"query:q"`
//	}
//
// Build a client and create an instance; calling a field sends the request
// through the interceptor chain and returns a *Call that settles once:
//
//	client, err := courier.NewBuilder().SetConfig(cfg).Build()
//	api, err := courier.Create[UserAPI](client)
//	resp, err := api.GetUser(ctx, 42).Await(ctx)
//
// Fields of embedded structs are part of the service; a field of the outer
// struct shadows one of the same name further down.
//
// Failed calls settle with the raw transport error. An ErrorHandler set on
// the builder receives the same error together with its classification
// from the exceptions package before the call settles.
//
// Interceptors registered with Use apply to every client built afterwards.
// Registration is not meant to race with Build: register first.
package courier
