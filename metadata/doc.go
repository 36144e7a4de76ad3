// Package metadata turns tagged func fields of a service struct into
// contracts.MethodMetadata.
//
// A service method is an exported func-typed field carrying an http tag:
//
//	type UserAPI struct {
//		GetUser func(ctx context.Context, id int) *courier.Call `http:"GET /users/{id}" params:"path:id"`
//		Search  func(q string, page int) *courier.Call          `http:"GET /users" params:"query:q,query:page"`
//		Create  func(u User) *courier.Call                      `http:"POST /users" params:"body" headers:"X-Source: cli"`
//	}
//
// The params tag binds the positional arguments (after an optional leading
// context.Context) in order. Each entry is kind:name with kind one of path,
// query, header or body; body takes no name. When the params tag is absent,
// the path placeholders are bound in order of appearance.
//
// Metadata can also be attached without tags through Register. Lookups are
// cached per (type, method) pair; registrations must happen before the
// first lookup of the same pair.
package metadata
