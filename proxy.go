package courier

import (
	"context"
	"fmt"
	"reflect"

	"github.com/glimte/courier-go/metadata"
)

var callType = reflect.TypeOf((*Call)(nil))

// serviceMethod is one entry of the flattened method table
type serviceMethod struct {
	name  string
	index []int
	typ   reflect.Type
}

// proxyHandler turns calls on the func fields of one service struct type
// into requests. One handler exists per type and client.
type proxyHandler struct {
	client  *Client
	typ     reflect.Type
	methods []serviceMethod
}

func newProxyHandler(c *Client, typ reflect.Type) (*proxyHandler, error) {
	h := &proxyHandler{client: c, typ: typ}
	if err := h.scan(); err != nil {
		return nil, err
	}
	return h, nil
}

// scan flattens the exported func fields of the type and of its embedded
// structs, breadth first. A name found at a shallower depth shadows deeper
// ones, the same way Go resolves selectors. Two fields sharing a name at
// the same depth are ambiguous and rejected. Embedded pointers are skipped.
func (h *proxyHandler) scan() error {
	type level struct {
		typ   reflect.Type
		index []int
	}

	seen := make(map[string]bool)
	visited := map[reflect.Type]bool{h.typ: true}
	depth := []level{{typ: h.typ}}

	for len(depth) > 0 {
		var deeper []level
		found := make(map[string]serviceMethod)

		for _, cur := range depth {
			for i := 0; i < cur.typ.NumField(); i++ {
				f := cur.typ.Field(i)
				index := append(append([]int(nil), cur.index...), i)

				if f.Anonymous && f.Type.Kind() == reflect.Struct {
					if !visited[f.Type] {
						visited[f.Type] = true
						deeper = append(deeper, level{typ: f.Type, index: index})
					}
					continue
				}
				if !f.IsExported() || f.Type.Kind() != reflect.Func || seen[f.Name] {
					continue
				}
				if _, dup := found[f.Name]; dup {
					return usageError(ErrType, "create",
						fmt.Errorf("%s.%s is ambiguous between embedded structs", h.typ.Name(), f.Name))
				}
				if f.Type.NumOut() != 1 || f.Type.Out(0) != callType {
					return usageError(ErrType, "create",
						fmt.Errorf("%s.%s must return *courier.Call, has type %s", h.typ.Name(), f.Name, f.Type))
				}
				found[f.Name] = serviceMethod{name: f.Name, index: index, typ: f.Type}
				h.methods = append(h.methods, found[f.Name])
			}
		}

		for name := range found {
			seen[name] = true
		}
		depth = deeper
	}
	return nil
}

// construct returns a new *T whose service methods dispatch through apply
func (h *proxyHandler) construct() any {
	v := reflect.New(h.typ)
	target := v.Interface()

	for _, m := range h.methods {
		name := m.name
		fn := reflect.MakeFunc(m.typ, func(in []reflect.Value) []reflect.Value {
			args := make([]any, len(in))
			for i, a := range in {
				args[i] = a.Interface()
			}
			return []reflect.Value{reflect.ValueOf(h.apply(name, target, args))}
		})
		v.Elem().FieldByIndex(m.index).Set(fn)
	}
	return target
}

// apply dispatches one call. Misuse panics with a *UsageError before any
// request is built. Proxies made by construct always pass their own
// instance, so the receiver check only guards direct callers of apply.
func (h *proxyHandler) apply(name string, target any, args []any) *Call {
	if reflect.TypeOf(target) != reflect.PointerTo(h.typ) {
		panic(usageError(ErrIllegalState, "apply",
			fmt.Errorf("%s called on %T, handler is bound to *%s", name, target, h.typ.Name())))
	}

	meta, err := metadata.Lookup(h.typ, name)
	if err != nil {
		panic(usageError(ErrIllegalArgument, "apply", err))
	}

	ctx := context.Background()
	if meta.HasContext && len(args) > 0 {
		if c, ok := args[0].(context.Context); ok && c != nil {
			ctx = c
		}
		args = args[1:]
	}

	return h.client.submit(ctx, meta, args)
}
