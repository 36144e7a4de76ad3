package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/glimte/courier-go/contracts"
)

const (
	TagHTTP    = "http"
	TagParams  = "params"
	TagHeaders = "headers"
)

var (
	// ErrNotDecorated is returned when a method carries no request metadata
	ErrNotDecorated = errors.New("method is not decorated")
	// ErrInvalidTag is returned for malformed tags
	ErrInvalidTag = errors.New("invalid method tag")
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

	verbs = map[string]bool{
		http.MethodGet: true, http.MethodHead: true, http.MethodPost: true,
		http.MethodPut: true, http.MethodPatch: true, http.MethodDelete: true,
		http.MethodOptions: true,
	}
)

type key struct {
	typ  reflect.Type
	name string
}

var cache sync.Map // key -> *contracts.MethodMetadata

// Register attaches metadata to a method of typ without struct tags.
// It replaces anything previously registered or cached for the pair.
func Register(typ reflect.Type, meta *contracts.MethodMetadata) error {
	typ = structType(typ)
	if typ == nil {
		return fmt.Errorf("%w: register requires a struct type", ErrInvalidTag)
	}
	if meta == nil || meta.Name == "" {
		return fmt.Errorf("%w: register requires a named method", ErrInvalidTag)
	}
	if err := validate(meta); err != nil {
		return err
	}
	cache.Store(key{typ, meta.Name}, meta)
	return nil
}

// Lookup returns the metadata for the named method of typ. Pointer types
// are dereferenced. Methods promoted from embedded structs are found the
// same way Go resolves selectors.
func Lookup(typ reflect.Type, name string) (*contracts.MethodMetadata, error) {
	typ = structType(typ)
	if typ == nil {
		return nil, fmt.Errorf("%w: %s is not a struct method", ErrNotDecorated, name)
	}

	k := key{typ, name}
	if v, ok := cache.Load(k); ok {
		return v.(*contracts.MethodMetadata), nil
	}

	field, ok := typ.FieldByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s does not exist", ErrNotDecorated, typ.Name(), name)
	}
	meta, err := Parse(field)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", typ.Name(), name, err)
	}

	v, _ := cache.LoadOrStore(k, meta)
	return v.(*contracts.MethodMetadata), nil
}

// Parse builds metadata from a struct field's tags
func Parse(field reflect.StructField) (*contracts.MethodMetadata, error) {
	route, ok := field.Tag.Lookup(TagHTTP)
	if !ok {
		return nil, ErrNotDecorated
	}
	if field.Type.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %s is %s, not a func", ErrInvalidTag, field.Name, field.Type.Kind())
	}

	verb, path, err := parseRoute(route)
	if err != nil {
		return nil, err
	}

	meta := &contracts.MethodMetadata{
		Name: field.Name,
		Verb: verb,
		Path: path,
	}

	args := field.Type.NumIn()
	if args > 0 && field.Type.In(0) == contextType {
		meta.HasContext = true
		args--
	}

	if raw, ok := field.Tag.Lookup(TagParams); ok {
		meta.Params, err = parseParams(raw)
		if err != nil {
			return nil, err
		}
	} else {
		for _, m := range placeholder.FindAllStringSubmatch(path, -1) {
			meta.Params = append(meta.Params, contracts.ParamBinding{Kind: contracts.ParamPath, Name: m[1]})
		}
	}

	if len(meta.Params) != args {
		return nil, fmt.Errorf("%w: %s binds %d params but takes %d arguments",
			ErrInvalidTag, field.Name, len(meta.Params), args)
	}

	if raw, ok := field.Tag.Lookup(TagHeaders); ok {
		meta.Headers, err = parseHeaders(raw)
		if err != nil {
			return nil, err
		}
	}

	if err := validate(meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func parseRoute(route string) (string, string, error) {
	parts := strings.Fields(route)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("%w: http tag %q must be \"VERB /path\"", ErrInvalidTag, route)
	}
	verb := strings.ToUpper(parts[0])
	if !verbs[verb] {
		return "", "", fmt.Errorf("%w: unsupported verb %q", ErrInvalidTag, parts[0])
	}
	return verb, parts[1], nil
}

func parseParams(raw string) ([]contracts.ParamBinding, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var bindings []contracts.ParamBinding
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		kind, name, _ := strings.Cut(entry, ":")
		b := contracts.ParamBinding{Kind: contracts.ParamKind(kind), Name: strings.TrimSpace(name)}

		switch b.Kind {
		case contracts.ParamPath, contracts.ParamQuery, contracts.ParamHeader:
			if b.Name == "" {
				return nil, fmt.Errorf("%w: %s binding needs a name", ErrInvalidTag, kind)
			}
		case contracts.ParamBody:
			if b.Name != "" {
				return nil, fmt.Errorf("%w: body binding takes no name", ErrInvalidTag)
			}
		default:
			return nil, fmt.Errorf("%w: unknown binding kind %q", ErrInvalidTag, kind)
		}
		bindings = append(bindings, b)
	}
	return bindings, nil
}

func parseHeaders(raw string) (map[string]string, error) {
	headers := make(map[string]string)
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		k, v, ok := strings.Cut(entry, ":")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("%w: header %q must be \"Name: value\"", ErrInvalidTag, entry)
		}
		headers[http.CanonicalHeaderKey(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return headers, nil
}

func validate(meta *contracts.MethodMetadata) error {
	if !verbs[meta.Verb] {
		return fmt.Errorf("%w: unsupported verb %q", ErrInvalidTag, meta.Verb)
	}

	bound := make(map[string]bool)
	bodies := 0
	for _, p := range meta.Params {
		switch p.Kind {
		case contracts.ParamPath:
			bound[p.Name] = true
		case contracts.ParamBody:
			bodies++
		}
	}
	if bodies > 1 {
		return fmt.Errorf("%w: %s binds more than one body", ErrInvalidTag, meta.Name)
	}

	for _, m := range placeholder.FindAllStringSubmatch(meta.Path, -1) {
		if !bound[m[1]] {
			return fmt.Errorf("%w: %s leaves path placeholder {%s} unbound", ErrInvalidTag, meta.Name, m[1])
		}
	}
	return nil
}

func structType(typ reflect.Type) reflect.Type {
	if typ == nil {
		return nil
	}
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil
	}
	return typ
}
