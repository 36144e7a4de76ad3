// Package request builds transport-ready requests from method metadata
// and call arguments.
package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"reflect"
	"strings"

	"github.com/glimte/courier-go/contracts"
)

// ErrArguments is wrapped by every argument binding failure
var ErrArguments = errors.New("cannot bind arguments")

// Builder turns metadata and positional arguments into a Request
type Builder interface {
	Build(ctx context.Context, meta *contracts.MethodMetadata, args []any) (*contracts.Request, error)
}

// BuilderFunc adapts a function to Builder
type BuilderFunc func(ctx context.Context, meta *contracts.MethodMetadata, args []any) (*contracts.Request, error)

// Build implements Builder
func (f BuilderFunc) Build(ctx context.Context, meta *contracts.MethodMetadata, args []any) (*contracts.Request, error) {
	return f(ctx, meta, args)
}

// DefaultBuilder resolves paths against a base URL and encodes bodies as JSON
type DefaultBuilder struct {
	baseURL string
	headers map[string]string
}

// NewDefaultBuilder creates a builder. headers are sent with every request
// and may be overridden by a method's static headers or header params.
func NewDefaultBuilder(baseURL string, headers map[string]string) *DefaultBuilder {
	return &DefaultBuilder{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		headers: headers,
	}
}

// Build implements Builder
func (b *DefaultBuilder) Build(ctx context.Context, meta *contracts.MethodMetadata, args []any) (*contracts.Request, error) {
	if meta == nil {
		return nil, fmt.Errorf("%w: nil metadata", ErrArguments)
	}
	if len(args) != len(meta.Params) {
		return nil, fmt.Errorf("%w: %s expects %d arguments, got %d", ErrArguments, meta.Name, len(meta.Params), len(args))
	}

	path := meta.Path
	query := url.Values{}
	headers := make(map[string]string)
	var body []byte
	var contentType string

	for i, p := range meta.Params {
		arg := args[i]
		switch p.Kind {
		case contracts.ParamPath:
			path = strings.ReplaceAll(path, "{"+p.Name+"}", url.PathEscape(format(arg)))
		case contracts.ParamQuery:
			addQuery(query, p.Name, arg)
		case contracts.ParamHeader:
			if !isNil(arg) {
				headers[p.Name] = format(arg)
			}
		case contracts.ParamBody:
			var err error
			body, contentType, err = encodeBody(arg)
			if err != nil {
				return nil, fmt.Errorf("%w: %s body: %v", ErrArguments, meta.Name, err)
			}
		}
	}

	rawURL := b.resolve(path)
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL += sep + query.Encode()
	}

	req, err := contracts.NewRequest(ctx, meta.Verb, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArguments, err)
	}
	req.Metadata = meta

	for k, v := range b.headers {
		req.SetHeader(k, v)
	}
	for k, v := range meta.Headers {
		req.SetHeader(k, v)
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.SetHeader("Content-Type", contentType)
	}
	for k, v := range headers {
		req.SetHeader(k, v)
	}

	return req, nil
}

func (b *DefaultBuilder) resolve(path string) string {
	if strings.Contains(path, "://") || b.baseURL == "" {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return b.baseURL + path
}

func addQuery(q url.Values, name string, arg any) {
	if isNil(arg) {
		return
	}
	v := reflect.ValueOf(arg)
	if (v.Kind() == reflect.Slice || v.Kind() == reflect.Array) && v.Type().Elem().Kind() != reflect.Uint8 {
		for i := 0; i < v.Len(); i++ {
			q.Add(name, format(v.Index(i).Interface()))
		}
		return
	}
	q.Add(name, format(arg))
}

func encodeBody(arg any) ([]byte, string, error) {
	switch v := arg.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return v, "application/octet-stream", nil
	case string:
		return []byte(v), "text/plain; charset=utf-8", nil
	case io.Reader:
		data, err := io.ReadAll(v)
		return data, "application/octet-stream", err
	}
	if isNil(arg) {
		return nil, "", nil
	}
	data, err := json.Marshal(arg)
	return data, "application/json", err
}

func format(arg any) string {
	switch v := arg.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	rv := reflect.ValueOf(arg)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		return format(rv.Elem().Interface())
	}
	return fmt.Sprint(arg)
}

func isNil(arg any) bool {
	if arg == nil {
		return true
	}
	v := reflect.ValueOf(arg)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
