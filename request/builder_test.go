package request

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/glimte/courier-go/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userID int

func (u userID) String() string { return fmt.Sprintf("u-%03d", int(u)) }

func TestDefaultBuilder(t *testing.T) {
	ctx := context.Background()
	b := NewDefaultBuilder("http://api.test/v1/", map[string]string{"User-Agent": "courier"})

	t.Run("substitutes path params", func(t *testing.T) {
		meta := &contracts.MethodMetadata{
			Name:   "GetUser",
			Verb:   "GET",
			Path:   "/users/{id}",
			Params: []contracts.ParamBinding{{Kind: contracts.ParamPath, Name: "id"}},
		}

		req, err := b.Build(ctx, meta, []any{42})
		require.NoError(t, err)

		assert.Equal(t, "GET", req.Method)
		assert.Equal(t, "http://api.test/v1/users/42", req.URL.String())
		assert.Equal(t, "courier", req.Header.Get("User-Agent"))
		assert.Same(t, meta, req.Metadata)
		assert.Nil(t, req.Body)
	})

	t.Run("escapes path values and uses Stringer", func(t *testing.T) {
		meta := &contracts.MethodMetadata{
			Verb: "GET",
			Path: "/files/{name}/{owner}",
			Params: []contracts.ParamBinding{
				{Kind: contracts.ParamPath, Name: "name"},
				{Kind: contracts.ParamPath, Name: "owner"},
			},
		}

		req, err := b.Build(ctx, meta, []any{"a b/c", userID(42)})
		require.NoError(t, err)
		assert.Equal(t, "/v1/files/a%20b%2Fc/u-042", req.URL.EscapedPath())
	})

	t.Run("encodes query params including slices and skips nil", func(t *testing.T) {
		var page *int
		meta := &contracts.MethodMetadata{
			Verb: "GET",
			Path: "/users?active=true",
			Params: []contracts.ParamBinding{
				{Kind: contracts.ParamQuery, Name: "tag"},
				{Kind: contracts.ParamQuery, Name: "page"},
			},
		}

		req, err := b.Build(ctx, meta, []any{[]string{"a", "b"}, page})
		require.NoError(t, err)

		q := req.URL.Query()
		assert.Equal(t, []string{"a", "b"}, q["tag"])
		assert.Equal(t, "true", q.Get("active"))
		assert.False(t, q.Has("page"))
	})

	t.Run("encodes json body and header params", func(t *testing.T) {
		meta := &contracts.MethodMetadata{
			Verb:    "POST",
			Path:    "/users",
			Headers: map[string]string{"User-Agent": "override"},
			Params: []contracts.ParamBinding{
				{Kind: contracts.ParamHeader, Name: "X-Trace"},
				{Kind: contracts.ParamBody},
			},
		}

		req, err := b.Build(ctx, meta, []any{"t-1", map[string]string{"name": "ada"}})
		require.NoError(t, err)

		assert.JSONEq(t, `{"name":"ada"}`, string(req.Body))
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		assert.Equal(t, "t-1", req.Header.Get("X-Trace"))
		assert.Equal(t, "override", req.Header.Get("User-Agent"))
	})

	t.Run("raw bodies keep their bytes", func(t *testing.T) {
		meta := &contracts.MethodMetadata{
			Verb:   "PUT",
			Path:   "/blob",
			Params: []contracts.ParamBinding{{Kind: contracts.ParamBody}},
		}

		req, err := b.Build(ctx, meta, []any{strings.NewReader("raw")})
		require.NoError(t, err)
		assert.Equal(t, "raw", string(req.Body))
		assert.Equal(t, "application/octet-stream", req.Header.Get("Content-Type"))

		req, err = b.Build(ctx, meta, []any{"text"})
		require.NoError(t, err)
		assert.Equal(t, "text", string(req.Body))
		assert.Contains(t, req.Header.Get("Content-Type"), "text/plain")
	})

	t.Run("absolute method paths ignore the base url", func(t *testing.T) {
		meta := &contracts.MethodMetadata{Verb: "GET", Path: "https://other.test/ping"}
		req, err := b.Build(ctx, meta, nil)
		require.NoError(t, err)
		assert.Equal(t, "https://other.test/ping", req.URL.String())
	})

	t.Run("argument count mismatch", func(t *testing.T) {
		meta := &contracts.MethodMetadata{Verb: "GET", Path: "/x"}
		_, err := b.Build(ctx, meta, []any{1})
		assert.ErrorIs(t, err, ErrArguments)

		_, err = b.Build(ctx, nil, nil)
		assert.ErrorIs(t, err, ErrArguments)
	})

	t.Run("unencodable body", func(t *testing.T) {
		meta := &contracts.MethodMetadata{
			Verb:   "POST",
			Path:   "/x",
			Params: []contracts.ParamBinding{{Kind: contracts.ParamBody}},
		}
		_, err := b.Build(ctx, meta, []any{make(chan int)})
		assert.ErrorIs(t, err, ErrArguments)
	})

	t.Run("requests inherit the caller context", func(t *testing.T) {
		parent, cancel := context.WithCancel(ctx)
		meta := &contracts.MethodMetadata{Verb: "GET", Path: "/x"}
		req, err := b.Build(parent, meta, nil)
		require.NoError(t, err)

		cancel()
		assert.True(t, errors.Is(req.Context().Err(), context.Canceled))
	})
}

func TestBuilderFunc(t *testing.T) {
	called := false
	var b Builder = BuilderFunc(func(ctx context.Context, meta *contracts.MethodMetadata, args []any) (*contracts.Request, error) {
		called = true
		return contracts.NewRequest(ctx, meta.Verb, "http://x.test"+meta.Path, nil)
	})

	req, err := b.Build(context.Background(), &contracts.MethodMetadata{Verb: "GET", Path: "/y"}, nil)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "/y", req.URL.Path)
}
