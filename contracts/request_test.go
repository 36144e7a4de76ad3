package contracts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	t.Run("Populates identity and url", func(t *testing.T) {
		req, err := NewRequest(context.Background(), "GET", "http://api.test/users/42?x=1", nil)
		require.NoError(t, err)

		assert.NotEmpty(t, req.ID)
		assert.Equal(t, "GET", req.Method)
		assert.Equal(t, "/users/42", req.URL.Path)
		assert.Equal(t, "1", req.URL.Query().Get("x"))
		assert.NotNil(t, req.Header)
		assert.False(t, req.CreatedAt.IsZero())
		assert.Equal(t, "GET api.test/users/42", req.Route())
	})

	t.Run("Rejects malformed url", func(t *testing.T) {
		_, err := NewRequest(context.Background(), "GET", "http://[::1", nil)
		assert.Error(t, err)
	})

	t.Run("Nil parent falls back to background", func(t *testing.T) {
		req, err := NewRequest(nil, "GET", "http://api.test", nil)
		require.NoError(t, err)
		assert.NoError(t, req.Context().Err())
	})
}

func TestRequestCancel(t *testing.T) {
	t.Run("Cancel marks the request and sets the cause", func(t *testing.T) {
		req, err := NewRequest(context.Background(), "GET", "http://api.test", nil)
		require.NoError(t, err)

		assert.False(t, req.IsCancel())
		assert.Nil(t, req.CancelCause())

		req.Cancel("stop")

		assert.True(t, req.IsCancel())
		assert.Error(t, req.Context().Err())
		assert.True(t, errors.Is(req.CancelCause(), ErrCancelled))
		assert.True(t, errors.Is(req.CancelCause(), context.Canceled))
		assert.Contains(t, req.CancelCause().Error(), "stop")
	})

	t.Run("Only the first cancel wins", func(t *testing.T) {
		req, err := NewRequest(context.Background(), "GET", "http://api.test", nil)
		require.NoError(t, err)

		req.Cancel("first")
		req.Cancel("second")

		assert.Contains(t, req.CancelCause().Error(), "first")
		assert.NotContains(t, req.CancelCause().Error(), "second")
	})

	t.Run("Release is not a cancellation", func(t *testing.T) {
		req, err := NewRequest(context.Background(), "GET", "http://api.test", nil)
		require.NoError(t, err)

		req.Release()

		assert.Error(t, req.Context().Err())
		assert.False(t, req.IsCancel())
		assert.Nil(t, req.CancelCause())
	})

	t.Run("Parent cancellation does not mark the request", func(t *testing.T) {
		parent, cancel := context.WithCancel(context.Background())
		req, err := NewRequest(parent, "GET", "http://api.test", nil)
		require.NoError(t, err)

		cancel()

		assert.Error(t, req.Context().Err())
		assert.False(t, req.IsCancel())
	})
}

func TestResponseDecode(t *testing.T) {
	t.Run("Decodes json body", func(t *testing.T) {
		resp := &Response{StatusCode: 200, Body: []byte(`{"id":42,"name":"ada"}`)}
		var user struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		}
		require.NoError(t, resp.Decode(&user))
		assert.Equal(t, 42, user.ID)
		assert.Equal(t, "ada", user.Name)
		assert.True(t, resp.IsSuccess())
	})

	t.Run("Empty body is an error", func(t *testing.T) {
		resp := &Response{StatusCode: 204}
		var v map[string]any
		assert.Error(t, resp.Decode(&v))
	})

	t.Run("Invalid json is an error", func(t *testing.T) {
		resp := &Response{StatusCode: 500, Body: []byte("oops")}
		var v map[string]any
		assert.Error(t, resp.Decode(&v))
		assert.False(t, resp.IsSuccess())
	})
}

func TestMethodMetadata(t *testing.T) {
	meta := &MethodMetadata{
		Name: "UpdateUser",
		Verb: "PUT",
		Path: "/users/{id}",
		Params: []ParamBinding{
			{Kind: ParamPath, Name: "id"},
			{Kind: ParamBody},
		},
	}

	assert.Equal(t, "PUT /users/{id}", meta.Route())
	assert.Equal(t, 1, meta.BodyIndex())
	assert.Equal(t, "path:id", meta.Params[0].String())
	assert.Equal(t, "body", meta.Params[1].String())

	var nilMeta *MethodMetadata
	assert.Equal(t, "", nilMeta.Route())
	assert.Equal(t, -1, (&MethodMetadata{}).BodyIndex())
}
