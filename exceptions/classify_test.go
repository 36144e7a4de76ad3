package exceptions

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/glimte/courier-go/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRequest(t *testing.T) *contracts.Request {
	t.Helper()
	req, err := contracts.NewRequest(context.Background(), "GET", "http://api.test/users/42", nil)
	require.NoError(t, err)
	return req
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		reason    error
		cancelled bool
		wantKind  Kind
	}{
		{
			name:     "connection refused code",
			reason:   &TransportError{Op: "dial", Code: CodeConnRefused, Err: errors.New("refused")},
			wantKind: KindConnect,
		},
		{
			name:     "timed out code",
			reason:   &TransportError{Op: "read", Code: CodeTimedOut, Err: errors.New("slow")},
			wantKind: KindTimeout,
		},
		{
			name:     "connection aborted code",
			reason:   &TransportError{Op: "read", Code: CodeConnAborted, Err: errors.New("aborted")},
			wantKind: KindTimeout,
		},
		{
			name:     "connection reset code",
			reason:   &TransportError{Op: "read", Code: CodeConnReset, Err: errors.New("reset")},
			wantKind: KindSocket,
		},
		{
			name:     "errno refused inside net.OpError",
			reason:   &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)},
			wantKind: KindConnect,
		},
		{
			name:     "errno reset inside net.OpError",
			reason:   &net.OpError{Op: "read", Net: "tcp", Err: os.NewSyscallError("read", syscall.ECONNRESET)},
			wantKind: KindSocket,
		},
		{
			name:     "deadline exceeded",
			reason:   fmt.Errorf("do: %w", context.DeadlineExceeded),
			wantKind: KindTimeout,
		},
		{
			name:      "no code and cancelled",
			reason:    errors.New("context canceled"),
			cancelled: true,
			wantKind:  KindCancel,
		},
		{
			name:     "no code and not cancelled",
			reason:   errors.New("unexpected EOF"),
			wantKind: KindIO,
		},
		{
			name:      "code wins over cancellation",
			reason:    &TransportError{Op: "read", Code: CodeConnReset, Err: errors.New("reset")},
			cancelled: true,
			wantKind:  KindSocket,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newTestRequest(t)
			if tt.cancelled {
				req.Cancel("stop")
			}

			exc := Classify(req, tt.reason)

			require.NotNil(t, exc)
			assert.Equal(t, tt.wantKind, exc.Kind)
			assert.Equal(t, req.ID, exc.RequestID)
			assert.Same(t, tt.reason, exc.Cause)
		})
	}
}

func TestClassifyEdgeCases(t *testing.T) {
	t.Run("Nil reason yields nil", func(t *testing.T) {
		assert.Nil(t, Classify(newTestRequest(t), nil))
	})

	t.Run("Structured exception passes through unchanged", func(t *testing.T) {
		original := &Exception{Kind: KindSocket, Message: "already classified"}
		wrapped := fmt.Errorf("interceptor: %w", original)

		assert.Same(t, original, Classify(newTestRequest(t), original))
		assert.Same(t, original, Classify(newTestRequest(t), wrapped))
	})

	t.Run("Generic fallback keeps the original message", func(t *testing.T) {
		exc := Classify(newTestRequest(t), errors.New("boom"))
		require.NotNil(t, exc)
		assert.Equal(t, KindIO, exc.Kind)
		assert.Equal(t, "boom", exc.Message)
	})

	t.Run("Cancellation carries the cancel message", func(t *testing.T) {
		req := newTestRequest(t)
		req.Cancel("user navigated away")

		exc := Classify(req, context.Canceled)
		require.NotNil(t, exc)
		assert.Equal(t, KindCancel, exc.Kind)
		assert.Contains(t, exc.Message, "user navigated away")
	})

	t.Run("Nil request never classifies as cancel", func(t *testing.T) {
		exc := Classify(nil, errors.New("boom"))
		require.NotNil(t, exc)
		assert.Equal(t, KindIO, exc.Kind)
		assert.Empty(t, exc.RequestID)
	})
}

func TestRegisterRule(t *testing.T) {
	t.Cleanup(ResetRules)

	errQuota := errors.New("quota exceeded")
	RegisterRule(func(req *contracts.Request, reason error) *Exception {
		if errors.Is(reason, errQuota) {
			return &Exception{Kind: KindConnect, Message: "quota", Cause: reason}
		}
		return nil
	})
	RegisterRule(nil)

	t.Run("Registered rule runs before the fallback", func(t *testing.T) {
		exc := Classify(newTestRequest(t), fmt.Errorf("call: %w", errQuota))
		require.NotNil(t, exc)
		assert.Equal(t, KindConnect, exc.Kind)
	})

	t.Run("Registered rule runs after the code rules", func(t *testing.T) {
		reason := &TransportError{Code: CodeConnReset, Err: errQuota}
		exc := Classify(newTestRequest(t), reason)
		require.NotNil(t, exc)
		assert.Equal(t, KindSocket, exc.Kind)
	})

	t.Run("Reset restores the default chain", func(t *testing.T) {
		ResetRules()
		exc := Classify(newTestRequest(t), errQuota)
		require.NotNil(t, exc)
		assert.Equal(t, KindIO, exc.Kind)
	})
}
