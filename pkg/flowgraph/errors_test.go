package flowgraph

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "node",
			err:  &NodeError{NodeID: "model", Op: "execute", Err: errors.New("rate limited")},
			want: "node model: execute: rate limited",
		},
		{
			name: "panic",
			err:  &PanicError{NodeID: "tools", Value: "nil reader"},
			want: "node tools panicked: nil reader",
		},
		{
			name: "cancellation",
			err:  &CancellationError{NodeID: "model", Cause: context.Canceled},
			want: "cancelled before node model: context canceled",
		},
		{
			name: "router",
			err:  &RouterError{FromNode: "model", Returned: "ghost", Err: ErrRouterTargetNotFound},
			want: `router from model returned "ghost": router returned unknown node`,
		},
		{
			name: "max iterations",
			err:  &MaxIterationsError{Max: 10, LastNodeID: "tools"},
			want: "exceeded maximum iterations (10) at node tools",
		},
		{
			name: "checkpoint",
			err:  &CheckpointError{NodeID: "model", Op: "save", Err: errors.New("disk full")},
			want: "checkpoint save at node model: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorUnwrapping(t *testing.T) {
	cause := errors.New("cause")

	assert.ErrorIs(t, &NodeError{Err: cause}, cause)
	assert.ErrorIs(t, &RouterError{Err: cause}, cause)
	assert.ErrorIs(t, &CheckpointError{Err: cause}, cause)
	assert.ErrorIs(t, &CancellationError{Cause: context.DeadlineExceeded}, context.DeadlineExceeded)
	assert.ErrorIs(t, &MaxIterationsError{Max: 1}, ErrMaxIterations)
}

func TestIsHalt(t *testing.T) {
	exit := fmt.Errorf("user exited: %w", ErrHalt)

	assert.True(t, IsHalt(ErrHalt))
	assert.True(t, IsHalt(exit))
	assert.True(t, IsHalt(&NodeError{NodeID: "tools", Op: "execute", Err: exit}))
	assert.True(t, IsHalt(errors.Join(exit, errors.New("close input"))))

	assert.False(t, IsHalt(nil))
	assert.False(t, IsHalt(errors.New("run halted")))
	assert.False(t, IsHalt(&NodeError{Err: context.Canceled}))
}
