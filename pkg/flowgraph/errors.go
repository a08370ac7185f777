package flowgraph

import (
	"errors"
	"fmt"
)

// Compile errors. Compile joins every problem it finds, so test with errors.Is.
var (
	ErrNoEntryPoint  = errors.New("entry point not set")
	ErrEntryNotFound = errors.New("entry point node not found")
	ErrNodeNotFound  = errors.New("node not found")
	ErrMultipleEdges = errors.New("multiple outgoing edges")
	ErrNoPathToEnd   = errors.New("no path to END from entry")
)

// Run errors.
var (
	// ErrHalt is wrapped by node errors that end a run on purpose, such as a
	// user typing exit. Run still returns the error, but it is logged, traced
	// and counted as a successful run.
	ErrHalt = errors.New("run halted")

	ErrMaxIterations          = errors.New("exceeded maximum iterations")
	ErrNilContext             = errors.New("context cannot be nil")
	ErrInvalidRouterResult    = errors.New("router returned empty string")
	ErrRouterTargetNotFound   = errors.New("router returned unknown node")
	ErrRouterTargetUndeclared = errors.New("router returned undeclared target")
)

// Checkpoint and resume errors.
var (
	ErrRunIDRequired             = errors.New("run ID required for checkpointing")
	ErrDeserializeState          = errors.New("failed to deserialize state")
	ErrNoCheckpoints             = errors.New("no checkpoints found for run")
	ErrInvalidResumeNode         = errors.New("invalid resume node")
	ErrCheckpointVersionMismatch = errors.New("checkpoint version mismatch")
)

// IsHalt reports whether err ends a run on purpose.
func IsHalt(err error) bool {
	return errors.Is(err, ErrHalt)
}

// NodeError is returned when a node function fails. Op is "execute" for
// the node's own error, "lookup" or "routing" for engine faults around it.
type NodeError struct {
	NodeID string
	Op     string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %s: %v", e.NodeID, e.Op, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// PanicError is a recovered node panic with the stack at the panic site.
type PanicError struct {
	NodeID string
	Value  any
	Stack  string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.NodeID, e.Value)
}

// CancellationError reports a context cancelled between nodes. NodeID is
// the node that would have run next and State the last completed state
// (assert it to the graph's state type).
type CancellationError struct {
	NodeID string
	State  any
	Cause  error
}

func (e *CancellationError) Error() string {
	return fmt.Sprintf("cancelled before node %s: %v", e.NodeID, e.Cause)
}

func (e *CancellationError) Unwrap() error { return e.Cause }

// RouterError reports a router result the graph cannot follow.
type RouterError struct {
	FromNode string
	Returned string
	Err      error
}

func (e *RouterError) Error() string {
	return fmt.Sprintf("router from %s returned %q: %v", e.FromNode, e.Returned, e.Err)
}

func (e *RouterError) Unwrap() error { return e.Err }

// MaxIterationsError stops a run that executed more nodes than allowed.
// It matches ErrMaxIterations.
type MaxIterationsError struct {
	Max        int
	LastNodeID string
	State      any
}

func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("exceeded maximum iterations (%d) at node %s", e.Max, e.LastNodeID)
}

func (e *MaxIterationsError) Unwrap() error { return ErrMaxIterations }

// CheckpointError is returned for a failed save when WithCheckpointFailureFatal
// is set. Op is "serialize", "marshal" or "save".
type CheckpointError struct {
	NodeID string
	Op     string
	Err    error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s at node %s: %v", e.Op, e.NodeID, e.Err)
}

func (e *CheckpointError) Unwrap() error { return e.Err }
