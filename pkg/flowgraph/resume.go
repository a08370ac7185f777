package flowgraph

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/randalmurphal/flowchat/pkg/flowgraph/checkpoint"
)

// resumeConfig holds options for Resume.
type resumeConfig struct {
	replayNode    bool
	validateState func(any) error
	runOpts       []RunOption
}

// ResumeOption configures Resume.
type ResumeOption func(*resumeConfig)

// WithReplayNode re-executes the checkpointed node instead of its successor.
func WithReplayNode() ResumeOption {
	return func(c *resumeConfig) {
		c.replayNode = true
	}
}

// WithStateValidation checks the restored state before execution continues.
// fn receives the state as S boxed in an any.
func WithStateValidation(fn func(any) error) ResumeOption {
	return func(c *resumeConfig) {
		c.validateState = fn
	}
}

// WithResumeRunOptions applies run options (logging, iteration limits, tracing)
// to the resumed run. Checkpointing to the same store and run ID is always on.
func WithResumeRunOptions(opts ...RunOption) ResumeOption {
	return func(c *resumeConfig) {
		c.runOpts = append(c.runOpts, opts...)
	}
}

// Resume continues execution from the latest checkpoint of a run.
//
// Example:
//
//	// A previous session checkpointed after "model"; continue at "tools".
//	result, err := compiled.Resume(ctx, store, "run-123")
func (cg *CompiledGraph[S]) Resume(ctx Context, store checkpoint.Store, runID string, opts ...ResumeOption) (S, error) {
	var zero S
	if ctx == nil {
		return zero, ErrNilContext
	}

	cfg := resumeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	cp, err := checkpoint.Latest(store, runID)
	switch {
	case errors.Is(err, checkpoint.ErrNotFound):
		return zero, fmt.Errorf("%w: %s", ErrNoCheckpoints, runID)
	case errors.Is(err, checkpoint.ErrCorrupt):
		return zero, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	case err != nil:
		return zero, fmt.Errorf("load checkpoint: %w", err)
	}
	if cp.Version != checkpoint.Version {
		return zero, fmt.Errorf("%w: got %d, expected %d",
			ErrCheckpointVersionMismatch, cp.Version, checkpoint.Version)
	}

	var state S
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}

	if cfg.validateState != nil {
		if err := cfg.validateState(state); err != nil {
			return state, fmt.Errorf("state validation failed: %w", err)
		}
	}

	startNode := cp.NextNode
	if cfg.replayNode {
		startNode = cp.NodeID
	}
	if startNode != END && !cg.HasNode(startNode) {
		return zero, fmt.Errorf("%w: %s", ErrInvalidResumeNode, startNode)
	}

	runCfg := defaultRunConfig()
	for _, opt := range cfg.runOpts {
		opt(&runCfg)
	}
	runCfg.checkpointStore = store
	runCfg.runID = runID
	runCfg.sequence = cp.Sequence

	return cg.execute(ctx, state, startNode, &runCfg)
}
