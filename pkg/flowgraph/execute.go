package flowgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/randalmurphal/flowchat/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/flowchat/pkg/flowgraph/observability"
	"go.opentelemetry.io/otel/trace"
)

// Run executes the graph with the given initial state.
// Returns the final state and any error encountered.
//
// On success, returns the state after the last node executed before END.
// On error, returns the state at the point of failure. A node error that
// wraps ErrHalt is returned as a *NodeError like any other, but is logged
// as a halt and counted as a successful run.
//
// Execution flow:
//  1. Start at the entry point node
//  2. Check for cancellation
//  3. Execute the current node
//  4. Determine the next node (via conditional or simple edge)
//  5. Checkpoint, if enabled
//  6. Repeat until END is reached or an error occurs
func (cg *CompiledGraph[S]) Run(ctx Context, state S, opts ...RunOption) (S, error) {
	if ctx == nil {
		return state, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.checkpointStore != nil && cfg.runID == "" {
		return state, ErrRunIDRequired
	}

	return cg.execute(ctx, state, cg.entryPoint, &cfg)
}

// execute wraps the node loop with run-level logging, metrics and tracing.
func (cg *CompiledGraph[S]) execute(ctx Context, state S, startNode string, cfg *runConfig) (result S, runErr error) {
	runID := cfg.runID
	if runID == "" {
		runID = ctx.RunID()
	}

	startTime := time.Now()
	observability.LogRunStart(cfg.logger, runID)

	var tracingCtx context.Context = ctx
	if cfg.tracingEnabled {
		var runSpan trace.Span
		tracingCtx, runSpan = cfg.spans.StartRunSpan(ctx, "flowgraph", runID)
		defer func() {
			if IsHalt(runErr) {
				cfg.spans.EndSpanWithError(runSpan, nil)
				return
			}
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	var nodeCount int
	result, nodeCount, runErr = cg.loop(tracingCtx, ctx, state, startNode, cfg)

	duration := time.Since(startTime)
	durationMs := float64(duration.Milliseconds())
	halted := IsHalt(runErr)

	cfg.metrics.RecordGraphRun(ctx, runErr == nil || halted, duration)

	switch {
	case halted:
		observability.LogRunHalted(cfg.logger, runID, durationMs, nodeCount, lastNodeOf(runErr))
	case runErr != nil:
		observability.LogRunError(cfg.logger, runID, runErr, durationMs, lastNodeOf(runErr))
	default:
		observability.LogRunComplete(cfg.logger, runID, durationMs, nodeCount)
	}

	return result, runErr
}

// lastNodeOf extracts the node an execution error is attributed to.
func lastNodeOf(err error) string {
	var (
		nodeErr   *NodeError
		panicErr  *PanicError
		maxErr    *MaxIterationsError
		cancelErr *CancellationError
		routeErr  *RouterError
	)
	switch {
	case errors.As(err, &nodeErr):
		return nodeErr.NodeID
	case errors.As(err, &panicErr):
		return panicErr.NodeID
	case errors.As(err, &maxErr):
		return maxErr.LastNodeID
	case errors.As(err, &cancelErr):
		return cancelErr.NodeID
	case errors.As(err, &routeErr):
		return routeErr.FromNode
	}
	return ""
}

// loop is the executor proper: one state value threaded through node calls.
// tracingCtx carries span context; fgCtx is the flowgraph Context.
// Returns the final state, executed node count, and any error.
func (cg *CompiledGraph[S]) loop(tracingCtx context.Context, fgCtx Context, state S, startNode string, cfg *runConfig) (S, int, error) {
	current := startNode
	prevNode := ""
	iterations := 0
	nodeCount := 0

	for current != END {
		iterations++
		if cfg.maxIterations > 0 && iterations > cfg.maxIterations {
			return state, nodeCount, &MaxIterationsError{
				Max:        cfg.maxIterations,
				LastNodeID: current,
				State:      state,
			}
		}

		select {
		case <-fgCtx.Done():
			return state, nodeCount, &CancellationError{
				NodeID: current,
				State:  state,
				Cause:  fgCtx.Err(),
			}
		default:
		}

		observability.LogNodeStart(cfg.logger, current)

		nodeTracingCtx := tracingCtx
		var nodeSpan trace.Span
		if cfg.tracingEnabled {
			nodeTracingCtx, nodeSpan = cfg.spans.StartNodeSpan(tracingCtx, current)
		}

		nodeStart := time.Now()
		next, nodeErr := cg.executeNode(nodeTracingCtx, fgCtx, current, state)
		nodeDuration := time.Since(nodeStart)
		halted := IsHalt(nodeErr)

		if halted {
			cfg.metrics.RecordNodeExecution(nodeTracingCtx, current, nodeDuration, nil)
		} else {
			cfg.metrics.RecordNodeExecution(nodeTracingCtx, current, nodeDuration, nodeErr)
		}

		if cfg.tracingEnabled {
			if halted {
				cfg.spans.AddSpanEvent(nodeTracingCtx, "flowgraph.halt")
				cfg.spans.EndSpanWithError(nodeSpan, nil)
			} else {
				cfg.spans.EndSpanWithError(nodeSpan, nodeErr)
			}
		}

		if nodeErr != nil {
			if halted {
				observability.LogNodeHalt(cfg.logger, current, nodeErr)
			} else {
				observability.LogNodeError(cfg.logger, current, nodeErr)
			}
			return state, nodeCount, nodeErr
		}
		state = next
		observability.LogNodeComplete(cfg.logger, current, float64(nodeDuration.Milliseconds()))
		nodeCount++

		target, err := cg.nextNode(fgCtx, state, current)
		if err != nil {
			return state, nodeCount, err
		}

		if cfg.checkpointStore != nil {
			if err := cg.saveCheckpoint(fgCtx, cfg, current, prevNode, state, target); err != nil {
				return state, nodeCount, err
			}
		}

		prevNode = current
		current = target
	}

	return state, nodeCount, nil
}

// saveCheckpoint persists the state produced by nodeID.
// Failures are logged and skipped unless checkpointFailureFatal is set.
func (cg *CompiledGraph[S]) saveCheckpoint(ctx Context, cfg *runConfig, nodeID, prevNodeID string, state S, nextNode string) error {
	fail := func(op string, err error) error {
		if cfg.checkpointFailureFatal {
			return &CheckpointError{NodeID: nodeID, Op: op, Err: err}
		}
		observability.LogCheckpointError(cfg.logger, nodeID, op, err)
		return nil
	}

	stateBytes, err := json.Marshal(state)
	if err != nil {
		return fail("serialize", err)
	}

	cfg.sequence++
	cp := checkpoint.New(cfg.runID, nodeID, cfg.sequence, stateBytes, nextNode).
		WithPrevNode(prevNodeID).
		WithAttempt(ctx.Attempt())

	data, err := cp.Marshal()
	if err != nil {
		return fail("marshal", err)
	}

	if err := cfg.checkpointStore.Save(cfg.runID, nodeID, data); err != nil {
		return fail("save", err)
	}

	observability.LogCheckpoint(cfg.logger, nodeID, len(data))
	cfg.metrics.RecordCheckpoint(ctx, nodeID, int64(len(data)))
	return nil
}

// executeNode runs a single node with panic recovery.
// Returns the new state and any error (including wrapped panics).
func (cg *CompiledGraph[S]) executeNode(goCtx context.Context, ctx Context, nodeID string, state S) (result S, err error) {
	fn, exists := cg.nodes[nodeID]
	if !exists {
		return state, &NodeError{
			NodeID: nodeID,
			Op:     "lookup",
			Err:    fmt.Errorf("node not found: %s", nodeID),
		}
	}

	nodeCtx := ctx
	if ec, ok := ctx.(*executionContext); ok {
		nodeCtx = ec.withNodeID(goCtx, nodeID)
	}

	defer func() {
		if r := recover(); r != nil {
			result = state
			err = &PanicError{
				NodeID: nodeID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	result, err = fn(nodeCtx, state)
	if err != nil {
		return state, &NodeError{
			NodeID: nodeID,
			Op:     "execute",
			Err:    err,
		}
	}

	return result, nil
}

// nextNode determines the next node to execute.
// Conditional edges take precedence over simple edges.
func (cg *CompiledGraph[S]) nextNode(ctx Context, state S, current string) (string, error) {
	if r, exists := cg.routes[current]; exists {
		routerCtx := ctx
		if ec, ok := ctx.(*executionContext); ok {
			routerCtx = ec.withNodeID(ec.Context, current)
		}

		next := r.router(routerCtx, state)

		if next == "" {
			return "", &RouterError{FromNode: current, Returned: next, Err: ErrInvalidRouterResult}
		}
		if next != END && !cg.HasNode(next) {
			return "", &RouterError{FromNode: current, Returned: next, Err: ErrRouterTargetNotFound}
		}
		if !r.allows(next) {
			return "", &RouterError{FromNode: current, Returned: next, Err: ErrRouterTargetUndeclared}
		}
		return next, nil
	}

	next, exists := cg.edges[current]
	if !exists {
		return "", &NodeError{
			NodeID: current,
			Op:     "routing",
			Err:    fmt.Errorf("no outgoing edge from node %s", current),
		}
	}
	return next, nil
}
