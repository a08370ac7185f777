package flowgraph

import (
	"context"
)

// Transcript is the state most engine tests thread through a graph.
type Transcript struct {
	Lines []string `json:"lines"`
	Turns int      `json:"turns"`
}

// say returns a node that appends line to the transcript.
func say(line string) NodeFunc[Transcript] {
	return func(ctx Context, s Transcript) (Transcript, error) {
		s.Lines = append(s.Lines, line)
		return s, nil
	}
}

// turn counts one conversational turn.
func turn(ctx Context, s Transcript) (Transcript, error) {
	s.Turns++
	return s, nil
}

// passthrough returns the state unchanged.
func passthrough[S any](ctx Context, s S) (S, error) {
	return s, nil
}

// failing returns a node that fails with err.
func failing(err error) NodeFunc[Transcript] {
	return func(ctx Context, s Transcript) (Transcript, error) {
		return s, err
	}
}

// panicking returns a node that panics with value.
func panicking(value any) NodeFunc[Transcript] {
	return func(ctx Context, s Transcript) (Transcript, error) {
		panic(value)
	}
}

// untilTurns routes back to loop until s.Turns reaches n, then to END.
func untilTurns(n int, loop string) RouterFunc[Transcript] {
	return func(ctx Context, s Transcript) string {
		if s.Turns >= n {
			return END
		}
		return loop
	}
}

// haltAfter returns a node that counts a turn and halts once n turns are done.
func haltAfter(n int, reason error) NodeFunc[Transcript] {
	return func(ctx Context, s Transcript) (Transcript, error) {
		if s.Turns >= n {
			return s, reason
		}
		s.Turns++
		return s, nil
	}
}

func testCtx() Context {
	return NewContext(context.Background())
}
