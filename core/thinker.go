package core

import "context"

// Thinker produces the next thought for an agent task given the spec, the
// goal and the iterations so far. It is typically backed by an LLM; errors
// from this call are fatal to the task (unlike tool errors, which are
// downgraded to observations).
//
// A thought may carry two kinds of directives the runner understands:
//
//   - a completion marker (see runner.CompletionMarker) signalling the task
//     is done, with the thought itself becoming the result summary
//   - an action line of the form `ACTION: tool_name {"arg": ...}` selecting
//     at most one tool to execute this iteration
type Thinker interface {
	NextThought(ctx context.Context, spec AgentSpec, goal string, history []Iteration) (string, error)
}

// ThinkerFunc adapts a plain function to the Thinker interface.
type ThinkerFunc func(ctx context.Context, spec AgentSpec, goal string, history []Iteration) (string, error)

// NextThought implements Thinker.
func (f ThinkerFunc) NextThought(ctx context.Context, spec AgentSpec, goal string, history []Iteration) (string, error) {
	return f(ctx, spec, goal, history)
}
