package thinker

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentgov/core"
)

// Scripted replays a fixed sequence of thoughts, one per call, regardless of
// input. Exhausting the script is an error, which the runner treats as a
// thinker fault. Safe for concurrent use, though scripts are usually consumed
// by a single task loop.
type Scripted struct {
	mu       sync.Mutex
	thoughts []string
	next     int
}

// NewScripted creates a Scripted thinker over the given thoughts.
func NewScripted(thoughts ...string) *Scripted {
	return &Scripted{thoughts: thoughts}
}

// NextThought implements core.Thinker.
func (s *Scripted) NextThought(_ context.Context, _ core.AgentSpec, _ string, _ []core.Iteration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.thoughts) {
		return "", fmt.Errorf("scripted thinker exhausted after %d thoughts", len(s.thoughts))
	}
	thought := s.thoughts[s.next]
	s.next++
	return thought, nil
}
