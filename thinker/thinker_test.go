package thinker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgov/core"
)

func TestScripted(t *testing.T) {
	s := NewScripted("first", "second")

	spec := core.AgentSpec{ID: "a1"}
	got, err := s.NextThought(context.Background(), spec, "goal", nil)
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	got, err = s.NextThought(context.Background(), spec, "goal", nil)
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	_, err = s.NextThought(context.Background(), spec, "goal", nil)
	assert.Error(t, err, "exhausted script")
}

func TestConversation(t *testing.T) {
	spec := core.AgentSpec{
		ID:           "a1",
		SystemPrompt: "You are a researcher.",
		Tools:        []string{"search", "take_notes"},
	}
	history := []core.Iteration{
		{Step: 1, Thought: "Searching.\nACTION: search {\"query\": \"x\"}", Observation: "found it"},
		{Step: 2, Thought: "Thinking without acting."},
	}

	system, turns := Conversation(spec, "find x", history)

	assert.Contains(t, system, "You are a researcher.")
	assert.Contains(t, system, "ACTION: tool_name")
	assert.Contains(t, system, "search, take_notes")
	assert.Contains(t, system, "TASK_COMPLETE")

	require.Len(t, turns, 4)
	assert.Equal(t, Turn{Role: "user", Text: "Goal: find x"}, turns[0])
	assert.Equal(t, "assistant", turns[1].Role)
	assert.Equal(t, Turn{Role: "user", Text: "Observation: found it"}, turns[2])
	// An iteration without an observation contributes only the thought.
	assert.Equal(t, Turn{Role: "assistant", Text: "Thinking without acting."}, turns[3])
}

func TestConversation_NoTools(t *testing.T) {
	system, _ := Conversation(core.AgentSpec{SystemPrompt: "p"}, "goal", nil)
	assert.NotContains(t, system, "Available tools")
	assert.Contains(t, system, "TASK_COMPLETE")
}
