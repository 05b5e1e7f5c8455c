package thinker

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentgov/core"
)

// Turn is one conversational message with a normalized role, either "user"
// or "assistant".
type Turn struct {
	Role string
	Text string
}

// Conversation renders an agent spec, goal and iteration history into a
// system prompt plus alternating turns, the shape both LLM adapters consume.
// Past thoughts become assistant turns; their observations come back as user
// turns so the model sees tool outcomes the same way a human operator would
// relay them.
func Conversation(spec core.AgentSpec, goal string, history []core.Iteration) (string, []Turn) {
	system := buildSystemPrompt(spec)

	turns := []Turn{{Role: "user", Text: "Goal: " + goal}}
	for _, it := range history {
		turns = append(turns, Turn{Role: "assistant", Text: it.Thought})
		if it.Observation != "" {
			turns = append(turns, Turn{Role: "user", Text: "Observation: " + it.Observation})
		}
	}
	return system, turns
}

func buildSystemPrompt(spec core.AgentSpec) string {
	var sb strings.Builder
	sb.WriteString(spec.SystemPrompt)
	sb.WriteString("\n\nYou operate inside an iterative task loop. Each response is one step of reasoning.\n")
	if len(spec.Tools) > 0 {
		fmt.Fprintf(&sb, "To call a tool, include a single line of the form:\nACTION: tool_name {\"arg\": \"value\"}\nAvailable tools: %s.\n", strings.Join(spec.Tools, ", "))
	}
	sb.WriteString("When the goal is achieved, include the marker TASK_COMPLETE in your response along with a final summary.")
	return sb.String()
}
