package runner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/agentgov/core"
)

// actionPrefix introduces a tool directive inside a thought. The directive
// occupies a single line: `ACTION: tool_name {"arg": "value"}` with the JSON
// arguments optional.
const actionPrefix = "ACTION:"

// parseAction extracts at most one tool action from a thought. It returns
// (nil, nil) for a plain thought. Malformed arguments return the partially
// parsed action together with an error so the caller can record the failure
// as an observation against the named tool.
func parseAction(thought string) (*core.Action, error) {
	for _, line := range strings.Split(thought, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, actionPrefix) {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(line, actionPrefix))
		if rest == "" {
			return nil, nil
		}

		name := rest
		var rawArgs string
		if i := strings.IndexAny(rest, " \t{"); i >= 0 {
			name = strings.TrimSpace(rest[:i])
			rawArgs = strings.TrimSpace(rest[i:])
		}
		if name == "" {
			return nil, nil
		}

		action := &core.Action{Tool: name}
		if rawArgs != "" {
			var params map[string]any
			if err := json.Unmarshal([]byte(rawArgs), &params); err != nil {
				return action, fmt.Errorf("invalid action arguments: %v", err)
			}
			action.Parameters = params
		}
		return action, nil
	}
	return nil, nil
}
