// Package tool implements the capability subsystem that lets agents invoke
// structured tools with schema validated arguments, consistent error handling
// and declared side effects. Side-effect declarations drive sandbox and
// restricted-mode admission decisions: a tool with no declared side effects
// is usable by restricted agents, one with declarations is not.
package tool

import (
	"fmt"

	"github.com/hupe1980/agentgov/core"
	"github.com/hupe1980/agentgov/internal/util"
)

// Tool defines the interface for extending agent capabilities with external
// functions.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Declare every side-effect category they can cause
//   - Handle errors gracefully
//   - Be thread-safe if used concurrently
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case
	// recommended). Agent specs reference tools by this name.
	Name() string

	// Description returns a human-readable description of what this tool
	// does, provided to the thinker to guide tool selection.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// SideEffects lists the side-effect categories this tool can cause
	// (e.g. "network", "filesystem"). An empty list marks the tool as
	// side-effect-free, the only kind restricted agents may run.
	SideEffects() []string

	// Call executes the tool with structured arguments and the task-scoped
	// ToolContext. Arguments are validated against the tool's schema.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError represents parameter validation errors with detailed
// information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
