package core

import (
	"context"

	"github.com/hupe1980/agentgov/logging"
)

// ToolContext is the scoped execution environment handed to tools during an
// iteration. It carries the task's cancellation context, identity metadata
// and a logger. Tools must respect Done() for graceful cancellation.
type ToolContext struct {
	ctx     context.Context
	agentID string
	taskID  string
	step    int
	logger  logging.Logger
}

// NewToolContext builds a ToolContext for a single tool invocation. A nil
// logger is substituted with a NoOpLogger.
func NewToolContext(ctx context.Context, agentID, taskID string, step int, logger logging.Logger) *ToolContext {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &ToolContext{ctx: ctx, agentID: agentID, taskID: taskID, step: step, logger: logger}
}

// Context returns the underlying task context.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// Done mirrors context.Context for convenience inside tool implementations.
func (tc *ToolContext) Done() <-chan struct{} { return tc.ctx.Done() }

// Err mirrors context.Context.
func (tc *ToolContext) Err() error { return tc.ctx.Err() }

// AgentID returns the id of the agent executing the tool.
func (tc *ToolContext) AgentID() string { return tc.agentID }

// TaskID returns the id of the task the tool call belongs to.
func (tc *ToolContext) TaskID() string { return tc.taskID }

// Step returns the 1-based iteration number issuing the call.
func (tc *ToolContext) Step() int { return tc.step }

// Logger returns the task-scoped logger.
func (tc *ToolContext) Logger() logging.Logger { return tc.logger }
