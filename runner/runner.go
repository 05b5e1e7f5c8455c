package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/agentgov/audit"
	"github.com/hupe1980/agentgov/core"
	"github.com/hupe1980/agentgov/logging"
	"github.com/hupe1980/agentgov/store"
	"github.com/hupe1980/agentgov/tool"
)

// CompletionMarker is the substring a thought must contain to signal the task
// is done. The thought itself becomes the result summary.
const CompletionMarker = "TASK_COMPLETE"

// DefaultMaxIterations bounds the loop when the agent spec does not override
// it.
const DefaultMaxIterations = 10

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// MaxIterations is the default iteration budget; a spec's MaxIterations
	// takes precedence. Defaults to DefaultMaxIterations.
	MaxIterations int
	// Interval is an optional pause between iterations (pacing, not a
	// correctness requirement). Defaults to zero.
	Interval time.Duration
	// TaskStore persists task snapshots after every iteration. Defaults to
	// an in-memory store.
	TaskStore core.TaskStore
	// Logger defaults to NoOp.
	Logger logging.Logger
	// Audit receives task lifecycle events; defaults to NoOp.
	Audit core.AuditSink
}

// Runner executes agent tasks. Public methods are safe for concurrent use;
// the loop for a single task is strictly sequential, so no two iterations of
// the same task ever run concurrently.
type Runner struct {
	agents   core.AgentStore
	registry *tool.Registry
	thinker  core.Thinker
	tasks    core.TaskStore
	logger   logging.Logger
	audit    core.AuditSink

	maxIterations int
	interval      time.Duration

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// New creates a Runner over an agent store, a tool registry and a thinker.
func New(agents core.AgentStore, registry *tool.Registry, thinker core.Thinker, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxIterations: DefaultMaxIterations,
		TaskStore:     store.NewInMemoryTaskStore(),
		Logger:        logging.NoOpLogger{},
		Audit:         audit.NoOpSink{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Runner{
		agents:        agents,
		registry:      registry,
		thinker:       thinker,
		tasks:         opts.TaskStore,
		logger:        opts.Logger,
		audit:         opts.Audit,
		maxIterations: opts.MaxIterations,
		interval:      opts.Interval,
		active:        make(map[string]context.CancelFunc),
	}
}

// Run starts a task asynchronously. It returns the pending task snapshot
// immediately plus a buffered channel that delivers the terminal task once
// the loop finishes. An unknown agent id is a caller error.
func (r *Runner) Run(ctx context.Context, agentID, goal string) (*core.AgentTask, <-chan *core.AgentTask, error) {
	agent, err := r.agents.Get(agentID)
	if err != nil {
		return nil, nil, err
	}

	task := &core.AgentTask{
		ID:        uuid.NewString(),
		AgentID:   agentID,
		Goal:      goal,
		Status:    core.TaskPending,
		CreatedAt: time.Now(),
	}
	if err := r.tasks.SaveTask(task); err != nil {
		return nil, nil, fmt.Errorf("runner: save task: %w", err)
	}

	taskCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.active[task.ID] = cancel
	r.mu.Unlock()

	// Snapshot before the loop goroutine starts mutating the task.
	pending := task.Clone()

	done := make(chan *core.AgentTask, 1)
	go func() {
		r.execute(taskCtx, agent.Spec, task)
		cancel()
		r.mu.Lock()
		delete(r.active, task.ID)
		r.mu.Unlock()
		// Deregister before signalling so Cancel cannot observe a terminal
		// task as still active.
		done <- task.Clone()
	}()

	return pending, done, nil
}

// RunSync is a convenience wrapper that blocks until the task is terminal.
func (r *Runner) RunSync(ctx context.Context, agentID, goal string) (*core.AgentTask, error) {
	_, done, err := r.Run(ctx, agentID, goal)
	if err != nil {
		return nil, err
	}
	return <-done, nil
}

// Cancel stops an in-flight task promptly: no further iterations are issued,
// though an iteration already in flight may complete. Returns false if the
// task is not currently active.
func (r *Runner) Cancel(taskID string) bool {
	r.mu.Lock()
	cancel, ok := r.active[taskID]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// GetTask returns a stored task snapshot.
func (r *Runner) GetTask(id string) (*core.AgentTask, error) {
	return r.tasks.GetTask(id)
}

// execute drives the think/act/observe loop. It owns the task struct
// exclusively until it returns.
func (r *Runner) execute(ctx context.Context, spec core.AgentSpec, task *core.AgentTask) {
	task.Status = core.TaskRunning
	task.StartedAt = time.Now()
	r.saveSnapshot(task)
	r.record("task_started", task, nil)

	maxIters := r.maxIterations
	if spec.MaxIterations > 0 {
		maxIters = spec.MaxIterations
	}

	for step := 1; step <= maxIters; step++ {
		if err := ctx.Err(); err != nil {
			r.failTask(task, fmt.Sprintf("task cancelled: %v", err))
			return
		}

		thought, err := r.thinker.NextThought(ctx, spec, task.Goal, task.Iterations)
		if err != nil {
			// Thinker faults are fatal to the task, unlike tool faults.
			r.failTask(task, fmt.Sprintf("thinker error: %v", err))
			return
		}

		iter := core.Iteration{Step: step, Thought: thought, Timestamp: time.Now()}

		if strings.Contains(thought, CompletionMarker) {
			task.Iterations = append(task.Iterations, iter)
			r.completeTask(task, thought)
			return
		}

		action, perr := parseAction(thought)
		if action != nil {
			iter.Action = action
			if perr != nil {
				iter.Observation = fmt.Sprintf("Error executing %s: %v", action.Tool, perr)
			} else {
				iter.Observation = r.executeAction(ctx, spec, task, step, action)
			}
		}

		task.Iterations = append(task.Iterations, iter)
		r.saveSnapshot(task)

		if r.interval > 0 && step < maxIters {
			select {
			case <-ctx.Done():
			case <-time.After(r.interval):
			}
		}
	}

	// Budget exhausted without a completion marker: the task still completes,
	// with a default summary.
	r.completeTask(task, fmt.Sprintf("Iteration budget exhausted after %d steps", len(task.Iterations)))
}

// executeAction runs at most one tool call and always returns an observation
// string. Tool faults are downgraded: they consume the iteration but never
// abort the task.
func (r *Runner) executeAction(ctx context.Context, spec core.AgentSpec, task *core.AgentTask, step int, action *core.Action) string {
	if !specAllowsTool(spec, action.Tool) {
		return fmt.Sprintf("Error executing %s: tool not declared by agent spec", action.Tool)
	}

	tl, ok := r.registry.Get(action.Tool)
	if !ok {
		return fmt.Sprintf("Error executing %s: tool not registered", action.Tool)
	}

	toolCtx := core.NewToolContext(ctx, spec.ID, task.ID, step, r.logger)
	start := time.Now()

	result, err := tl.Call(toolCtx, action.Parameters)
	if err != nil {
		msg := err.Error()
		if toolErr, ok := err.(*tool.ToolError); ok {
			msg = toolErr.Message
		}
		r.logger.Warn("runner.tool.error", "task_id", task.ID, "tool", action.Tool, "error", msg)
		return fmt.Sprintf("Error executing %s: %s", action.Tool, msg)
	}

	r.logger.Debug("runner.tool.success",
		"task_id", task.ID,
		"tool", action.Tool,
		"duration_ms", time.Since(start).Milliseconds())
	return fmt.Sprintf("%v", result)
}

func specAllowsTool(spec core.AgentSpec, name string) bool {
	for _, t := range spec.Tools {
		if t == name {
			return true
		}
	}
	return false
}

func (r *Runner) completeTask(task *core.AgentTask, summary string) {
	task.Status = core.TaskCompleted
	task.Result = &core.TaskResult{Summary: summary, Steps: len(task.Iterations)}
	task.CompletedAt = time.Now()
	r.saveSnapshot(task)
	r.record("task_completed", task, map[string]any{"steps": len(task.Iterations)})
	r.logger.Info("runner.task.completed", "task_id", task.ID, "agent_id", task.AgentID, "steps", len(task.Iterations))
}

func (r *Runner) failTask(task *core.AgentTask, errMsg string) {
	task.Status = core.TaskFailed
	task.Error = errMsg
	task.CompletedAt = time.Now()
	r.saveSnapshot(task)
	r.record("task_failed", task, map[string]any{"error": errMsg})
	r.logger.Error("runner.task.failed", "task_id", task.ID, "agent_id", task.AgentID, "error", errMsg)
}

func (r *Runner) saveSnapshot(task *core.AgentTask) {
	if err := r.tasks.SaveTask(task); err != nil {
		r.logger.Warn("runner.task.save_failed", "task_id", task.ID, "error", err)
	}
}

func (r *Runner) record(action string, task *core.AgentTask, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	details["agent_id"] = task.AgentID
	r.audit.Record(core.AuditEvent{
		Actor:     "runner",
		Action:    action,
		Target:    task.ID,
		Details:   details,
		Timestamp: time.Now(),
	})
}
