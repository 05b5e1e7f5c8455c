package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentgov/audit"
	"github.com/hupe1980/agentgov/core"
	"github.com/hupe1980/agentgov/governance"
	"github.com/hupe1980/agentgov/logging"
	"github.com/hupe1980/agentgov/store"
)

// DefaultStepTimeout bounds a single plan step's wall-clock execution.
const DefaultStepTimeout = time.Minute

// errCancelled is the cancellation cause installed by Cancel so the scheduler
// can tell a user cancel apart from a step timeout or parent context expiry.
var errCancelled = errors.New("cancelled by user")

// Admitter is the governance gate consulted for every participant before
// planning starts.
type Admitter interface {
	Admit(id string) (governance.Decision, error)
}

// TaskRunner executes a single agent task to completion.
type TaskRunner interface {
	RunSync(ctx context.Context, agentID, goal string) (*core.AgentTask, error)
}

// Options configures an Orchestrator.
type Options struct {
	// Planner builds the step plan; defaults to ChainPlanner.
	Planner Planner
	// StepTimeout bounds each step; defaults to DefaultStepTimeout.
	StepTimeout time.Duration
	// TaskStore persists orchestrated task snapshots; defaults to in-memory.
	TaskStore core.TaskStore
	// Logger defaults to NoOp.
	Logger logging.Logger
	// Audit receives orchestration lifecycle events; defaults to NoOp.
	Audit core.AuditSink
}

// Orchestrator runs multi-agent tasks end to end: admission, planning, plan
// validation and dependency-driven scheduling. Safe for concurrent use.
type Orchestrator struct {
	admitter Admitter
	runner   TaskRunner
	planner  Planner
	tasks    core.TaskStore
	logger   logging.Logger
	audit    core.AuditSink

	stepTimeout time.Duration

	mu     sync.Mutex
	active map[string]context.CancelCauseFunc
}

// New creates an Orchestrator over a governance admitter and a task runner.
func New(admitter Admitter, runner TaskRunner, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Planner:     ChainPlanner{},
		StepTimeout: DefaultStepTimeout,
		TaskStore:   store.NewInMemoryTaskStore(),
		Logger:      logging.NoOpLogger{},
		Audit:       audit.NoOpSink{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Orchestrator{
		admitter:    admitter,
		runner:      runner,
		planner:     opts.Planner,
		tasks:       opts.TaskStore,
		logger:      opts.Logger,
		audit:       opts.Audit,
		stepTimeout: opts.StepTimeout,
		active:      make(map[string]context.CancelCauseFunc),
	}
}

// Orchestrate starts a multi-agent task. Every participant must pass
// admission before any planning happens; a single denial rejects the whole
// request synchronously. On success the pending task snapshot is returned
// together with a buffered channel delivering the terminal task.
func (o *Orchestrator) Orchestrate(ctx context.Context, goal string, agentIDs []string) (*core.OrchestratedTask, <-chan *core.OrchestratedTask, error) {
	if len(agentIDs) == 0 {
		return nil, nil, fmt.Errorf("orchestrator: at least one agent required")
	}
	seen := make(map[string]struct{}, len(agentIDs))
	for _, id := range agentIDs {
		if _, dup := seen[id]; dup {
			return nil, nil, fmt.Errorf("orchestrator: duplicate agent id %q", id)
		}
		seen[id] = struct{}{}
	}

	// Admission gate, fail fast before any plan exists.
	for _, id := range agentIDs {
		decision, err := o.admitter.Admit(id)
		if err != nil {
			return nil, nil, fmt.Errorf("orchestrator: admit %s: %w", id, err)
		}
		if !decision.Allowed {
			o.record("admission_denied", "", map[string]any{"agent_id": id, "reason": decision.Reason})
			return nil, nil, fmt.Errorf("orchestrator: agent %s not admitted: %s", id, decision.Reason)
		}
	}

	task := &core.OrchestratedTask{
		ID:       uuid.NewString(),
		Goal:     goal,
		AgentIDs: append([]string(nil), agentIDs...),
		Status:   core.OrchestratedPlanning,
		Subtasks: make(map[string]*core.AgentTask),
	}
	o.saveSnapshot(task)
	o.record("orchestration_started", task.ID, map[string]any{"agents": agentIDs})

	taskCtx, cancel := context.WithCancelCause(ctx)
	o.mu.Lock()
	o.active[task.ID] = cancel
	o.mu.Unlock()

	// Snapshot before the scheduler goroutine starts mutating the task.
	pending := task.Clone()

	done := make(chan *core.OrchestratedTask, 1)
	go func() {
		o.execute(taskCtx, task)
		cancel(nil)
		o.mu.Lock()
		delete(o.active, task.ID)
		o.mu.Unlock()
		// Deregister before signalling so Cancel cannot observe a terminal
		// task as still active.
		done <- task.Clone()
	}()

	return pending, done, nil
}

// OrchestrateSync is a convenience wrapper that blocks until the task is
// terminal.
func (o *Orchestrator) OrchestrateSync(ctx context.Context, goal string, agentIDs []string) (*core.OrchestratedTask, error) {
	_, done, err := o.Orchestrate(ctx, goal, agentIDs)
	if err != nil {
		return nil, err
	}
	return <-done, nil
}

// Cancel aborts an in-flight orchestrated task. Steps already running are
// interrupted and the task fails with a cancellation error. Returns false if
// the task is not currently active.
func (o *Orchestrator) Cancel(taskID string) bool {
	o.mu.Lock()
	cancel, ok := o.active[taskID]
	o.mu.Unlock()
	if ok {
		cancel(errCancelled)
	}
	return ok
}

// GetTask returns a stored orchestrated task snapshot.
func (o *Orchestrator) GetTask(id string) (*core.OrchestratedTask, error) {
	return o.tasks.GetOrchestrated(id)
}

// execute plans, validates and schedules the task. The scheduler loop owns
// the task struct exclusively: workers receive value copies of their step and
// report back on a channel, and results are merged serially as each step
// finishes. A step becomes runnable the moment its last dependency completes,
// regardless of unrelated steps still in flight.
func (o *Orchestrator) execute(ctx context.Context, task *core.OrchestratedTask) {
	plan, err := o.planner.BuildPlan(ctx, task.Goal, task.AgentIDs)
	if err != nil {
		o.failTask(task, fmt.Sprintf("planning failed: %v", err))
		return
	}
	if err := validatePlan(plan, task.AgentIDs); err != nil {
		o.failTask(task, fmt.Sprintf("invalid plan: %v", err))
		return
	}

	task.Plan = plan.Clone()
	task.Status = core.OrchestratedExecuting
	o.saveSnapshot(task)
	o.logger.Info("orchestrator.executing", "task_id", task.ID, "steps", len(task.Plan.Steps))

	summaries := make(map[string]string, len(task.Plan.Steps))
	completed := make(map[string]struct{}, len(task.Plan.Steps))

	// Buffered to plan size so a worker can always deliver its outcome and
	// exit, even once the scheduler has stopped consuming.
	results := make(chan stepOutcome, len(task.Plan.Steps))
	var g errgroup.Group
	running := 0

	dispatch := func() {
		for idx := range task.Plan.Steps {
			step := &task.Plan.Steps[idx]
			if step.Status != core.TaskPending || !depsCompleted(step.Dependencies, completed) {
				continue
			}
			step.Status = core.TaskRunning
			running++
			idx := idx
			stepCopy := *step
			goal := withPriorContext(step.Goal, step.Dependencies, summaries)
			g.Go(func() error {
				out := o.runStep(ctx, stepCopy, goal)
				out.idx = idx
				results <- out
				return nil
			})
		}
	}

	dispatch()
	o.saveSnapshot(task)

	var failure string
	for running > 0 {
		out := <-results
		running--

		step := &task.Plan.Steps[out.idx]
		step.Status = out.status
		if out.subtask != nil {
			task.Subtasks[step.ID] = out.subtask
		}

		if out.status == core.TaskCompleted {
			completed[step.ID] = struct{}{}
			if out.subtask != nil && out.subtask.Result != nil {
				summaries[step.ID] = out.subtask.Result.Summary
			}
			// Fail-fast: after the first failure nothing new is dispatched;
			// dependents of the failed step stay pending.
			if failure == "" && ctx.Err() == nil {
				dispatch()
			}
		} else if failure == "" {
			failure = fmt.Sprintf("step %s failed: %s", step.ID, out.err)
		}
		o.saveSnapshot(task)
	}
	_ = g.Wait()

	if failure == "" {
		if err := ctx.Err(); err != nil {
			if cause := context.Cause(ctx); cause != nil {
				err = cause
			}
			failure = err.Error()
		} else if len(completed) < len(task.Plan.Steps) {
			// Unreachable on a validated DAG. Guard anyway.
			failure = "no runnable steps remain"
		}
	}
	if failure != "" {
		task.Result = o.assembleResult(task)
		o.failTask(task, failure)
		return
	}

	task.Result = o.assembleResult(task)
	task.Status = core.OrchestratedCompleted
	o.saveSnapshot(task)
	o.record("orchestration_completed", task.ID, map[string]any{"steps": len(task.Plan.Steps)})
	o.logger.Info("orchestrator.completed", "task_id", task.ID)
}

type stepOutcome struct {
	idx     int
	status  core.TaskStatus
	subtask *core.AgentTask
	err     string
}

func depsCompleted(deps []string, completed map[string]struct{}) bool {
	for _, dep := range deps {
		if _, ok := completed[dep]; !ok {
			return false
		}
	}
	return true
}

// runStep executes one plan step under the per-step timeout.
func (o *Orchestrator) runStep(ctx context.Context, step core.PlanStep, goal string) stepOutcome {
	stepCtx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()

	o.logger.Debug("orchestrator.step.start", "step_id", step.ID, "agent_id", step.AgentID)

	subtask, err := o.runner.RunSync(stepCtx, step.AgentID, goal)
	if err != nil {
		return stepOutcome{status: core.TaskFailed, err: err.Error()}
	}
	if subtask.Status != core.TaskCompleted {
		msg := subtask.Error
		switch {
		case context.Cause(ctx) == errCancelled:
			msg = errCancelled.Error()
		case errors.Is(stepCtx.Err(), context.DeadlineExceeded):
			msg = "timed out"
		}
		return stepOutcome{status: core.TaskFailed, subtask: subtask, err: msg}
	}
	return stepOutcome{status: core.TaskCompleted, subtask: subtask}
}

// withPriorContext appends completed dependency summaries to a step goal so
// downstream agents see what upstream agents produced.
func withPriorContext(goal string, deps []string, summaries map[string]string) string {
	var parts []string
	for _, dep := range deps {
		if s, ok := summaries[dep]; ok && s != "" {
			parts = append(parts, fmt.Sprintf("- %s: %s", dep, s))
		}
	}
	if len(parts) == 0 {
		return goal
	}
	return goal + "\n\nContext from prior steps:\n" + strings.Join(parts, "\n")
}

// assembleResult snapshots per-step outcomes in plan order, including steps
// that never ran.
func (o *Orchestrator) assembleResult(task *core.OrchestratedTask) *core.OrchestratedResult {
	result := &core.OrchestratedResult{Steps: make([]core.StepResult, 0, len(task.Plan.Steps))}
	for _, step := range task.Plan.Steps {
		sr := core.StepResult{ID: step.ID, AgentID: step.AgentID, Status: step.Status}
		if sub, ok := task.Subtasks[step.ID]; ok && sub.Result != nil {
			r := *sub.Result
			sr.Result = &r
		}
		result.Steps = append(result.Steps, sr)
	}
	return result
}

func (o *Orchestrator) failTask(task *core.OrchestratedTask, errMsg string) {
	task.Status = core.OrchestratedFailed
	task.Error = errMsg
	o.saveSnapshot(task)
	o.record("orchestration_failed", task.ID, map[string]any{"error": errMsg})
	o.logger.Error("orchestrator.failed", "task_id", task.ID, "error", errMsg)
}

func (o *Orchestrator) saveSnapshot(task *core.OrchestratedTask) {
	if err := o.tasks.SaveOrchestrated(task); err != nil {
		o.logger.Warn("orchestrator.task.save_failed", "task_id", task.ID, "error", err)
	}
}

func (o *Orchestrator) record(action, target string, details map[string]any) {
	o.audit.Record(core.AuditEvent{
		Actor:     "orchestrator",
		Action:    action,
		Target:    target,
		Details:   details,
		Timestamp: time.Now(),
	})
}
