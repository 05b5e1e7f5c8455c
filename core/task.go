package core

import "time"

// TaskStatus tracks the lifecycle of an agent task or plan step.
type TaskStatus string

const (
	// TaskPending means the task/step has been created but not dispatched.
	TaskPending TaskStatus = "pending"
	// TaskRunning means the task/step is currently executing.
	TaskRunning TaskStatus = "running"
	// TaskCompleted is the successful terminal state.
	TaskCompleted TaskStatus = "completed"
	// TaskFailed is the unsuccessful terminal state.
	TaskFailed TaskStatus = "failed"
)

// Terminal reports whether the status is completed or failed.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Action is a single tool invocation selected during an iteration.
type Action struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Iteration is one think/act/observe cycle of a task. Iterations are
// append-only and strictly ordered within a task.
type Iteration struct {
	Step        int       `json:"step"`
	Thought     string    `json:"thought"`
	Action      *Action   `json:"action,omitempty"`
	Observation string    `json:"observation,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// TaskResult summarizes a completed task.
type TaskResult struct {
	Summary string `json:"summary"`
	Steps   int    `json:"steps"`
}

// AgentTask records one agent's iterative execution of a goal. A task belongs
// to exactly one agent and is terminal once completed or failed.
type AgentTask struct {
	ID          string      `json:"id"`
	AgentID     string      `json:"agent_id"`
	Goal        string      `json:"goal"`
	Status      TaskStatus  `json:"status"`
	Iterations  []Iteration `json:"iterations"`
	Result      *TaskResult `json:"result,omitempty"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	StartedAt   time.Time   `json:"started_at,omitzero"`
	CompletedAt time.Time   `json:"completed_at,omitzero"`
}

// Clone returns a deep copy of the task.
func (t *AgentTask) Clone() *AgentTask {
	cp := *t
	cp.Iterations = make([]Iteration, len(t.Iterations))
	for i, it := range t.Iterations {
		cp.Iterations[i] = it
		if it.Action != nil {
			a := *it.Action
			a.Parameters = cloneParams(it.Action.Parameters)
			cp.Iterations[i].Action = &a
		}
	}
	if t.Result != nil {
		r := *t.Result
		cp.Result = &r
	}
	return &cp
}

func cloneParams(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
