package core

// PlanStep is one agent's scheduled contribution to a multi-agent goal, with
// explicit prerequisite steps.
type PlanStep struct {
	ID           string     `json:"id"`
	AgentID      string     `json:"agent_id"`
	Goal         string     `json:"goal"`
	Dependencies []string   `json:"dependencies,omitempty"`
	Status       TaskStatus `json:"status"`
}

// Plan is a dependency-ordered set of steps. The dependency relation must form
// a DAG and every referenced dependency must be an existing step id; the
// orchestrator rejects plans violating either invariant before execution.
type Plan struct {
	Steps []PlanStep `json:"steps"`

	// Dependencies mirrors the per-step dependency sets keyed by step id for
	// O(1) lookup during scheduling.
	Dependencies map[string][]string `json:"dependencies,omitempty"`
}

// Clone returns a deep copy of the plan.
func (p Plan) Clone() Plan {
	cp := Plan{Steps: make([]PlanStep, len(p.Steps))}
	for i, s := range p.Steps {
		cp.Steps[i] = s
		cp.Steps[i].Dependencies = append([]string(nil), s.Dependencies...)
	}
	if p.Dependencies != nil {
		cp.Dependencies = make(map[string][]string, len(p.Dependencies))
		for k, v := range p.Dependencies {
			cp.Dependencies[k] = append([]string(nil), v...)
		}
	}
	return cp
}

// OrchestratedStatus tracks the lifecycle of a multi-agent task.
type OrchestratedStatus string

const (
	// OrchestratedPlanning means admission passed and a plan is being built.
	OrchestratedPlanning OrchestratedStatus = "planning"
	// OrchestratedExecuting means plan steps are being scheduled.
	OrchestratedExecuting OrchestratedStatus = "executing"
	// OrchestratedCompleted is the successful terminal state.
	OrchestratedCompleted OrchestratedStatus = "completed"
	// OrchestratedFailed is the unsuccessful terminal state.
	OrchestratedFailed OrchestratedStatus = "failed"
)

// Terminal reports whether the status is completed or failed.
func (s OrchestratedStatus) Terminal() bool {
	return s == OrchestratedCompleted || s == OrchestratedFailed
}

// StepResult reports a single step's outcome inside an orchestrated result.
type StepResult struct {
	ID      string      `json:"id"`
	AgentID string      `json:"agent_id"`
	Status  TaskStatus  `json:"status"`
	Result  *TaskResult `json:"result,omitempty"`
}

// OrchestratedResult aggregates per-step outcomes. It is populated on success
// and also on failure, so completed steps' results remain inspectable after a
// later step fails.
type OrchestratedResult struct {
	Steps []StepResult `json:"steps"`
}

// OrchestratedTask is one multi-agent request: the goal, the participating
// agents in caller-supplied order, the plan and the per-step subtasks.
type OrchestratedTask struct {
	ID       string                `json:"id"`
	Goal     string                `json:"goal"`
	AgentIDs []string              `json:"agent_ids"`
	Status   OrchestratedStatus    `json:"status"`
	Plan     Plan                  `json:"plan"`
	Subtasks map[string]*AgentTask `json:"subtasks,omitempty"`
	Result   *OrchestratedResult   `json:"result,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// Clone returns a deep copy of the orchestrated task.
func (t *OrchestratedTask) Clone() *OrchestratedTask {
	cp := *t
	cp.AgentIDs = append([]string(nil), t.AgentIDs...)
	cp.Plan = t.Plan.Clone()
	if t.Subtasks != nil {
		cp.Subtasks = make(map[string]*AgentTask, len(t.Subtasks))
		for k, v := range t.Subtasks {
			cp.Subtasks[k] = v.Clone()
		}
	}
	if t.Result != nil {
		r := OrchestratedResult{Steps: append([]StepResult(nil), t.Result.Steps...)}
		cp.Result = &r
	}
	return &cp
}
