package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentSpec_CloneIsDeep(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	spec := AgentSpec{
		ID:    "a1",
		Tools: []string{"echo"},
		Sandbox: SandboxConstraints{
			AllowedSideEffects: []string{"network"},
			ExpiresAt:          &exp,
		},
	}

	cp := spec.Clone()
	cp.Tools[0] = "tampered"
	cp.Sandbox.AllowedSideEffects[0] = "filesystem"
	*cp.Sandbox.ExpiresAt = exp.Add(time.Hour)

	assert.Equal(t, "echo", spec.Tools[0])
	assert.Equal(t, "network", spec.Sandbox.AllowedSideEffects[0])
	assert.True(t, spec.Sandbox.ExpiresAt.Equal(exp))
}

func TestAgent_CloneIsDeep(t *testing.T) {
	agent := &Agent{
		Spec:   AgentSpec{ID: "a1"},
		Status: StatusGovernedValid,
		Proof:  &ProofBundle{AgentHash: "h", Signature: []byte{1, 2, 3}},
	}

	cp := agent.Clone()
	cp.Proof.Signature[0] = 9
	cp.Status = StatusSandbox

	assert.Equal(t, byte(1), agent.Proof.Signature[0])
	assert.Equal(t, StatusGovernedValid, agent.Status)
}

func TestAgentTask_CloneIsDeep(t *testing.T) {
	task := &AgentTask{
		ID:     "t1",
		Status: TaskRunning,
		Iterations: []Iteration{
			{Step: 1, Thought: "x", Action: &Action{Tool: "echo", Parameters: map[string]any{"k": "v"}}},
		},
		Result: &TaskResult{Summary: "s", Steps: 1},
	}

	cp := task.Clone()
	cp.Iterations[0].Action.Parameters["k"] = "changed"
	cp.Iterations[0].Thought = "changed"
	cp.Result.Summary = "changed"

	assert.Equal(t, "v", task.Iterations[0].Action.Parameters["k"])
	assert.Equal(t, "x", task.Iterations[0].Thought)
	assert.Equal(t, "s", task.Result.Summary)
}

func TestOrchestratedTask_CloneIsDeep(t *testing.T) {
	task := &OrchestratedTask{
		ID:       "o1",
		AgentIDs: []string{"a", "b"},
		Plan: Plan{
			Steps:        []PlanStep{{ID: "s1", Dependencies: []string{"s0"}}},
			Dependencies: map[string][]string{"s1": {"s0"}},
		},
		Subtasks: map[string]*AgentTask{"s1": {ID: "t1", Status: TaskCompleted}},
	}

	cp := task.Clone()
	cp.AgentIDs[0] = "z"
	cp.Plan.Steps[0].Dependencies[0] = "z"
	cp.Plan.Dependencies["s1"][0] = "z"
	cp.Subtasks["s1"].Status = TaskFailed

	assert.Equal(t, "a", task.AgentIDs[0])
	assert.Equal(t, "s0", task.Plan.Steps[0].Dependencies[0])
	assert.Equal(t, "s0", task.Plan.Dependencies["s1"][0])
	assert.Equal(t, TaskCompleted, task.Subtasks["s1"].Status)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, TaskPending.Terminal())
	assert.False(t, TaskRunning.Terminal())
	assert.True(t, TaskCompleted.Terminal())
	assert.True(t, TaskFailed.Terminal())

	assert.False(t, OrchestratedPlanning.Terminal())
	assert.True(t, OrchestratedFailed.Terminal())
}

func TestGovernanceStatus_Governed(t *testing.T) {
	assert.False(t, StatusSandbox.Governed())
	assert.True(t, StatusGovernedValid.Governed())
	assert.True(t, StatusGovernedRestricted.Governed())
	assert.True(t, StatusGovernedInvalidated.Governed())
}

func TestThinkerFunc(t *testing.T) {
	tf := ThinkerFunc(func(_ context.Context, _ AgentSpec, goal string, _ []Iteration) (string, error) {
		return "thought about " + goal, nil
	})

	got, err := tf.NextThought(context.Background(), AgentSpec{}, "x", nil)
	require.NoError(t, err)
	assert.Equal(t, "thought about x", got)
}
