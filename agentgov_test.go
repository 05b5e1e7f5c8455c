package agentgov

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgov/core"
	"github.com/hupe1980/agentgov/policy"
	"github.com/hupe1980/agentgov/thinker"
	"github.com/hupe1980/agentgov/tool"
)

func registerEchoTool(gov *AgentGov) {
	gov.RegisterTool(tool.NewFunctionTool(
		"echo",
		"Echo the given text back",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			return args["text"], nil
		},
	))
}

func echoSpec(id string) core.AgentSpec {
	return core.AgentSpec{
		ID:           id,
		RoleClass:    "worker",
		SystemPrompt: "You are a helpful agent.",
		Tools:        []string{"echo"},
		Sandbox: core.SandboxConstraints{
			MaxBudget:           50,
			MaxTokensPerRequest: 2048,
		},
	}
}

func TestEndToEnd_GovernedTask(t *testing.T) {
	gov, err := New(thinker.NewScripted(
		"Echoing.\nACTION: echo {\"text\": \"hi\"}",
		"Done. TASK_COMPLETE",
	))
	require.NoError(t, err)
	defer gov.Close()

	registerEchoTool(gov)
	_, err = gov.RegisterAgent(echoSpec("a1"))
	require.NoError(t, err)

	promo, err := gov.Promote("a1")
	require.NoError(t, err)
	require.True(t, promo.Success)
	require.NotNil(t, promo.Proof)
	assert.Equal(t, gov.ActivePolicyHash(), promo.Proof.PolicyHash)

	task, err := gov.RunTaskSync(context.Background(), "a1", "say hi")
	require.NoError(t, err)
	assert.Equal(t, core.TaskCompleted, task.Status)
	require.Len(t, task.Iterations, 2)
	assert.Equal(t, "hi", task.Iterations[0].Observation)

	stored, err := gov.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskCompleted, stored.Status)

	gov.Close()
	ok, err := gov.VerifyAuditChain()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, gov.AuditEntries())
}

func TestRunTask_AdmissionDenied(t *testing.T) {
	doc := &policy.Document{
		Name:    "strict",
		Version: "1",
		Rules: []policy.Rule{
			{Name: "budget_cap", Expr: "agent.max_budget <= 10.0", Message: "budget too high", Severity: policy.SeverityInvalidate},
		},
	}
	gov, err := New(thinker.NewScripted("TASK_COMPLETE"), func(o *Options) {
		o.Policy = doc
	})
	require.NoError(t, err)
	defer gov.Close()

	registerEchoTool(gov)
	spec := echoSpec("a1")
	spec.Sandbox.MaxBudget = 50
	_, err = gov.RegisterAgent(spec)
	require.NoError(t, err)

	// Sandbox agents run without any policy proof.
	task, err := gov.RunTaskSync(context.Background(), "a1", "go")
	require.NoError(t, err)
	assert.Equal(t, core.TaskCompleted, task.Status)

	// Promotion is denied by policy, status stays sandbox.
	promo, err := gov.Promote("a1")
	require.NoError(t, err)
	assert.False(t, promo.Success)
	assert.NotEmpty(t, promo.Violations)
}

func TestRunTask_DeniedAfterInvalidation(t *testing.T) {
	gov, err := New(thinker.NewScripted("TASK_COMPLETE"))
	require.NoError(t, err)
	defer gov.Close()

	registerEchoTool(gov)
	_, err = gov.RegisterAgent(echoSpec("a1"))
	require.NoError(t, err)
	promo, err := gov.Promote("a1")
	require.NoError(t, err)
	require.True(t, promo.Success)

	res, err := gov.HotReloadPolicyYAML([]byte(`
name: strict
version: 2.0.0
rules:
  - name: budget_cap
    expr: agent.max_budget <= 10.0
    message: budget too high
    severity: invalidate
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, res.Invalidated)
	assert.Equal(t, gov.ActivePolicyHash(), res.PolicyHash)

	_, err = gov.RunTaskSync(context.Background(), "a1", "go")
	require.Error(t, err)
	var admissionErr *AdmissionError
	require.ErrorAs(t, err, &admissionErr)
	assert.Equal(t, "a1", admissionErr.AgentID)
}

func TestEndToEnd_Orchestration(t *testing.T) {
	gov, err := New(thinker.NewScripted(
		"Findings ready. TASK_COMPLETE: found the answer.",
		"Report written. TASK_COMPLETE: wrote it up.",
	))
	require.NoError(t, err)
	defer gov.Close()

	registerEchoTool(gov)
	for _, id := range []string{"researcher", "writer"} {
		_, err = gov.RegisterAgent(echoSpec(id))
		require.NoError(t, err)
		promo, err := gov.Promote(id)
		require.NoError(t, err)
		require.True(t, promo.Success)
	}

	task, err := gov.OrchestrateSync(context.Background(), "produce a report", []string{"researcher", "writer"})
	require.NoError(t, err)
	assert.Equal(t, core.OrchestratedCompleted, task.Status)
	require.NotNil(t, task.Result)
	require.Len(t, task.Result.Steps, 2)
	assert.Contains(t, task.Result.Steps[0].Result.Summary, "found the answer")

	stored, err := gov.GetOrchestratedTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, core.OrchestratedCompleted, stored.Status)
}
