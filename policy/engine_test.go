package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgov/core"
)

func completeSpec() core.AgentSpec {
	return core.AgentSpec{
		ID:           "agent-1",
		RoleClass:    "worker",
		SystemPrompt: "You are a helpful agent.",
		Tools:        []string{"echo"},
		Sandbox: core.SandboxConstraints{
			MaxBudget:           50,
			MaxTokensPerRequest: 4096,
		},
	}
}

// -------------------- Document Tests --------------------

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(`
name: budgets
version: 1.0.0
rules:
  - name: budget_cap
    expr: agent.max_budget <= 100.0
    message: budget too high
`))
	require.NoError(t, err)
	assert.Equal(t, "budgets", doc.Name)
	require.Len(t, doc.Rules, 1)
	// Empty severity normalizes to restrict.
	assert.Equal(t, SeverityRestrict, doc.Rules[0].Severity)
}

func TestParseDocument_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "unknown severity",
			yaml: `
rules:
  - name: r1
    expr: "true"
    severity: banhammer
`,
		},
		{
			name: "duplicate rule name",
			yaml: `
rules:
  - name: r1
    expr: "true"
  - name: r1
    expr: "false"
`,
		},
		{
			name: "empty expression",
			yaml: `
rules:
  - name: r1
    expr: ""
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

// -------------------- Evaluation Tests --------------------

func TestEvaluate_AnatomyPreCheck(t *testing.T) {
	engine, err := New(nil)
	require.NoError(t, err)

	spec := completeSpec()
	spec.SystemPrompt = ""
	spec.Tools = nil

	eval := engine.Evaluate(spec)
	assert.False(t, eval.Allow)
	require.Len(t, eval.Violations, 1)
	assert.Contains(t, eval.Violations[0].Message, "Agent anatomy is incomplete")
	assert.Equal(t, SeverityInvalidate, eval.Violations[0].Severity)
}

func TestEvaluate_AllowAndDeny(t *testing.T) {
	doc := &Document{
		Name:    "budgets",
		Version: "1",
		Rules: []Rule{
			{Name: "budget_cap", Expr: "agent.max_budget <= 100.0", Message: "budget too high", Severity: SeverityRestrict},
			{Name: "worker_only", Expr: `agent.role_class == "worker"`, Message: "wrong role", Severity: SeverityInvalidate},
		},
	}
	engine, err := New(doc)
	require.NoError(t, err)

	eval := engine.Evaluate(completeSpec())
	assert.True(t, eval.Allow)
	assert.Empty(t, eval.Violations)

	over := completeSpec()
	over.Sandbox.MaxBudget = 500
	over.RoleClass = "admin"
	eval = engine.Evaluate(over)
	assert.False(t, eval.Allow)
	assert.Len(t, eval.Violations, 2)
	assert.Equal(t, SeverityInvalidate, eval.WorstSeverity())
	assert.ElementsMatch(t, []string{"budget too high", "wrong role"}, eval.Reasons())
}

func TestEvaluate_Deterministic(t *testing.T) {
	doc := &Document{Rules: []Rule{
		{Name: "budget_cap", Expr: "agent.max_budget <= 100.0", Message: "budget too high"},
	}}
	engine, err := New(doc)
	require.NoError(t, err)

	spec := completeSpec()
	first := engine.Evaluate(spec)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, engine.Evaluate(spec))
	}
}

func TestEvaluate_FailClosedOnRuleError(t *testing.T) {
	// Indexing past the end of the tools list errors at eval time; the rule
	// must deny rather than silently pass.
	doc := &Document{Rules: []Rule{
		{Name: "bad_rule", Expr: `agent.tools[10] == "x"`, Message: "unreachable", Severity: SeverityRestrict},
	}}
	engine, err := New(doc)
	require.NoError(t, err)

	eval := engine.Evaluate(completeSpec())
	assert.False(t, eval.Allow)
	require.Len(t, eval.Violations, 1)
	assert.Contains(t, eval.Violations[0].Message, "evaluation failed")
}

func TestNew_RejectsMalformedExpression(t *testing.T) {
	doc := &Document{Rules: []Rule{{Name: "broken", Expr: "agent.max_budget <= "}}}
	_, err := New(doc)
	assert.Error(t, err)
}

func TestNew_RejectsTimeDependentRule(t *testing.T) {
	// Only the agent input is declared: rules over wall-clock time would make
	// evaluation impure, so they fail compilation instead of drifting.
	doc := &Document{Rules: []Rule{
		{Name: "expiry", Expr: "now < 1700000000", Message: "expired"},
	}}
	_, err := New(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undeclared reference")
}

// -------------------- Hash & Reload Tests --------------------

func TestActivePolicyHash_TracksDocument(t *testing.T) {
	engine, err := New(nil)
	require.NoError(t, err)
	baseline := engine.ActivePolicyHash()
	assert.NotEmpty(t, baseline)

	_, err = engine.Install(&Document{Name: "v2", Version: "2"})
	require.NoError(t, err)
	assert.NotEqual(t, baseline, engine.ActivePolicyHash())
}

func TestHotReload_Standalone(t *testing.T) {
	engine, err := New(nil)
	require.NoError(t, err)

	// Without a registered revalidator the reload just installs.
	res, err := engine.HotReloadYAML([]byte(`
name: strict
version: 2.0.0
rules:
  - name: budget_cap
    expr: agent.max_budget <= 10.0
    message: budget too high
`))
	require.NoError(t, err)
	assert.Equal(t, engine.ActivePolicyHash(), res.PolicyHash)
	assert.Equal(t, "strict", engine.ActiveDocument().Name)
}

func TestHotReload_RejectsBadDocumentAtomically(t *testing.T) {
	engine, err := New(nil)
	require.NoError(t, err)
	before := engine.ActivePolicyHash()

	_, err = engine.HotReload(&Document{Rules: []Rule{{Name: "broken", Expr: "???"}}})
	assert.Error(t, err)
	// The active document is untouched on failure.
	assert.Equal(t, before, engine.ActivePolicyHash())
}
