package proof

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgov/core"
)

func testSpec() core.AgentSpec {
	return core.AgentSpec{
		ID:           "agent-1",
		RoleClass:    "worker",
		SystemPrompt: "You are a helpful agent.",
		Tools:        []string{"echo"},
		Sandbox: core.SandboxConstraints{
			MaxBudget:           100,
			MaxTokensPerRequest: 4096,
		},
	}
}

func TestCanonicalHash_Deterministic(t *testing.T) {
	spec := testSpec()

	h1, err := CanonicalHash(spec)
	require.NoError(t, err)
	h2, err := CanonicalHash(spec)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	// Map key order must not influence the hash.
	m1 := map[string]any{"b": 2, "a": 1, "c": []string{"x"}}
	m2 := map[string]any{"c": []string{"x"}, "a": 1, "b": 2}
	hm1, err := CanonicalHash(m1)
	require.NoError(t, err)
	hm2, err := CanonicalHash(m2)
	require.NoError(t, err)
	assert.Equal(t, hm1, hm2)
}

func TestCanonicalHash_SensitiveToEveryField(t *testing.T) {
	base := testSpec()
	baseHash, err := CanonicalHash(base)
	require.NoError(t, err)

	mutations := map[string]func(s *core.AgentSpec){
		"id":            func(s *core.AgentSpec) { s.ID = "agent-2" },
		"role_class":    func(s *core.AgentSpec) { s.RoleClass = "admin" },
		"system_prompt": func(s *core.AgentSpec) { s.SystemPrompt = "changed" },
		"tools":         func(s *core.AgentSpec) { s.Tools = []string{"echo", "web"} },
		"budget":        func(s *core.AgentSpec) { s.Sandbox.MaxBudget = 101 },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			spec := base.Clone()
			mutate(&spec)
			h, err := CanonicalHash(spec)
			require.NoError(t, err)
			assert.NotEqual(t, baseHash, h)
		})
	}
}

func TestEngine_SignAndVerify(t *testing.T) {
	engine, err := New()
	require.NoError(t, err)

	agentHash, err := engine.Hash(testSpec())
	require.NoError(t, err)
	policyHash, err := engine.Hash(map[string]any{"name": "baseline"})
	require.NoError(t, err)

	bundle, err := engine.Sign(agentHash, policyHash, time.Now())
	require.NoError(t, err)
	assert.Equal(t, agentHash, bundle.AgentHash)
	assert.Equal(t, policyHash, bundle.PolicyHash)
	assert.NotEmpty(t, bundle.Signature)

	assert.True(t, engine.Verify(bundle, agentHash, policyHash))
}

func TestEngine_VerifyRejectsMismatch(t *testing.T) {
	engine, err := New()
	require.NoError(t, err)

	bundle, err := engine.Sign("agent-hash", "policy-hash", time.Now())
	require.NoError(t, err)

	assert.False(t, engine.Verify(bundle, "other-agent-hash", "policy-hash"), "agent hash mismatch")
	assert.False(t, engine.Verify(bundle, "agent-hash", "other-policy-hash"), "policy hash mismatch")
}

func TestEngine_VerifyRejectsForgedSignature(t *testing.T) {
	engine, err := New()
	require.NoError(t, err)

	bundle, err := engine.Sign("agent-hash", "policy-hash", time.Now())
	require.NoError(t, err)

	forged := bundle.Clone()
	forged.Signature[0] ^= 0xff
	assert.False(t, engine.Verify(forged, "agent-hash", "policy-hash"))

	// Bundles signed by a different key are rejected too.
	other, err := New()
	require.NoError(t, err)
	otherBundle, err := other.Sign("agent-hash", "policy-hash", bundle.EvaluatedAt)
	require.NoError(t, err)
	assert.False(t, engine.Verify(otherBundle, "agent-hash", "policy-hash"))
}

func TestMemoryKeyProviderFromSeed_Stable(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}

	kp1, err := NewMemoryKeyProviderFromSeed(seed)
	require.NoError(t, err)
	kp2, err := NewMemoryKeyProviderFromSeed(seed)
	require.NoError(t, err)
	assert.Equal(t, kp1.PublicKey(), kp2.PublicKey())
}
