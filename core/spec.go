package core

import (
	"time"
)

// SandboxConstraints bounds what an ungoverned (sandbox) agent may do. A
// sandbox agent needs no policy proof but is limited in time and capability.
type SandboxConstraints struct {
	// MaxBudget caps the total spend attributed to the agent while sandboxed.
	MaxBudget float64 `json:"max_budget"`

	// MaxTokensPerRequest caps a single thinker request.
	MaxTokensPerRequest int `json:"max_tokens_per_request"`

	// AllowedSideEffects lists the side-effect categories the sandbox agent's
	// tools may declare (e.g. "network", "filesystem"). A tool declaring a
	// side effect outside this set makes the agent inadmissible.
	AllowedSideEffects []string `json:"allowed_side_effects,omitempty"`

	// ExpiresAt is the instant after which the sandbox agent is inadmissible.
	// Nil means the sandbox never expires.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// AgentSpec is the immutable-per-version description of an agent. Editing any
// field produces a new content hash, which is how spec tampering of governed
// agents is detected.
type AgentSpec struct {
	ID           string             `json:"id"`
	RoleClass    string             `json:"role_class"`
	SystemPrompt string             `json:"system_prompt"`
	Tools        []string           `json:"tools"`
	Sandbox      SandboxConstraints `json:"sandbox"`

	// MaxIterations overrides the runner's default iteration budget for this
	// agent. Zero means use the runner default.
	MaxIterations int `json:"max_iterations,omitempty"`
}

// Clone returns a deep copy of the spec so callers can mutate it without
// affecting stored state.
func (s AgentSpec) Clone() AgentSpec {
	cp := s
	cp.Tools = append([]string(nil), s.Tools...)
	cp.Sandbox.AllowedSideEffects = append([]string(nil), s.Sandbox.AllowedSideEffects...)
	if s.Sandbox.ExpiresAt != nil {
		t := *s.Sandbox.ExpiresAt
		cp.Sandbox.ExpiresAt = &t
	}
	return cp
}

// GovernanceStatus is the per-agent lifecycle state. Exactly one value applies
// to an agent at any time.
type GovernanceStatus string

const (
	// StatusSandbox is the initial, ungoverned state: no proof required,
	// admission limited by SandboxConstraints.
	StatusSandbox GovernanceStatus = "SANDBOX"

	// StatusGovernedValid means the agent holds a proof bundle issued against
	// the currently active policy.
	StatusGovernedValid GovernanceStatus = "GOVERNED_VALID"

	// StatusGovernedRestricted means a policy change demoted the agent to a
	// side-effect-free capability subset.
	StatusGovernedRestricted GovernanceStatus = "GOVERNED_RESTRICTED"

	// StatusGovernedInvalidated means a policy change revoked the agent's
	// admission entirely; only an explicit re-promotion recovers it.
	StatusGovernedInvalidated GovernanceStatus = "GOVERNED_INVALIDATED"
)

// Governed reports whether the status is one of the GOVERNED_* states, all of
// which require a non-nil proof bundle.
func (s GovernanceStatus) Governed() bool {
	switch s {
	case StatusGovernedValid, StatusGovernedRestricted, StatusGovernedInvalidated:
		return true
	default:
		return false
	}
}

// ProofBundle is a signed, hash-bound artifact proving a specific agent spec
// was evaluated against a specific policy version. It is produced once per
// successful promotion and is immutable afterwards.
type ProofBundle struct {
	AgentHash   string    `json:"agent_hash"`
	PolicyHash  string    `json:"policy_hash"`
	Signature   []byte    `json:"signature"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Clone returns a deep copy of the bundle.
func (p ProofBundle) Clone() ProofBundle {
	cp := p
	cp.Signature = append([]byte(nil), p.Signature...)
	return cp
}

// Agent is the governed aggregate: the current spec, its lifecycle status and
// the proof issued at the last successful promotion.
//
// Invariants maintained by the governance state machine:
//   - Status.Governed() implies Proof != nil
//   - Status == GOVERNED_VALID implies Proof.PolicyHash equals the active
//     policy hash (enforced at admission time, not storage time)
//
// An edit to a governed agent's spec deliberately does not touch Proof; the
// resulting hash mismatch is what admission reports as spec tampering.
type Agent struct {
	Spec   AgentSpec        `json:"spec"`
	Status GovernanceStatus `json:"status"`
	Proof  *ProofBundle     `json:"proof,omitempty"`
}

// Clone returns a deep copy of the aggregate.
func (a *Agent) Clone() *Agent {
	cp := &Agent{Spec: a.Spec.Clone(), Status: a.Status}
	if a.Proof != nil {
		b := a.Proof.Clone()
		cp.Proof = &b
	}
	return cp
}
