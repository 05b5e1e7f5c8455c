package governance

import (
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentgov/audit"
	"github.com/hupe1980/agentgov/core"
	"github.com/hupe1980/agentgov/logging"
	"github.com/hupe1980/agentgov/policy"
	"github.com/hupe1980/agentgov/proof"
	"github.com/hupe1980/agentgov/tool"
)

// Admission denial reasons. Denials are data, not errors: the caller recovers
// by editing the spec, re-promoting or waiting out the condition.
const (
	ReasonSandboxExpired         = "sandbox expired"
	ReasonSideEffectNotPermitted = "side effect not permitted"
	ReasonSpecTampered           = "spec tampered"
	ReasonStalePolicy            = "stale policy"
	ReasonProofInvalid           = "proof signature invalid"
	ReasonRestricted             = "restricted by policy"
	ReasonInvalidated            = "governance invalidated: re-promotion required"
)

// PromoteResult reports a promotion attempt. On failure the agent's status is
// unchanged and Violations carries the policy reasons.
type PromoteResult struct {
	Success    bool              `json:"success"`
	Violations []string          `json:"violations,omitempty"`
	Proof      *core.ProofBundle `json:"proof,omitempty"`
}

// Decision is the admission gate's answer: whether the agent may execute
// right now, independent of whether it is allowed to exist.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Options configures a StateMachine.
type Options struct {
	// Logger defaults to NoOp.
	Logger logging.Logger
	// Audit receives structured lifecycle events; defaults to NoOp.
	Audit core.AuditSink
	// Clock overrides time.Now for expiry checks in tests.
	Clock func() time.Time
}

// StateMachine owns per-agent lifecycle status, promotion, revalidation on
// policy change and tamper-evident admission checks. It registers itself as
// the policy engine's revalidator so hot reloads sweep every governed agent
// under this machine's write lock.
type StateMachine struct {
	mu sync.RWMutex

	agents   core.AgentStore
	policies *policy.Engine
	proofs   *proof.Engine
	registry *tool.Registry

	logger logging.Logger
	audit  core.AuditSink
	clock  func() time.Time
}

// New wires a state machine over its collaborators and registers the hot
// reload revalidation sweep with the policy engine.
func New(
	agents core.AgentStore,
	policies *policy.Engine,
	proofs *proof.Engine,
	registry *tool.Registry,
	optFns ...func(o *Options),
) *StateMachine {
	opts := Options{
		Logger: logging.NoOpLogger{},
		Audit:  audit.NoOpSink{},
		Clock:  time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	sm := &StateMachine{
		agents:   agents,
		policies: policies,
		proofs:   proofs,
		registry: registry,
		logger:   opts.Logger,
		audit:    opts.Audit,
		clock:    opts.Clock,
	}
	policies.SetRevalidator(sm.revalidate)
	return sm
}

// Register creates a new agent in the sandbox state. Tool references are
// resolved against the registry now so unknown tools are rejected early, not
// at call time.
func (sm *StateMachine) Register(spec core.AgentSpec) (*core.Agent, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("governance: spec id must not be empty")
	}
	if err := sm.registry.ValidateSpec(spec); err != nil {
		return nil, fmt.Errorf("governance: %w", err)
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if existing, err := sm.agents.Get(spec.ID); err == nil && existing != nil {
		return nil, fmt.Errorf("governance: agent %s already registered", spec.ID)
	}

	agent := &core.Agent{Spec: spec.Clone(), Status: core.StatusSandbox}
	if err := sm.agents.Save(agent); err != nil {
		return nil, fmt.Errorf("governance: save agent: %w", err)
	}

	sm.record("register", spec.ID, map[string]any{"role_class": spec.RoleClass})
	sm.logger.Info("governance.register", "agent_id", spec.ID, "role_class", spec.RoleClass)
	return agent.Clone(), nil
}

// UpdateSpec replaces an agent's spec without touching its proof. For a
// governed agent the resulting hash mismatch is exactly what admission later
// reports as spec tampering.
func (sm *StateMachine) UpdateSpec(spec core.AgentSpec) (*core.Agent, error) {
	if err := sm.registry.ValidateSpec(spec); err != nil {
		return nil, fmt.Errorf("governance: %w", err)
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	agent, err := sm.agents.Get(spec.ID)
	if err != nil {
		return nil, err
	}
	agent.Spec = spec.Clone()
	if err := sm.agents.Save(agent); err != nil {
		return nil, fmt.Errorf("governance: save agent: %w", err)
	}

	sm.record("update_spec", spec.ID, nil)
	return agent.Clone(), nil
}

// Get returns the agent aggregate.
func (sm *StateMachine) Get(id string) (*core.Agent, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	agent, err := sm.agents.Get(id)
	if err != nil {
		return nil, err
	}
	return agent.Clone(), nil
}

// Delete removes an agent entirely.
func (sm *StateMachine) Delete(id string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if err := sm.agents.Delete(id); err != nil {
		return err
	}
	sm.record("delete", id, nil)
	return nil
}

// Promote evaluates the agent's current spec against the active policy and,
// on success, issues a fresh proof bundle and transitions the agent to
// GOVERNED_VALID. On failure the status is unchanged and the violations are
// returned. Re-promotion is also the only way out of GOVERNED_INVALIDATED.
func (sm *StateMachine) Promote(id string) (PromoteResult, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	agent, err := sm.agents.Get(id)
	if err != nil {
		return PromoteResult{}, err
	}

	eval := sm.policies.Evaluate(agent.Spec)
	if !eval.Allow {
		reasons := eval.Reasons()
		sm.record("promote_denied", id, map[string]any{"violations": reasons})
		sm.logger.Warn("governance.promote.denied", "agent_id", id, "violations", reasons)
		return PromoteResult{Success: false, Violations: reasons}, nil
	}

	bundle, err := sm.issueProof(agent.Spec)
	if err != nil {
		return PromoteResult{}, err
	}

	agent.Status = core.StatusGovernedValid
	agent.Proof = &bundle
	if err := sm.agents.Save(agent); err != nil {
		return PromoteResult{}, fmt.Errorf("governance: save agent: %w", err)
	}

	sm.record("promote", id, map[string]any{
		"agent_hash":  bundle.AgentHash,
		"policy_hash": bundle.PolicyHash,
	})
	sm.logger.Info("governance.promote", "agent_id", id, "policy_hash", bundle.PolicyHash)

	proofCopy := bundle.Clone()
	return PromoteResult{Success: true, Proof: &proofCopy}, nil
}

// Admit is the gate the orchestrator calls before running any task. It never
// returns an error for a well-formed agent id; an unknown id surfaces
// core.ErrUnknownAgent, which is a caller bug rather than a denial. With no
// state change between calls, Admit is idempotent.
func (sm *StateMachine) Admit(id string) (Decision, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	agent, err := sm.agents.Get(id)
	if err != nil {
		return Decision{}, err
	}

	decision := sm.decide(agent)
	sm.record("admit", id, map[string]any{"allowed": decision.Allowed, "reason": decision.Reason})
	sm.logger.Debug("governance.admit", "agent_id", id, "allowed", decision.Allowed, "reason", decision.Reason)
	return decision, nil
}

func (sm *StateMachine) decide(agent *core.Agent) Decision {
	switch agent.Status {
	case core.StatusSandbox:
		return sm.decideSandbox(agent)

	case core.StatusGovernedValid:
		currentHash, err := sm.proofs.Hash(agent.Spec)
		if err != nil {
			return Decision{Allowed: false, Reason: ReasonProofInvalid}
		}
		activeHash := sm.policies.ActivePolicyHash()
		if sm.proofs.Verify(*agent.Proof, currentHash, activeHash) {
			return Decision{Allowed: true}
		}
		// Distinguish the mismatch for the caller.
		if agent.Proof.AgentHash != currentHash {
			return Decision{Allowed: false, Reason: ReasonSpecTampered}
		}
		if agent.Proof.PolicyHash != activeHash {
			return Decision{Allowed: false, Reason: ReasonStalePolicy}
		}
		return Decision{Allowed: false, Reason: ReasonProofInvalid}

	case core.StatusGovernedRestricted:
		if sm.registry.SideEffectFree(agent.Spec.Tools) {
			return Decision{Allowed: true}
		}
		return Decision{Allowed: false, Reason: ReasonRestricted}

	case core.StatusGovernedInvalidated:
		return Decision{Allowed: false, Reason: ReasonInvalidated}

	default:
		return Decision{Allowed: false, Reason: fmt.Sprintf("unknown status %q", agent.Status)}
	}
}

func (sm *StateMachine) decideSandbox(agent *core.Agent) Decision {
	if exp := agent.Spec.Sandbox.ExpiresAt; exp != nil && !sm.clock().Before(*exp) {
		return Decision{Allowed: false, Reason: ReasonSandboxExpired}
	}

	allowed := make(map[string]struct{}, len(agent.Spec.Sandbox.AllowedSideEffects))
	for _, e := range agent.Spec.Sandbox.AllowedSideEffects {
		allowed[e] = struct{}{}
	}
	for _, effect := range sm.registry.SideEffectsOf(agent.Spec.Tools) {
		if _, ok := allowed[effect]; !ok {
			return Decision{Allowed: false, Reason: ReasonSideEffectNotPermitted}
		}
	}
	return Decision{Allowed: true}
}

// RevalidateAll re-runs the governed-agent sweep against the currently
// active policy document without changing it. Useful after out-of-band spec
// edits when a full hot reload is not wanted.
func (sm *StateMachine) RevalidateAll() (policy.ReloadResult, error) {
	return sm.revalidate(sm.policies.ActiveDocument())
}

// revalidate is the hot reload sweep registered with the policy engine. It
// installs the new document and revisits every governed agent under the
// write lock, so the new active policy hash becomes visible atomically with
// its use. Invalidated agents are skipped: only re-promotion recovers them.
func (sm *StateMachine) revalidate(doc *policy.Document) (policy.ReloadResult, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	hash, err := sm.policies.Install(doc)
	if err != nil {
		return policy.ReloadResult{}, err
	}

	result := policy.ReloadResult{PolicyHash: hash}

	agents, err := sm.agents.List()
	if err != nil {
		return policy.ReloadResult{}, fmt.Errorf("governance: list agents: %w", err)
	}

	for _, agent := range agents {
		switch agent.Status {
		case core.StatusGovernedValid, core.StatusGovernedRestricted:
		default:
			continue
		}

		eval := sm.policies.Evaluate(agent.Spec)
		if eval.Allow {
			bundle, err := sm.issueProof(agent.Spec)
			if err != nil {
				return policy.ReloadResult{}, err
			}
			agent.Status = core.StatusGovernedValid
			agent.Proof = &bundle
			result.Revalidated++
		} else if eval.WorstSeverity() == policy.SeverityInvalidate {
			agent.Status = core.StatusGovernedInvalidated
			result.Invalidated = append(result.Invalidated, agent.Spec.ID)
		} else {
			agent.Status = core.StatusGovernedRestricted
			result.Restricted = append(result.Restricted, agent.Spec.ID)
		}

		if err := sm.agents.Save(agent); err != nil {
			return policy.ReloadResult{}, fmt.Errorf("governance: save agent: %w", err)
		}
	}

	sm.record("policy_hot_reload", hash, map[string]any{
		"revalidated": result.Revalidated,
		"restricted":  result.Restricted,
		"invalidated": result.Invalidated,
	})
	sm.logger.Info("governance.reload",
		"policy_hash", hash,
		"revalidated", result.Revalidated,
		"restricted", len(result.Restricted),
		"invalidated", len(result.Invalidated))
	return result, nil
}

// issueProof hashes the spec, binds it to the active policy hash and signs
// the bundle. Caller must hold the write lock.
func (sm *StateMachine) issueProof(spec core.AgentSpec) (core.ProofBundle, error) {
	agentHash, err := sm.proofs.Hash(spec)
	if err != nil {
		return core.ProofBundle{}, fmt.Errorf("governance: hash spec: %w", err)
	}
	bundle, err := sm.proofs.Sign(agentHash, sm.policies.ActivePolicyHash(), sm.clock())
	if err != nil {
		return core.ProofBundle{}, fmt.Errorf("governance: sign proof: %w", err)
	}
	return bundle, nil
}

func (sm *StateMachine) record(action, target string, details map[string]any) {
	sm.audit.Record(core.AuditEvent{
		Actor:     "governance",
		Action:    action,
		Target:    target,
		Details:   details,
		Timestamp: sm.clock(),
	})
}
