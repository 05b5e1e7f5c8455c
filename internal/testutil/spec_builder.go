package testutil

import (
	"time"

	"github.com/hupe1980/agentgov/core"
)

// SpecBuilder helps construct agent specs with fluent chaining for tests.
// Example:
//
//	spec := NewSpecBuilder("agent-1").Tools("echo").MaxBudget(50).Build()
type SpecBuilder struct {
	spec core.AgentSpec
}

// NewSpecBuilder creates a builder with sensible defaults for the given id.
// Use chainable methods then call Build.
func NewSpecBuilder(id string) *SpecBuilder {
	return &SpecBuilder{spec: core.AgentSpec{
		ID:           id,
		RoleClass:    "worker",
		SystemPrompt: "You are a helpful agent.",
		Sandbox: core.SandboxConstraints{
			MaxBudget:           100,
			MaxTokensPerRequest: 4096,
		},
	}}
}

// RoleClass overrides the role class (chainable).
func (b *SpecBuilder) RoleClass(rc string) *SpecBuilder {
	b.spec.RoleClass = rc
	return b
}

// SystemPrompt overrides the system prompt (chainable).
func (b *SpecBuilder) SystemPrompt(p string) *SpecBuilder {
	b.spec.SystemPrompt = p
	return b
}

// Tools sets the declared tool names (chainable).
func (b *SpecBuilder) Tools(names ...string) *SpecBuilder {
	b.spec.Tools = names
	return b
}

// MaxBudget sets the sandbox budget cap (chainable).
func (b *SpecBuilder) MaxBudget(budget float64) *SpecBuilder {
	b.spec.Sandbox.MaxBudget = budget
	return b
}

// MaxTokensPerRequest sets the per-request token cap (chainable).
func (b *SpecBuilder) MaxTokensPerRequest(n int) *SpecBuilder {
	b.spec.Sandbox.MaxTokensPerRequest = n
	return b
}

// AllowedSideEffects sets the permitted side-effect categories (chainable).
func (b *SpecBuilder) AllowedSideEffects(effects ...string) *SpecBuilder {
	b.spec.Sandbox.AllowedSideEffects = effects
	return b
}

// ExpiresAt sets the sandbox expiry instant (chainable).
func (b *SpecBuilder) ExpiresAt(t time.Time) *SpecBuilder {
	b.spec.Sandbox.ExpiresAt = &t
	return b
}

// MaxIterations overrides the runner iteration budget (chainable).
func (b *SpecBuilder) MaxIterations(n int) *SpecBuilder {
	b.spec.MaxIterations = n
	return b
}

// Build returns the assembled spec.
func (b *SpecBuilder) Build() core.AgentSpec {
	return b.spec.Clone()
}
