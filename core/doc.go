// Package core provides the foundational domain types and interfaces used by
// AgentGov. It defines the core abstractions for:
//
//   - Agent specifications and the governed Agent aggregate
//   - Governance lifecycle statuses and proof bundles
//   - Agent tasks (iterative think/act/observe records)
//   - Orchestrated tasks, plans and plan steps
//   - Pluggable stores for agents and tasks
//   - Injected capabilities (Thinker, AuditSink) and the ToolContext
//
// The package intentionally keeps implementation concerns (persistence,
// policy evaluation, scheduling, concrete thinkers) out of scope, exposing
// small interfaces to enable custom backends and extensions.
package core
