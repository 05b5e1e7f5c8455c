// Package policy evaluates agent specifications against an active policy
// document and owns the active policy hash. Policy rules are CEL expressions
// over an `agent` input map, each carrying a message and a severity that
// drives the governance hot-reload transitions (restrict vs invalidate).
//
// Evaluation is deterministic for a given spec and document. Hot reload swaps
// the active document atomically with the governance revalidation sweep so no
// admission check ever observes a half-updated policy.
package policy
