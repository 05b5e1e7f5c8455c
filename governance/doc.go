// Package governance owns the per-agent lifecycle: registration into the
// sandbox, promotion into the governed states, revalidation when the active
// policy changes, and the tamper-evident admission gate the orchestrator
// consults before running any task.
//
// All status and proof state is guarded by a single read/write mutex so a
// concurrent admission check never observes a half-applied hot reload: the
// revalidation sweep installs the new policy document and demotes or
// re-proves every governed agent while holding the write lock.
package governance
