// Package audit provides a tamper-evident audit log and the fire-and-forget
// sink the governance, runner and orchestrator components write to. Entries
// are hash-chained: each entry's SHA-256 digest covers its canonical JSON
// form including the previous entry's hash, so any mutation or reordering is
// detectable via VerifyChain.
//
// Recording must never block the caller or sit on any success/failure
// critical path; Sink decouples producers from the log with a buffered
// channel and drops events when the buffer is full.
package audit
