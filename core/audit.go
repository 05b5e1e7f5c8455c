package core

import "time"

// AuditEvent is a structured record emitted by governance, runner and
// orchestrator components.
type AuditEvent struct {
	Actor     string         `json:"actor"`
	Action    string         `json:"action"`
	Target    string         `json:"target"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// AuditSink receives audit events. Record is fire-and-forget: implementations
// must not block the caller and must never sit on any success/failure
// critical path.
type AuditSink interface {
	Record(event AuditEvent)
}
