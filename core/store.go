package core

import "errors"

// ErrUnknownAgent is returned when an agent id does not exist in the store.
// Receiving it from Admit or Promote indicates a caller bug, not a governance
// denial.
var ErrUnknownAgent = errors.New("unknown agent")

// ErrUnknownTask is returned when a task id does not exist in the store.
var ErrUnknownTask = errors.New("unknown task")

// AgentStore persists governed agent aggregates. Implementations must be safe
// for concurrent use and should provide strongly consistent reads after
// writes within one process. Short method names (Get/Save/List/Delete) mirror
// the other store interfaces for consistency.
type AgentStore interface {
	Get(id string) (*Agent, error)
	Save(agent *Agent) error
	List() ([]*Agent, error)
	Delete(id string) error
}

// TaskStore persists agent tasks and orchestrated tasks. Implementations must
// be safe for concurrent use.
type TaskStore interface {
	SaveTask(task *AgentTask) error
	GetTask(id string) (*AgentTask, error)
	SaveOrchestrated(task *OrchestratedTask) error
	GetOrchestrated(id string) (*OrchestratedTask, error)
}
