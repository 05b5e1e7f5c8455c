package store

import (
	"sort"
	"sync"

	"github.com/hupe1980/agentgov/core"
)

// InMemoryAgentStore is a volatile core.AgentStore keeping agents in a
// process-local map. It is safe for concurrent access. Each returned agent is
// cloned to prevent external mutation of internal state.
type InMemoryAgentStore struct {
	mu     sync.RWMutex
	agents map[string]*core.Agent
}

// NewInMemoryAgentStore constructs an empty in-memory agent store.
func NewInMemoryAgentStore() *InMemoryAgentStore {
	return &InMemoryAgentStore{agents: make(map[string]*core.Agent)}
}

// Get returns a clone of the stored agent or core.ErrUnknownAgent.
func (s *InMemoryAgentStore) Get(id string) (*core.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	agent, ok := s.agents[id]
	if !ok {
		return nil, core.ErrUnknownAgent
	}
	return agent.Clone(), nil
}

// Save stores a clone of the agent, creating or overwriting.
func (s *InMemoryAgentStore) Save(agent *core.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[agent.Spec.ID] = agent.Clone()
	return nil
}

// List returns clones of all agents ordered by id for deterministic sweeps.
func (s *InMemoryAgentStore) List() ([]*core.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Spec.ID < out[j].Spec.ID })
	return out, nil
}

// Delete removes an agent; deleting an unknown id is an error.
func (s *InMemoryAgentStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[id]; !ok {
		return core.ErrUnknownAgent
	}
	delete(s.agents, id)
	return nil
}

// InMemoryTaskStore is a volatile core.TaskStore for agent tasks and
// orchestrated tasks. Safe for concurrent access; clone-on-read and
// clone-on-write like the agent store.
type InMemoryTaskStore struct {
	mu           sync.RWMutex
	tasks        map[string]*core.AgentTask
	orchestrated map[string]*core.OrchestratedTask
}

// NewInMemoryTaskStore constructs an empty in-memory task store.
func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{
		tasks:        make(map[string]*core.AgentTask),
		orchestrated: make(map[string]*core.OrchestratedTask),
	}
}

// SaveTask stores a clone of the task snapshot.
func (s *InMemoryTaskStore) SaveTask(task *core.AgentTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task.Clone()
	return nil
}

// GetTask returns a clone of the stored task or core.ErrUnknownTask.
func (s *InMemoryTaskStore) GetTask(id string) (*core.AgentTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, core.ErrUnknownTask
	}
	return task.Clone(), nil
}

// SaveOrchestrated stores a clone of the orchestrated task snapshot.
func (s *InMemoryTaskStore) SaveOrchestrated(task *core.OrchestratedTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orchestrated[task.ID] = task.Clone()
	return nil
}

// GetOrchestrated returns a clone of the stored orchestrated task or
// core.ErrUnknownTask.
func (s *InMemoryTaskStore) GetOrchestrated(id string) (*core.OrchestratedTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.orchestrated[id]
	if !ok {
		return nil, core.ErrUnknownTask
	}
	return task.Clone(), nil
}
