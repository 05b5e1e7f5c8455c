package tool

import (
	"fmt"
	"sync"

	"github.com/hupe1980/agentgov/core"
)

// Registry is the explicit tool registry keyed by name. Agent specs are
// resolved against it at registration time so unknown tool references are
// rejected early, not at call time. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry constructs an empty registry.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds a tool, replacing any previous tool with the same name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get returns a registered tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	return names
}

// ValidateSpec checks that every tool referenced by the spec is registered.
func (r *Registry) ValidateSpec(spec core.AgentSpec) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range spec.Tools {
		if _, ok := r.tools[name]; !ok {
			return fmt.Errorf("spec %s references unknown tool %q", spec.ID, name)
		}
	}
	return nil
}

// SideEffectsOf returns the declared side effects for the named tools. Tool
// names not present in the registry are skipped; ValidateSpec is the place
// where unknown references are surfaced.
func (r *Registry) SideEffectsOf(names []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var effects []string
	seen := make(map[string]struct{})
	for _, name := range names {
		t, ok := r.tools[name]
		if !ok {
			continue
		}
		for _, e := range t.SideEffects() {
			if _, dup := seen[e]; dup {
				continue
			}
			seen[e] = struct{}{}
			effects = append(effects, e)
		}
	}
	return effects
}

// SideEffectFree reports whether every named tool declares zero side effects.
// Used for restricted-mode admission.
func (r *Registry) SideEffectFree(names []string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range names {
		if t, ok := r.tools[name]; ok && len(t.SideEffects()) > 0 {
			return false
		}
	}
	return true
}
