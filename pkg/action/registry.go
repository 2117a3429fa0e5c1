package action

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds all registered actions, keyed by type.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
}

// NewRegistry creates an empty action registry.
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]Action),
	}
}

// DefaultRegistry returns a registry holding the built-in actions.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range Builtins() {
		// Builtins have distinct names.
		_ = r.Register(a)
	}
	return r
}

// Register adds an action to the registry. Returns an error if an action
// with the same name is already registered.
func (r *Registry) Register(a Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := a.Name()
	if _, exists := r.actions[name]; exists {
		return fmt.Errorf("action already registered: %s", name)
	}
	r.actions[name] = a
	return nil
}

// Resolve looks up an action by type.
func (r *Registry) Resolve(name string) (Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.actions[name]
	if !ok {
		return nil, fmt.Errorf("unknown action type: %s", name)
	}
	return a, nil
}

// Validate resolves spec.Type and runs the action's own validation.
func (r *Registry) Validate(spec Spec) error {
	a, err := r.Resolve(spec.Type)
	if err != nil {
		return err
	}
	return a.Validate(spec)
}

// Names returns all registered action types, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns all actions sorted by name.
func (r *Registry) List() []Action {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Action, 0, len(r.actions))
	for _, a := range r.actions {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}
