// Package registry implements the concurrent function registry: a
// key-to-entry map supporting many readers and writers in parallel, with
// per-function serialized state transitions and independent cross-function
// operations.
package registry

import (
	"sync"

	"github.com/ankitkpandey1/aetherless/internal/aethererr"
	"github.com/ankitkpandey1/aetherless/internal/config"
	"github.com/ankitkpandey1/aetherless/internal/fsm"
	"github.com/ankitkpandey1/aetherless/internal/values"
)

// Entry is one function's registry record: its immutable-until-replaced
// configuration plus its lifecycle state machine.
type Entry struct {
	mu           sync.RWMutex
	config       config.FunctionConfig
	stateMachine *fsm.Machine
}

func newEntry(cfg config.FunctionConfig) *Entry {
	return &Entry{
		config:       cfg,
		stateMachine: fsm.New(cfg.ID),
	}
}

// Registry is a thread-safe map of FunctionId to Entry. A top-level RWMutex
// guards the key set (registration/unregistration); mutation of an
// individual entry's config or state is guarded by that entry's own lock,
// so two functions never contend on the same mutex.
type Registry struct {
	mu        sync.RWMutex
	functions map[string]*Entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{functions: make(map[string]*Entry)}
}

// Register adds a new function, failing with a RegistryLookup error if the
// id is already present.
func (r *Registry) Register(cfg config.FunctionConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := cfg.ID.String()
	if _, exists := r.functions[id]; exists {
		return aethererr.NewRegistryLookup("Register", id, "function already exists")
	}
	r.functions[id] = newEntry(cfg)
	return nil
}

// Unregister removes a function and returns its config, or fails with a
// RegistryLookup error if the id is absent.
func (r *Registry) Unregister(id values.FunctionId) (config.FunctionConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := id.String()
	entry, ok := r.functions[key]
	if !ok {
		return config.FunctionConfig{}, aethererr.NewRegistryLookup("Unregister", key, "function not found")
	}
	delete(r.functions, key)

	entry.mu.RLock()
	defer entry.mu.RUnlock()
	return entry.config, nil
}

func (r *Registry) lookup(id values.FunctionId) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.functions[id.String()]
	if !ok {
		return nil, aethererr.NewRegistryLookup("lookup", id.String(), "function not found")
	}
	return entry, nil
}

// GetState returns the current lifecycle state of a registered function.
func (r *Registry) GetState(id values.FunctionId) (fsm.State, error) {
	entry, err := r.lookup(id)
	if err != nil {
		return 0, err
	}
	return entry.stateMachine.State(), nil
}

// Transition attempts to move a function's state machine to target.
func (r *Registry) Transition(id values.FunctionId, target fsm.State) error {
	entry, err := r.lookup(id)
	if err != nil {
		return err
	}
	return entry.stateMachine.TransitionTo(target)
}

// Contains reports whether id is currently registered.
func (r *Registry) Contains(id values.FunctionId) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.functions[id.String()]
	return ok
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.functions)
}

// FunctionIDs returns every currently registered FunctionId.
func (r *Registry) FunctionIDs() []values.FunctionId {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]values.FunctionId, 0, len(r.functions))
	for _, entry := range r.functions {
		entry.mu.RLock()
		ids = append(ids, entry.config.ID)
		entry.mu.RUnlock()
	}
	return ids
}

// FunctionsInState returns the ids of every function currently in state.
func (r *Registry) FunctionsInState(state fsm.State) []values.FunctionId {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []values.FunctionId
	for _, entry := range r.functions {
		if entry.stateMachine.State() == state {
			entry.mu.RLock()
			ids = append(ids, entry.config.ID)
			entry.mu.RUnlock()
		}
	}
	return ids
}

// Metrics returns a point-in-time metrics snapshot for every registered
// function's state machine.
func (r *Registry) Metrics() []fsm.Metrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]fsm.Metrics, 0, len(r.functions))
	for _, entry := range r.functions {
		out = append(out, entry.stateMachine.Metrics())
	}
	return out
}

// GetConfig returns a registered function's current configuration.
func (r *Registry) GetConfig(id values.FunctionId) (config.FunctionConfig, error) {
	entry, err := r.lookup(id)
	if err != nil {
		return config.FunctionConfig{}, err
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()
	return entry.config, nil
}

// UpdateConfig hot-reloads a registered function's configuration. Fails if
// the id is absent.
func (r *Registry) UpdateConfig(cfg config.FunctionConfig) error {
	entry, err := r.lookup(cfg.ID)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.config = cfg
	return nil
}
