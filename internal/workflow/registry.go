package workflow

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrExecutorNotFound is returned by Registry.Get when no executor is
// registered for the requested step name.
var ErrExecutorNotFound = errors.New("no executor registered")

// Registry maps step names to their Executor implementations. Each Engine
// owns its own Registry; there is no package-level default. Registration may
// happen while another goroutine reads, so access is guarded by a mutex.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

// NewRegistry creates a new, empty Registry ready for executor registration.
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[string]Executor),
	}
}

// Register stores executor under name. A later registration under the same
// name replaces the earlier one, so hosts can swap executors in tests. It
// panics if name is empty or executor is nil; both are programming errors
// that should be caught at startup.
func (r *Registry) Register(name string, executor Executor) {
	if name == "" {
		panic("workflow: Register called with empty step name")
	}
	if executor == nil {
		panic(fmt.Sprintf("workflow: Register called with nil executor for step %q", name))
	}
	r.mu.Lock()
	r.executors[name] = executor
	r.mu.Unlock()
}

// RegisterFunc is shorthand for Register(name, ExecutorFunc(fn)).
func (r *Registry) RegisterFunc(name string, fn ExecutorFunc) {
	if fn == nil {
		panic(fmt.Sprintf("workflow: RegisterFunc called with nil function for step %q", name))
	}
	r.Register(name, fn)
}

// Get returns the Executor registered under name. It returns
// ErrExecutorNotFound (wrapped with the step name) if there is none.
func (r *Registry) Get(name string) (Executor, error) {
	r.mu.RLock()
	ex, ok := r.executors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("step %q: %w", name, ErrExecutorNotFound)
	}
	return ex, nil
}

// Has reports whether an executor is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.executors[name]
	return ok
}

// List returns the names of all registered executors in alphabetical order.
func (r *Registry) List() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.executors))
	for name := range r.executors {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Len returns the number of registered executors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.executors)
}
