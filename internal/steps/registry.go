// Package steps holds the named functions that test modules can invoke with
// a `call` step.
package steps

import (
	"fmt"
	"sort"
	"sync"
)

// Func is a callable step. It receives the already substituted arguments
// and returns a value that the step may store into a variable.
type Func func(args []interface{}) (interface{}, error)

// Registry maps step names to functions.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds a function under name. Registering a name twice is an error.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return fmt.Errorf("step name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("step %q: function must not be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("step %q already registered", name)
	}
	r.funcs[name] = fn
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, fn Func) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Get looks up a function by name.
func (r *Registry) Get(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Call invokes the named function.
func (r *Registry) Call(name string, args []interface{}) (interface{}, error) {
	fn, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown step function %q (available: %v)", name, r.Names())
	}
	return fn(args)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
