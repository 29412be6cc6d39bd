package persist

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function is a helper callable from reducer expressions.
type Function func(args ...any) (any, error)

// FunctionRegistry holds reducer helpers keyed by case-insensitive name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// Register stores fn under name. Registering a name twice is an error.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("persist: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("persist: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("persist: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// MustRegister is Register that panics on error. Meant for init-time setup.
func (r *FunctionRegistry) MustRegister(name string, fn Function) *FunctionRegistry {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
	return r
}

// Clone returns a shallow copy so evaluators are isolated from later
// registrations.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("persist: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("persist: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
