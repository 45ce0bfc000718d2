package cipher

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry maps operation names to operations. The zero value is empty and
// ready to use.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

// defaultRegistry backs the package-level functions and is filled with the
// built-in operations at init.
var defaultRegistry = &Registry{}

// Register adds op. Names are unique within a registry.
func (r *Registry) Register(op Operation) error {
	if op == nil {
		return errors.New("cannot register nil operation")
	}
	name := op.Name()
	if name == "" {
		return errors.New("operation name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ops == nil {
		r.ops = make(map[string]Operation)
	}
	if _, exists := r.ops[name]; exists {
		return fmt.Errorf("operation %s is already registered", name)
	}
	r.ops[name] = op
	return nil
}

// Lookup returns the operation registered under name.
func (r *Registry) Lookup(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// Remove drops name from the registry.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ops, name)
}

// Reset empties the registry.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = nil
}

// Select returns the operations keep accepts, sorted by name.
func (r *Registry) Select(keep func(Operation) bool) []Operation {
	r.mu.RLock()
	ops := make([]Operation, 0, len(r.ops))
	for _, op := range r.ops {
		if keep == nil || keep(op) {
			ops = append(ops, op)
		}
	}
	r.mu.RUnlock()

	sort.Slice(ops, func(i, j int) bool { return ops[i].Name() < ops[j].Name() })
	return ops
}

// RegisterOperation adds an operation to the global registry
func RegisterOperation(op Operation) error {
	return defaultRegistry.Register(op)
}

// mustRegister is used by package init; a duplicate name there is a bug.
func mustRegister(ops ...Operation) {
	for _, op := range ops {
		if err := defaultRegistry.Register(op); err != nil {
			panic(err)
		}
	}
}

// GetOperation retrieves an operation from the registry by name
func GetOperation(name string) (Operation, bool) {
	return defaultRegistry.Lookup(name)
}

// ListOperations returns all registered operations sorted by name
func ListOperations() []Operation {
	return defaultRegistry.Select(nil)
}

// ListOperationsByType returns operations filtered by type
func ListOperationsByType(opType OperationType) []Operation {
	return defaultRegistry.Select(func(op Operation) bool { return op.Type() == opType })
}

// UnregisterOperation removes an operation from the registry (mainly for testing)
func UnregisterOperation(name string) {
	defaultRegistry.Remove(name)
}

// ClearRegistry removes all operations (mainly for testing)
func ClearRegistry() {
	defaultRegistry.Reset()
}

// RestoreDefaults clears the registry and registers the built-in operations
// again (mainly for testing)
func RestoreDefaults() {
	defaultRegistry.Reset()
	registerBuiltins()
}
