// Package tools holds the function declarations offered to the model.
package tools

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xiaot623/seawatch/internal/adapter/llm"
)

// Declaration describes one tool offered to the model.
type Declaration struct {
	Name        string
	Description string
	// Parameters is a JSON schema object.
	Parameters map[string]any
}

// Registry stores tool declarations keyed by tool name.
type Registry struct {
	mu    sync.RWMutex
	decls map[string]Declaration
}

// DefaultRegistry is the shared registry used by the relay.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		decls: make(map[string]Declaration),
	}
}

// Register adds a new declaration.
func (r *Registry) Register(decl Declaration) error {
	if decl.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.decls[decl.Name]; exists {
		return fmt.Errorf("tool already registered: %s", decl.Name)
	}
	r.decls[decl.Name] = decl
	return nil
}

// Get returns the declaration for name.
func (r *Registry) Get(name string) (Declaration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decls[name]
	return d, ok
}

// Tools returns the declarations in the upstream wire format, sorted by name.
func (r *Registry) Tools() []llm.Tool {
	r.mu.RLock()
	names := make([]string, 0, len(r.decls))
	for name := range r.decls {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)

	out := make([]llm.Tool, 0, len(names))
	for _, name := range names {
		d, _ := r.Get(name)
		out = append(out, llm.Tool{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return out
}

// MustRegister adds a declaration to the default registry or panics.
func MustRegister(decl Declaration) {
	if err := DefaultRegistry.Register(decl); err != nil {
		panic(err)
	}
}
