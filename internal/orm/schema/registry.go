package schema

import (
	"sort"
	"strings"
	"sync"

	"github.com/conduit-lang/boardstore/internal/errs"
)

// Registry holds the resolved structures of one metadata snapshot.
// A registry is built on every structure reload and replaced whole.
type Registry struct {
	schemas  map[string]*Structure
	resolved map[string]Definition
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		schemas:  make(map[string]*Structure),
		resolved: make(map[string]Definition),
	}
}

// BuildRegistry registers every structure and resolves inheritance
func BuildRegistry(structures []*Structure) (*Registry, error) {
	r := NewRegistry()
	for _, s := range structures {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	if err := r.ResolveAll(); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds a structure
func (r *Registry) Register(s *Structure) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[s.Name]; exists {
		return errs.Config(errs.CodeInvalidSchema, "schema %s is already registered", s.Name)
	}
	r.schemas[s.Name] = s
	delete(r.resolved, s.Name)
	return nil
}

// ResolveAll flattens the parent chain of every registered structure
func (r *Registry) ResolveAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	resolved := make(map[string]Definition, len(r.schemas))
	for name := range r.schemas {
		def, err := r.resolve(name, nil)
		if err != nil {
			return err
		}
		resolved[name] = def
	}
	r.resolved = resolved
	return nil
}

// resolve merges a structure over its ancestors. Own fields win.
func (r *Registry) resolve(name string, path []string) (Definition, error) {
	for _, seen := range path {
		if seen == name {
			return nil, errs.Config(errs.CodeInvalidSchema, "inheritance cycle: %s", strings.Join(append(path, name), " -> "))
		}
	}

	s, ok := r.schemas[name]
	if !ok {
		return nil, errs.Config(errs.CodeInvalidSchema, "parent schema %s not found", name)
	}

	base := Definition{}
	if s.Parent != "" {
		parent, err := r.resolve(s.Parent, append(path, name))
		if err != nil {
			return nil, err
		}
		for k, f := range parent {
			base[k] = f
		}
	}
	for k, f := range s.Items {
		base[k] = f
	}
	return withSystemFields(base), nil
}

// Get retrieves a structure by name
func (r *Registry) Get(name string) (*Structure, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.schemas[name]
	return s, exists
}

// Definition returns the resolved field definition of a schema
func (r *Registry) Definition(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.resolved[name]
	if !ok {
		return nil, errs.Config(errs.CodeUnknownSchema, "schema %s not found", name)
	}
	return def, nil
}

// List returns all schema names in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Exists checks if a schema exists
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.schemas[name]
	return exists
}

// Count returns the number of registered schemas
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.schemas)
}
