package flow

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/decalflow/prompt"
)

// Registry holds flow definitions by name. Definitions are registered at
// startup; after Seal the registry is read-only and lookups need no
// coordination beyond a read lock.
type Registry struct {
	mu     sync.RWMutex
	flows  map[string]*Definition
	sealed bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{flows: make(map[string]*Definition)}
}

// Register validates def, compiles its templates and adds a copy.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("flow name is required")
	}
	if def.Input == nil || def.Output == nil {
		return fmt.Errorf("flow %s: input and output schemas are required", def.Name)
	}

	hasTemplate := def.Template != ""
	hasHandler := def.Handler != nil
	if hasTemplate == hasHandler {
		return fmt.Errorf("flow %s: exactly one of template or handler must be set", def.Name)
	}

	if hasTemplate {
		tmpl, err := prompt.Compile(def.Name, def.Template)
		if err != nil {
			return err
		}
		def.prompt = tmpl
		if def.System != "" {
			sys, err := prompt.Compile(def.Name+".system", def.System)
			if err != nil {
				return err
			}
			def.system = sys
		}
	}

	seen := make(map[string]bool, len(def.Tools))
	for _, t := range def.Tools {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("flow %s: %w", def.Name, err)
		}
		if seen[t.Name] {
			return fmt.Errorf("flow %s: duplicate tool %s", def.Name, t.Name)
		}
		seen[t.Name] = true
	}
	def.Tools = append(def.Tools[:0:0], def.Tools...)
	def.Modalities = append(def.Modalities[:0:0], def.Modalities...)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("registry is sealed: cannot register flow %s", def.Name)
	}
	if _, exists := r.flows[def.Name]; exists {
		return fmt.Errorf("flow %s already registered", def.Name)
	}
	r.flows[def.Name] = &def
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(defs ...Definition) {
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
}

// Seal makes the registry read-only.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal was called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Lookup returns the definition registered under name. The returned
// definition is shared and must not be modified.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.flows[name]
	return def, ok
}

// List returns all definitions sorted by name.
func (r *Registry) List() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Definition, 0, len(r.flows))
	for _, def := range r.flows {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
