package adapter

import (
	"sort"
	"strings"
	"sync"
)

// Registry maps lower-cased engine identifiers to adapter constructors.
// Engines are added with Register at wiring time; the registry itself never
// needs modification to support a new engine. Safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry returns an empty registry. Callers register engines (and any
// identifier synonyms, e.g. "postgres"/"postgresql") explicitly.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register binds an engine identifier to a constructor. Identifiers are
// case-folded; registering an existing id replaces the previous constructor.
func (r *Registry) Register(engine string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[strings.ToLower(engine)] = ctor
}

// Adapter builds an adapter for the given engine identifier. The second
// return value reports whether the engine is supported — callers must check
// it before using the adapter.
func (r *Registry) Adapter(engine string, params ConnParams) (Adapter, bool) {
	r.mu.RLock()
	ctor, ok := r.constructors[strings.ToLower(engine)]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return ctor(params), true
}

// Supported reports whether an adapter is registered for engine.
func (r *Registry) Supported(engine string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.constructors[strings.ToLower(engine)]
	return ok
}

// Engines returns the sorted set of registered engine identifiers, for
// discovery and validation endpoints.
func (r *Registry) Engines() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engines := make([]string, 0, len(r.constructors))
	for id := range r.constructors {
		engines = append(engines, id)
	}
	sort.Strings(engines)
	return engines
}
