// Package datasource keeps named connection configurations.
//
// Credentials are held in cleartext, as in the system this replaces; the
// store must only be reachable from trusted transports. Encryption and
// rotation are explicitly out of scope.
package datasource

import (
	"sort"
	"sync"

	"github.com/soumikpal/schemagraph/internal/adapter"
	"github.com/soumikpal/schemagraph/internal/errs"
)

// DataSource is one named, credentialed connection configuration.
type DataSource struct {
	Name   string             `json:"name"`
	Engine string             `json:"engine"`
	Params adapter.ConnParams `json:"params"`
}

// Redacted returns a copy safe for listing responses: the password is blanked.
func (d DataSource) Redacted() DataSource {
	d.Params.Password = ""
	return d
}

// Store is an in-memory datasource registry. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	items map[string]DataSource
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{items: make(map[string]DataSource)}
}

// Save creates or replaces the datasource keyed by its name.
func (s *Store) Save(ds DataSource) error {
	if ds.Name == "" {
		return errs.New(errs.ErrKindInvalidInput, "datasource name is required")
	}
	if ds.Engine == "" {
		return errs.New(errs.ErrKindInvalidInput, "datasource engine is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[ds.Name] = ds
	return nil
}

// Get returns the datasource with the given name.
func (s *Store) Get(name string) (DataSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.items[name]
	if !ok {
		return DataSource{}, errs.New(errs.ErrKindNotFound, "datasource not found: "+name)
	}
	return ds, nil
}

// List returns all datasources sorted by name, passwords redacted.
func (s *Store) List() []DataSource {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]DataSource, 0, len(s.items))
	for _, ds := range s.items {
		out = append(out, ds.Redacted())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Delete removes the datasource with the given name.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[name]; !ok {
		return errs.New(errs.ErrKindNotFound, "datasource not found: "+name)
	}
	delete(s.items, name)
	return nil
}
